package api

// ValidateCopy checks that c references a stored book
func ValidateCopy(c *Copy) error {
	if c == nil {
		return invalid("copy", "is required")
	}
	if c.Book == nil || c.Book.GetID() <= 0 {
		return invalid("book.id", "is required")
	}
	return nil
}

// ValidateLoan checks that l references a stored user and copy
func ValidateLoan(l *Loan) error {
	if l == nil {
		return invalid("loan", "is required")
	}
	if l.User == nil || l.User.GetID() <= 0 {
		return invalid("user.id", "is required")
	}
	if l.Copy == nil || l.Copy.GetID() <= 0 {
		return invalid("copy.id", "is required")
	}
	return nil
}

// ValidateGroup checks that every member is a stored user
func ValidateGroup(g *Group) error {
	if g == nil {
		return invalid("group", "is required")
	}
	for _, m := range g.Members {
		if m.GetID() <= 0 {
			return invalid("members.id", "is required")
		}
	}
	return nil
}

// ValidateSchedule checks that s references a stored group
func ValidateSchedule(s *Schedule) error {
	if s == nil {
		return invalid("schedule", "is required")
	}
	if s.Group == nil || s.Group.GetID() <= 0 {
		return invalid("group.id", "is required")
	}
	return nil
}
