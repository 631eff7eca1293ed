package mockapi

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/s0up4200/librarian/api"
)

const loanPeriodDays = 14

func conflict(msg string) error {
	return &api.ServerError{StatusCode: http.StatusConflict, Message: msg}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

type userAPI struct {
	*store[api.User]
}

// Create stores a user and registers its credentials when a secret is given
func (u *userAPI) Create(ctx context.Context, v *api.User) (*api.User, error) {
	if err := u.check("create", v); err != nil {
		return nil, err
	}
	if err := u.backend.authorize(); err != nil {
		return nil, err
	}
	return u.add(ctx, v)
}

// Register creates an account without a token
func (u *userAPI) Register(ctx context.Context, v *api.User) (*api.User, error) {
	if err := u.check("register", v); err != nil {
		return nil, err
	}
	if strings.TrimSpace(v.Identifier) == "" {
		return nil, &api.ValidationError{Field: "identifier", Reason: "must not be blank"}
	}
	if v.Secret == "" {
		return nil, &api.ValidationError{Field: "secret", Reason: "must not be blank"}
	}
	user := *v
	user.Role = 1
	return u.add(ctx, &user)
}

func (u *userAPI) add(ctx context.Context, v *api.User) (*api.User, error) {
	b := u.backend
	secret := v.Secret

	b.mu.Lock()
	defer b.mu.Unlock()
	if v.Identifier != "" {
		if _, taken := b.accounts[v.Identifier]; taken {
			return nil, conflict("Identifier already taken (mock).")
		}
	}

	created, err := u.insert(ctx, *v)
	if err != nil {
		return nil, err
	}
	if created.Identifier != "" && secret != "" {
		b.accounts[created.Identifier] = account{userID: created.GetID(), secret: secret}
	}
	return created, nil
}

// Delete removes the user and its credentials
func (u *userAPI) Delete(ctx context.Context, id int64) error {
	if err := u.store.Delete(ctx, id); err != nil {
		return err
	}

	b := u.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	for identifier, acct := range b.accounts {
		if acct.userID == id {
			delete(b.accounts, identifier)
		}
	}
	for token, owner := range b.issued {
		if owner == id {
			delete(b.issued, token)
		}
	}
	return nil
}

// Me returns the user the current token was issued for
func (u *userAPI) Me(ctx context.Context) (*api.User, error) {
	id, err := u.backend.currentUser()
	if err != nil {
		return nil, err
	}
	return u.get(id)
}

func (b *Backend) resolveUser(_ context.Context, u *api.User) error {
	u.Secret = ""
	return nil
}

type authorAPI struct {
	*store[api.Author]
}

// Search matches name against the full author name, ignoring case
func (a *authorAPI) Search(ctx context.Context, name string) ([]api.Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &api.ValidationError{Field: "name", Reason: "must not be blank"}
	}
	if err := a.backend.authorize(); err != nil {
		return nil, err
	}
	return a.filter(func(v api.Author) bool { return containsFold(v.FullName(), name) }), nil
}

type bookAPI struct {
	*store[api.Book]
}

// Search applies every non-empty query field. An empty query lists everything.
func (bk *bookAPI) Search(ctx context.Context, q api.BookQuery) ([]api.Book, error) {
	if err := bk.backend.authorize(); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(q.Title)
	isbn := strings.TrimSpace(q.ISBN)
	author := strings.TrimSpace(q.Author)

	return bk.filter(func(v api.Book) bool {
		if title != "" && !containsFold(v.Title, title) {
			return false
		}
		if isbn != "" && !strings.EqualFold(v.ISBN, isbn) {
			return false
		}
		if author != "" && !slices.ContainsFunc(v.Authors, func(a api.Author) bool {
			return containsFold(a.FullName(), author)
		}) {
			return false
		}
		return true
	}), nil
}

// resolveBook replaces author references with the stored authors and
// stores authors that have no identifier yet
func (b *Backend) resolveBook(ctx context.Context, bk *api.Book) error {
	authors := make([]api.Author, 0, len(bk.Authors))
	for _, ref := range bk.Authors {
		var (
			author *api.Author
			err    error
		)
		if ref.GetID() > 0 {
			author, err = b.authors.get(ref.GetID())
		} else {
			author, err = b.authors.insert(ctx, ref)
		}
		if err != nil {
			return err
		}
		authors = append(authors, *author)
	}
	if bk.Authors != nil {
		bk.Authors = authors
	}
	return nil
}

type copyAPI struct {
	*store[api.Copy]
}

// ByBook lists the copies of one book
func (c *copyAPI) ByBook(ctx context.Context, bookID int64) ([]api.Copy, error) {
	if err := requireID("book id", bookID); err != nil {
		return nil, err
	}
	if err := c.backend.authorize(); err != nil {
		return nil, err
	}
	return c.filter(func(v api.Copy) bool { return v.Book.GetID() == bookID }), nil
}

func (b *Backend) resolveCopy(_ context.Context, c *api.Copy) error {
	book, err := b.books.get(c.Book.GetID())
	if err != nil {
		return err
	}
	c.Book = book
	if c.Status == "" {
		c.Status = api.CopyAvailable
	}
	return nil
}

type loanAPI struct {
	*store[api.Loan]
}

// Create lends an available copy. Missing dates default to today and a
// two week loan period.
func (l *loanAPI) Create(ctx context.Context, v *api.Loan) (*api.Loan, error) {
	if err := l.check("create", v); err != nil {
		return nil, err
	}
	b := l.backend
	if err := b.authorize(); err != nil {
		return nil, err
	}
	if _, err := b.users.get(v.User.GetID()); err != nil {
		return nil, err
	}

	copyID := v.Copy.GetID()
	if err := b.claimCopy(copyID); err != nil {
		return nil, err
	}

	loan := *v
	if loan.LoanDate == nil {
		loan.LoanDate = b.today()
	}
	if loan.DueDate == nil {
		due := api.Date{Time: loan.LoanDate.AddDate(0, 0, loanPeriodDays)}
		loan.DueDate = &due
	}

	created, err := l.insert(ctx, loan)
	if err != nil {
		b.releaseCopy(copyID)
		return nil, err
	}
	return created, nil
}

// Update replaces a loan. Moving an open loan to another copy claims the
// new copy and releases the old one; closing or reopening it through a
// return date releases or claims the copy.
func (l *loanAPI) Update(ctx context.Context, id int64, v *api.Loan) (*api.Loan, error) {
	if err := requireID("loan id", id); err != nil {
		return nil, err
	}
	if err := l.check("update", v); err != nil {
		return nil, err
	}
	b := l.backend
	if err := b.authorize(); err != nil {
		return nil, err
	}

	current, err := l.get(id)
	if err != nil {
		return nil, err
	}
	oldCopy, newCopy := current.Copy.GetID(), v.Copy.GetID()
	wasOpen, isOpen := !current.Returned(), !v.Returned()

	claim := isOpen && (!wasOpen || newCopy != oldCopy)
	if claim {
		if err := b.claimCopy(newCopy); err != nil {
			return nil, err
		}
	}

	updated, err := l.replace(ctx, id, *v)
	if err != nil {
		if claim {
			b.releaseCopy(newCopy)
		}
		return nil, err
	}

	if wasOpen && (!isOpen || newCopy != oldCopy) {
		b.releaseCopy(oldCopy)
	}
	return updated, nil
}

// Delete removes a loan. Deleting an open loan puts its copy back into circulation.
func (l *loanAPI) Delete(ctx context.Context, id int64) error {
	current, _ := l.get(id)
	if err := l.store.Delete(ctx, id); err != nil {
		return err
	}
	if current != nil && !current.Returned() {
		l.backend.releaseCopy(current.Copy.GetID())
	}
	return nil
}

// ByUser lists the loans of one user
func (l *loanAPI) ByUser(ctx context.Context, userID int64) ([]api.Loan, error) {
	if err := requireID("user id", userID); err != nil {
		return nil, err
	}
	if err := l.backend.authorize(); err != nil {
		return nil, err
	}
	return l.filter(func(v api.Loan) bool { return v.User.GetID() == userID }), nil
}

// Return closes an open loan and puts the copy back into circulation
func (l *loanAPI) Return(ctx context.Context, id int64) (*api.Loan, error) {
	if err := requireID("loan id", id); err != nil {
		return nil, err
	}
	b := l.backend
	if err := b.authorize(); err != nil {
		return nil, err
	}

	returned, err := l.modify(id, func(v *api.Loan) error {
		if v.Returned() {
			return conflict("Loan already returned (mock).")
		}
		v.ReturnDate = b.today()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c := b.releaseCopy(returned.Copy.GetID()); c != nil {
		returned.Copy = c
	}
	return returned, nil
}

// claimCopy marks an available copy as loaned
func (b *Backend) claimCopy(id int64) error {
	_, err := b.copies.modify(id, func(c *api.Copy) error {
		if c.Status != api.CopyAvailable {
			return conflict("Copy is not available (mock).")
		}
		c.Status = api.CopyLoaned
		return nil
	})
	return err
}

// releaseCopy puts a copy back into circulation. A deleted copy is ignored.
func (b *Backend) releaseCopy(id int64) *api.Copy {
	c, err := b.copies.modify(id, func(c *api.Copy) error {
		c.Status = api.CopyAvailable
		return nil
	})
	if err != nil {
		return nil
	}
	return c
}

func (b *Backend) resolveLoan(_ context.Context, l *api.Loan) error {
	user, err := b.users.get(l.User.GetID())
	if err != nil {
		return err
	}
	c, err := b.copies.get(l.Copy.GetID())
	if err != nil {
		return err
	}
	l.User, l.Copy = user, c
	return nil
}

type groupAPI struct {
	*store[api.Group]
}

// AddMember adds a user to a group. Adding an existing member is a no-op.
func (g *groupAPI) AddMember(ctx context.Context, groupID, userID int64) (*api.Group, error) {
	if err := g.memberIDs(groupID, userID); err != nil {
		return nil, err
	}
	user, err := g.backend.users.get(userID)
	if err != nil {
		return nil, err
	}
	return g.modify(groupID, func(v *api.Group) error {
		if !slices.ContainsFunc(v.Members, func(m api.User) bool { return m.GetID() == userID }) {
			v.Members = append(v.Members, *user)
		}
		return nil
	})
}

// RemoveMember removes a user from a group
func (g *groupAPI) RemoveMember(ctx context.Context, groupID, userID int64) (*api.Group, error) {
	if err := g.memberIDs(groupID, userID); err != nil {
		return nil, err
	}
	return g.modify(groupID, func(v *api.Group) error {
		v.Members = slices.DeleteFunc(slices.Clone(v.Members), func(m api.User) bool { return m.GetID() == userID })
		return nil
	})
}

func (g *groupAPI) memberIDs(groupID, userID int64) error {
	if err := requireID("group id", groupID); err != nil {
		return err
	}
	if err := requireID("user id", userID); err != nil {
		return err
	}
	return g.backend.authorize()
}

func (b *Backend) resolveGroup(_ context.Context, g *api.Group) error {
	if g.Members == nil {
		return nil
	}
	members := make([]api.User, 0, len(g.Members))
	for _, m := range g.Members {
		user, err := b.users.get(m.GetID())
		if err != nil {
			return err
		}
		members = append(members, *user)
	}
	g.Members = members
	return nil
}

type scheduleAPI struct {
	*store[api.Schedule]
}

// ByGroup lists the schedules booked for one group
func (s *scheduleAPI) ByGroup(ctx context.Context, groupID int64) ([]api.Schedule, error) {
	if err := requireID("group id", groupID); err != nil {
		return nil, err
	}
	if err := s.backend.authorize(); err != nil {
		return nil, err
	}
	return s.filter(func(v api.Schedule) bool { return v.Group.GetID() == groupID }), nil
}

func (b *Backend) resolveSchedule(_ context.Context, s *api.Schedule) error {
	group, err := b.groups.get(s.Group.GetID())
	if err != nil {
		return err
	}
	s.Group = group
	return nil
}

var (
	_ api.UserAPI     = (*userAPI)(nil)
	_ api.AuthorAPI   = (*authorAPI)(nil)
	_ api.BookAPI     = (*bookAPI)(nil)
	_ api.CopyAPI     = (*copyAPI)(nil)
	_ api.LoanAPI     = (*loanAPI)(nil)
	_ api.GroupAPI    = (*groupAPI)(nil)
	_ api.ScheduleAPI = (*scheduleAPI)(nil)
	_ api.AuthAPI     = (*authAPI)(nil)
)
