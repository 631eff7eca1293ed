package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used on the wire
const DateLayout = "2006-01-02"

// Date is a calendar date serialized as "YYYY-MM-DD"
type Date struct {
	time.Time
}

// NewDate returns the date for the given day in UTC
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String returns the wire representation
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON implements json.Unmarshaler. Full timestamps are accepted
// and truncated to their date.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}

	if t, err := time.Parse(DateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return nil
}

// Credentials are sent to the login endpoint and never persisted
type Credentials struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

// AuthResult is the login response
type AuthResult struct {
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId"`
	Role        int    `json:"role"`
	GivenName   string `json:"givenName"`
	FamilyName1 string `json:"familyName1"`
	FamilyName2 string `json:"familyName2"`
	Expiry      int64  `json:"expiry"`
}

// ErrorPayload is the body the server may send along with an error status
type ErrorPayload struct {
	Message *string `json:"message,omitempty"`
	Error   *string `json:"error,omitempty"`
}

// Text returns the first non-blank description in the payload
func (p ErrorPayload) Text() string {
	for _, s := range []*string{p.Message, p.Error} {
		if s != nil && strings.TrimSpace(*s) != "" {
			return strings.TrimSpace(*s)
		}
	}
	return ""
}

// ID returns a pointer to id, for filling entity identifiers
func ID(id int64) *int64 {
	return &id
}

func idOf(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// User represents a library user
type User struct {
	ID          *int64 `json:"id,omitempty"`
	Identifier  string `json:"identifier,omitempty"`
	Email       string `json:"email,omitempty"`
	GivenName   string `json:"givenName,omitempty"`
	FamilyName1 string `json:"familyName1,omitempty"`
	FamilyName2 string `json:"familyName2,omitempty"`
	Role        int    `json:"role"`
	// Secret is only sent when registering or changing the password
	Secret string `json:"secret,omitempty"`
}

// GetID returns the identifier or 0 when unassigned
func (u *User) GetID() int64 { return idOf(u.ID) }

// FullName returns the given name followed by both family names
func (u *User) FullName() string {
	return joinNames(u.GivenName, u.FamilyName1, u.FamilyName2)
}

// Author represents a book author
type Author struct {
	ID          *int64 `json:"id,omitempty"`
	GivenName   string `json:"givenName,omitempty"`
	FamilyName1 string `json:"familyName1,omitempty"`
	FamilyName2 string `json:"familyName2,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	BirthDate   *Date  `json:"birthDate,omitempty"`
}

// GetID returns the identifier or 0 when unassigned
func (a *Author) GetID() int64 { return idOf(a.ID) }

// FullName returns the given name followed by both family names
func (a *Author) FullName() string {
	return joinNames(a.GivenName, a.FamilyName1, a.FamilyName2)
}

// Book represents a catalogued title
type Book struct {
	ID              *int64   `json:"id,omitempty"`
	Title           string   `json:"title,omitempty"`
	ISBN            string   `json:"isbn,omitempty"`
	Publisher       string   `json:"publisher,omitempty"`
	PublicationDate *Date    `json:"publicationDate,omitempty"`
	Authors         []Author `json:"authors,omitempty"`
}

// GetID returns the identifier or 0 when unassigned
func (b *Book) GetID() int64 { return idOf(b.ID) }

// CopyStatus is the circulation state of a physical copy
type CopyStatus string

const (
	// CopyAvailable can be loaned
	CopyAvailable CopyStatus = "AVAILABLE"
	// CopyLoaned is currently on loan
	CopyLoaned CopyStatus = "LOANED"
	// CopyLost has been reported lost
	CopyLost CopyStatus = "LOST"
	// CopyDamaged is out of circulation
	CopyDamaged CopyStatus = "DAMAGED"
)

// Copy represents a physical copy of a book
type Copy struct {
	ID       *int64     `json:"id,omitempty"`
	Book     *Book      `json:"book,omitempty"`
	Code     string     `json:"code,omitempty"`
	Status   CopyStatus `json:"status,omitempty"`
	Location string     `json:"location,omitempty"`
}

// GetID returns the identifier or 0 when unassigned
func (c *Copy) GetID() int64 { return idOf(c.ID) }

// Loan represents a copy lent to a user
type Loan struct {
	ID         *int64 `json:"id,omitempty"`
	User       *User  `json:"user,omitempty"`
	Copy       *Copy  `json:"copy,omitempty"`
	LoanDate   *Date  `json:"loanDate,omitempty"`
	DueDate    *Date  `json:"dueDate,omitempty"`
	ReturnDate *Date  `json:"returnDate,omitempty"`
}

// GetID returns the identifier or 0 when unassigned
func (l *Loan) GetID() int64 { return idOf(l.ID) }

// Returned reports whether the loan has been closed
func (l *Loan) Returned() bool {
	return l.ReturnDate != nil && !l.ReturnDate.IsZero()
}

// Overdue reports whether an open loan is past its due date
func (l *Loan) Overdue(now time.Time) bool {
	if l.Returned() || l.DueDate == nil || l.DueDate.IsZero() {
		return false
	}
	return now.After(l.DueDate.AddDate(0, 0, 1))
}

// Group represents a group of users, such as a reading club
type Group struct {
	ID          *int64 `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Members     []User `json:"members,omitempty"`
}

// GetID returns the identifier or 0 when unassigned
func (g *Group) GetID() int64 { return idOf(g.ID) }

// Schedule is a recurring weekly slot booked for a group
type Schedule struct {
	ID       *int64 `json:"id,omitempty"`
	Group    *Group `json:"group,omitempty"`
	Weekday  string `json:"weekday,omitempty"`
	StartsAt string `json:"startsAt,omitempty"`
	EndsAt   string `json:"endsAt,omitempty"`
	Location string `json:"location,omitempty"`
}

// GetID returns the identifier or 0 when unassigned
func (s *Schedule) GetID() int64 { return idOf(s.ID) }

// BookQuery filters a book search. Empty fields are not sent.
type BookQuery struct {
	Title  string
	ISBN   string
	Author string
}

func joinNames(parts ...string) string {
	var names []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return strings.Join(names, " ")
}
