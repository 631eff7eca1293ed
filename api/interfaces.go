package api

import (
	"context"
)

// Resource defines the CRUD operations every entity endpoint offers
type Resource[T any] interface {
	// List retrieves every entity
	List(ctx context.Context) ([]T, error)

	// Find retrieves one entity by identifier
	Find(ctx context.Context, id int64) (*T, error)

	// Create stores a new entity and returns it with its assigned identifier
	Create(ctx context.Context, v *T) (*T, error)

	// Update replaces the entity with the given identifier
	Update(ctx context.Context, id int64, v *T) (*T, error)

	// Delete removes the entity with the given identifier
	Delete(ctx context.Context, id int64) error
}

// AuthAPI defines login and logout
type AuthAPI interface {
	// Login exchanges credentials for a token without authenticating
	Login(ctx context.Context, creds Credentials) (*AuthResult, error)

	// Logout asks the server to invalidate token
	Logout(ctx context.Context, token string) error
}

// UserAPI defines user operations
type UserAPI interface {
	Resource[User]

	// Register creates an account without authenticating
	Register(ctx context.Context, u *User) (*User, error)

	// Me retrieves the user the current token belongs to
	Me(ctx context.Context) (*User, error)
}

// AuthorAPI defines author operations
type AuthorAPI interface {
	Resource[Author]
	Search(ctx context.Context, name string) ([]Author, error)
}

// BookAPI defines book operations
type BookAPI interface {
	Resource[Book]
	Search(ctx context.Context, query BookQuery) ([]Book, error)
}

// CopyAPI defines copy operations
type CopyAPI interface {
	Resource[Copy]
	ByBook(ctx context.Context, bookID int64) ([]Copy, error)
}

// LoanAPI defines loan operations
type LoanAPI interface {
	Resource[Loan]
	ByUser(ctx context.Context, userID int64) ([]Loan, error)

	// Return closes an open loan
	Return(ctx context.Context, id int64) (*Loan, error)
}

// GroupAPI defines group operations
type GroupAPI interface {
	Resource[Group]
	AddMember(ctx context.Context, groupID, userID int64) (*Group, error)
	RemoveMember(ctx context.Context, groupID, userID int64) (*Group, error)
}

// ScheduleAPI defines schedule operations
type ScheduleAPI interface {
	Resource[Schedule]
	ByGroup(ctx context.Context, groupID int64) ([]Schedule, error)
}

// Backend bundles one implementation of every capability
type Backend struct {
	Auth      AuthAPI
	Users     UserAPI
	Authors   AuthorAPI
	Books     BookAPI
	Copies    CopyAPI
	Loans     LoanAPI
	Groups    GroupAPI
	Schedules ScheduleAPI
}

// NewHTTPBackend wires every resource client to c
func NewHTTPBackend(c *Client) Backend {
	return Backend{
		Auth:      NewAuthClient(c),
		Users:     NewUserClient(c),
		Authors:   NewAuthorClient(c),
		Books:     NewBookClient(c),
		Copies:    NewCopyClient(c),
		Loans:     NewLoanClient(c),
		Groups:    NewGroupClient(c),
		Schedules: NewScheduleClient(c),
	}
}
