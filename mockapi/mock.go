package mockapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/librarian/api"
)

// Fixed mock credentials
const (
	AdminIdentifier = "admin"
	AdminSecret     = "admin"
	AdminToken      = "MOCK-TOKEN-ADMIN-123456"

	tokenLifetime = 10 * time.Hour
)

type account struct {
	userID int64
	secret string
}

// Backend is an in-memory stand-in for the library backend. It applies the
// same local validation as the HTTP clients and answers with the same error
// types, so callers cannot tell the two apart.
type Backend struct {
	tokens api.TokenSource
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	accounts map[string]account
	issued   map[string]int64

	users     *store[api.User]
	authors   *store[api.Author]
	books     *store[api.Book]
	copies    *store[api.Copy]
	loans     *store[api.Loan]
	groups    *store[api.Group]
	schedules *store[api.Schedule]
}

// New creates a mock backend seeded with an administrator and a small catalogue.
// tokens is consulted on every authenticated call, like the HTTP client does.
func New(tokens api.TokenSource, logger zerolog.Logger) *Backend {
	b := &Backend{
		tokens:   tokens,
		logger:   logger.With().Str("backend", "mock").Logger(),
		now:      time.Now,
		accounts: make(map[string]account),
		issued:   make(map[string]int64),
	}

	b.users = newStore(b, "user", func(u *api.User, id int64) { u.ID = api.ID(id) })
	b.users.resolve = b.resolveUser
	b.authors = newStore(b, "author", func(a *api.Author, id int64) { a.ID = api.ID(id) })
	b.books = newStore(b, "book", func(bk *api.Book, id int64) { bk.ID = api.ID(id) })
	b.books.resolve = b.resolveBook
	b.copies = newStore(b, "copy", func(c *api.Copy, id int64) { c.ID = api.ID(id) })
	b.copies.validate = api.ValidateCopy
	b.copies.resolve = b.resolveCopy
	b.loans = newStore(b, "loan", func(l *api.Loan, id int64) { l.ID = api.ID(id) })
	b.loans.validate = api.ValidateLoan
	b.loans.resolve = b.resolveLoan
	b.groups = newStore(b, "group", func(g *api.Group, id int64) { g.ID = api.ID(id) })
	b.groups.validate = api.ValidateGroup
	b.groups.resolve = b.resolveGroup
	b.schedules = newStore(b, "schedule", func(s *api.Schedule, id int64) { s.ID = api.ID(id) })
	b.schedules.validate = api.ValidateSchedule
	b.schedules.resolve = b.resolveSchedule

	b.seed()
	return b
}

// API returns the capability bundle backed by b
func (b *Backend) API() api.Backend {
	return api.Backend{
		Auth:      &authAPI{backend: b},
		Users:     &userAPI{store: b.users},
		Authors:   &authorAPI{store: b.authors},
		Books:     &bookAPI{store: b.books},
		Copies:    &copyAPI{store: b.copies},
		Loans:     &loanAPI{store: b.loans},
		Groups:    &groupAPI{store: b.groups},
		Schedules: &scheduleAPI{store: b.schedules},
	}
}

// authorize rejects calls made without a token this backend issued
func (b *Backend) authorize() error {
	token, ok := b.tokens.Token()
	if !ok {
		return &api.ServerError{StatusCode: http.StatusUnauthorized, Message: "Missing bearer token (mock)."}
	}

	b.mu.RLock()
	_, known := b.issued[token]
	b.mu.RUnlock()
	if !known {
		return &api.ServerError{StatusCode: http.StatusUnauthorized, Message: "Invalid or expired token (mock)."}
	}
	return nil
}

func (b *Backend) today() *api.Date {
	now := b.now()
	d := api.NewDate(now.Year(), now.Month(), now.Day())
	return &d
}

func (b *Backend) seed() {
	ctx := context.Background()

	admin, _ := b.users.insert(ctx, api.User{
		Identifier:  AdminIdentifier,
		Email:       "admin@library.local",
		GivenName:   "Admin",
		FamilyName1: "Mock",
		Role:        0,
	})
	b.accounts[AdminIdentifier] = account{userID: admin.GetID(), secret: AdminSecret}

	birth := api.NewDate(1547, time.September, 29)
	cervantes, _ := b.authors.insert(ctx, api.Author{
		GivenName:   "Miguel",
		FamilyName1: "de Cervantes",
		FamilyName2: "Saavedra",
		Nationality: "ES",
		BirthDate:   &birth,
	})
	published := api.NewDate(1605, time.January, 16)
	quijote, _ := b.books.insert(ctx, api.Book{
		Title:           "Don Quijote de la Mancha",
		ISBN:            "978-84-376-0494-7",
		Publisher:       "Cátedra",
		PublicationDate: &published,
		Authors:         []api.Author{*cervantes},
	})
	for _, code := range []string{"DQ-001", "DQ-002"} {
		_, _ = b.copies.insert(ctx, api.Copy{Book: quijote, Code: code, Status: api.CopyAvailable, Location: "Shelf A1"})
	}

	club, _ := b.groups.insert(ctx, api.Group{Name: "Reading club", Description: "Classics, one chapter a week"})
	_, _ = b.schedules.insert(ctx, api.Schedule{Group: club, Weekday: "THURSDAY", StartsAt: "18:00", EndsAt: "19:30", Location: "Room 2"})
}
