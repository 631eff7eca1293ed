package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/s0up4200/librarian/api"
)

// Role values as issued by the backend
const (
	// RoleAdmin is the administrator role
	RoleAdmin = 0
	// RoleNormal is the default role, also held while unauthenticated
	RoleNormal = 1
)

// Session holds the authenticated identity for the lifetime of the process.
// The zero value is not usable; create one with New.
type Session struct {
	mu          sync.RWMutex
	token       string
	userID      string
	role        int
	givenName   string
	familyName1 string
	familyName2 string
	expiresAt   time.Time
}

// Snapshot is a consistent copy of the session fields
type Snapshot struct {
	Token       string
	UserID      string
	Role        int
	GivenName   string
	FamilyName1 string
	FamilyName2 string
	ExpiresAt   time.Time
}

// Authenticated reports whether the snapshot carries a token
func (s Snapshot) Authenticated() bool {
	return s.Token != ""
}

// DisplayName joins the name fields that are present
func (s Snapshot) DisplayName() string {
	name := s.GivenName
	for _, part := range []string{s.FamilyName1, s.FamilyName2} {
		if part == "" {
			continue
		}
		if name != "" {
			name += " "
		}
		name += part
	}
	return name
}

// New creates an empty, unauthenticated session
func New() *Session {
	return &Session{role: RoleNormal}
}

// Set stores every field of a login result at once. No validation is done here.
func (s *Session) Set(result api.AuthResult) {
	expiresAt := expiryOf(result)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = result.AccessToken
	s.userID = result.UserID
	s.role = result.Role
	s.givenName = result.GivenName
	s.familyName1 = result.FamilyName1
	s.familyName2 = result.FamilyName2
	s.expiresAt = expiresAt
}

// Token returns the current bearer token, if any
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token, s.token != ""
}

// Clear resets the identity. Role returns to RoleNormal rather than unset.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
}

func (s *Session) reset() {
	s.token = ""
	s.userID = ""
	s.role = RoleNormal
	s.givenName = ""
	s.familyName1 = ""
	s.familyName2 = ""
	s.expiresAt = time.Time{}
}

// Take returns the current token and clears the session under one lock, so
// a concurrent Set is either taken whole or left intact.
func (s *Session) Take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := s.token
	s.reset()
	return token, token != ""
}

// Authenticated reports whether a token is present
func (s *Session) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

// Snapshot returns all fields read under a single lock
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Token:       s.token,
		UserID:      s.userID,
		Role:        s.role,
		GivenName:   s.givenName,
		FamilyName1: s.familyName1,
		FamilyName2: s.familyName2,
		ExpiresAt:   s.expiresAt,
	}
}

// Expired reports whether the token has a known expiry that lies before now.
// Sessions without a token or without a known expiry are never expired.
func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" || s.expiresAt.IsZero() {
		return false
	}
	return !now.Before(s.expiresAt)
}

// expiryOf prefers the expiry sent by the server and falls back to the
// exp claim when the access token happens to be a JWT.
func expiryOf(result api.AuthResult) time.Time {
	if result.Expiry > 0 {
		return time.Unix(result.Expiry, 0)
	}
	if result.AccessToken == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(result.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, if any
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
