package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/librarian/api"
)

func adminResult() api.AuthResult {
	return api.AuthResult{
		AccessToken: "MOCK-TOKEN-ADMIN-123456",
		UserID:      "1",
		Role:        RoleAdmin,
		GivenName:   "Ada",
		FamilyName1: "Lovelace",
		FamilyName2: "Byron",
		Expiry:      time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
	}
}

func TestNew(t *testing.T) {
	s := New()

	token, ok := s.Token()
	assert.False(t, ok)
	assert.Empty(t, token)
	assert.Equal(t, RoleNormal, s.Snapshot().Role)
	assert.False(t, s.Authenticated())
}

func TestSet(t *testing.T) {
	s := New()
	s.Set(adminResult())

	token, ok := s.Token()
	require.True(t, ok)
	assert.Equal(t, "MOCK-TOKEN-ADMIN-123456", token)

	snap := s.Snapshot()
	assert.Equal(t, "1", snap.UserID)
	assert.Equal(t, RoleAdmin, snap.Role)
	assert.Equal(t, "Ada Lovelace Byron", snap.DisplayName())
	assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), snap.ExpiresAt.UTC())
}

func TestClear(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Session)
	}{
		{name: "fresh session", setup: func(*Session) {}},
		{name: "after login", setup: func(s *Session) { s.Set(adminResult()) }},
		{name: "cleared twice", setup: func(s *Session) {
			s.Set(adminResult())
			s.Clear()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			tt.setup(s)
			s.Clear()
			s.Clear()

			assert.Equal(t, Snapshot{Role: RoleNormal}, s.Snapshot())
		})
	}
}

func TestExpired(t *testing.T) {
	s := New()
	now := time.Now()
	assert.False(t, s.Expired(now), "no token")

	result := adminResult()
	result.Expiry = now.Add(-time.Minute).Unix()
	s.Set(result)
	assert.True(t, s.Expired(now))

	result.Expiry = now.Add(time.Hour).Unix()
	s.Set(result)
	assert.False(t, s.Expired(now))

	result.Expiry = 0
	s.Set(result)
	assert.False(t, s.Expired(now), "unknown expiry")
}

func TestExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	s := New()
	s.Set(api.AuthResult{AccessToken: signed, UserID: "7"})

	assert.True(t, exp.Equal(s.Snapshot().ExpiresAt))
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set(adminResult())
			s.Clear()
		}()
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			// Either fully set or fully cleared
			if snap.Token != "" {
				assert.Equal(t, "1", snap.UserID)
				assert.Equal(t, RoleAdmin, snap.Role)
			} else {
				assert.Empty(t, snap.UserID)
				assert.Equal(t, RoleNormal, snap.Role)
			}
		}()
	}
	wg.Wait()
}

func TestTake(t *testing.T) {
	s := New()

	_, ok := s.Take()
	assert.False(t, ok)

	s.Set(adminResult())
	token, ok := s.Take()
	assert.True(t, ok)
	assert.Equal(t, adminResult().AccessToken, token)
	assert.Equal(t, Snapshot{Role: RoleNormal}, s.Snapshot())

	_, ok = s.Take()
	assert.False(t, ok, "a session is only taken once")
}

func TestTakeConcurrentWithSet(t *testing.T) {
	s := New()
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		taken int
	)

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set(adminResult())
		}()
		go func() {
			defer wg.Done()
			if token, ok := s.Take(); ok {
				assert.Equal(t, adminResult().AccessToken, token)
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Whatever was not taken is still fully present
	if snap := s.Snapshot(); snap.Authenticated() {
		assert.Equal(t, "1", snap.UserID)
	}
	assert.LessOrEqual(t, taken, 50)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := New()
	got, ok := FromContext(NewContext(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)
}
