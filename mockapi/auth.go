package mockapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/s0up4200/librarian/api"
)

type authAPI struct {
	backend *Backend
}

// Login accepts any registered identifier with its secret
func (a *authAPI) Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error) {
	b := a.backend
	b.logger.Debug().Str("op", "login").Str("identifier", creds.Identifier).Msg("Mock request")

	b.mu.RLock()
	acct, ok := b.accounts[creds.Identifier]
	b.mu.RUnlock()
	if !ok || acct.secret != creds.Secret {
		return nil, &api.ServerError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials (mock)."}
	}

	user, err := b.users.get(acct.userID)
	if err != nil {
		return nil, err
	}

	token := "MOCK-TOKEN-" + strings.ToUpper(uuid.NewString())
	if creds.Identifier == AdminIdentifier {
		token = AdminToken
	}

	b.mu.Lock()
	b.issued[token] = acct.userID
	b.mu.Unlock()

	return &api.AuthResult{
		AccessToken: token,
		UserID:      strconv.FormatInt(acct.userID, 10),
		Role:        user.Role,
		GivenName:   user.GivenName,
		FamilyName1: user.FamilyName1,
		FamilyName2: user.FamilyName2,
		Expiry:      b.now().Add(tokenLifetime).Unix(),
	}, nil
}

// Logout forgets token. Unknown tokens are accepted.
func (a *authAPI) Logout(ctx context.Context, token string) error {
	if token == "" {
		return api.ErrNoToken
	}
	b := a.backend
	b.logger.Debug().Str("op", "logout").Msg("Mock request")

	b.mu.Lock()
	delete(b.issued, token)
	b.mu.Unlock()
	return nil
}

// currentUser returns the id the presented token was issued for
func (b *Backend) currentUser() (int64, error) {
	if err := b.authorize(); err != nil {
		return 0, err
	}
	token, _ := b.tokens.Token()

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.issued[token], nil
}
