package api

import (
	"context"
	"net/http"
)

// AuthClient talks to the login and logout endpoints
type AuthClient struct {
	client *Client
}

var _ AuthAPI = (*AuthClient)(nil)

// NewAuthClient creates an AuthClient on top of c
func NewAuthClient(c *Client) *AuthClient {
	return &AuthClient{client: c}
}

// Login posts the credentials without an Authorization header. The session
// is not touched here; storing the result is the caller's job.
func (a *AuthClient) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	var result AuthResult
	err := a.client.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     creds,
		accept:   statusOK,
		fallback: "Login failed.",
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, &TransportError{Message: "login response carried no access token"}
	}
	return &result, nil
}

// Logout asks the server to blacklist token
func (a *AuthClient) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoToken
	}
	return a.client.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/logout",
		auth:     true,
		token:    token,
		fallback: "Logout failed.",
	}, nil)
}
