package api

import (
	"context"
	"net/http"
	"strings"
)

// UserClient talks to the user endpoints
type UserClient struct {
	resource[User]
}

var _ UserAPI = (*UserClient)(nil)

// NewUserClient creates a UserClient on top of c
func NewUserClient(c *Client) *UserClient {
	return &UserClient{resource: newResource[User](c, "/users", "user", "users")}
}

// Register creates an account. It is one of the two calls sent without a token.
func (u *UserClient) Register(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, invalid("user", "is required")
	}
	if strings.TrimSpace(user.Identifier) == "" {
		return nil, invalid("identifier", "must not be blank")
	}
	if user.Secret == "" {
		return nil, invalid("secret", "must not be blank")
	}

	var out User
	err := u.client.do(ctx, call{
		method:   http.MethodPost,
		path:     u.path + "/register",
		body:     user,
		accept:   statusCreated,
		fallback: "Registration failed.",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me retrieves the authenticated user
func (u *UserClient) Me(ctx context.Context) (*User, error) {
	var out User
	err := u.client.do(ctx, call{
		method:   http.MethodGet,
		path:     u.path + "/me",
		auth:     true,
		fallback: "Could not load the current user.",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
