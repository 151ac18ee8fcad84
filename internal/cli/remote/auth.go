package remote

import (
	"SupplyRun/internal/cli/api"
	"SupplyRun/internal/cli/session"
	"context"
	"errors"
	"net/http"
	"time"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type externalRequest struct {
	IDToken string `json:"id_token"`
}

type identityResponse struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Provider  string    `json:"provider"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (r identityResponse) identity() *session.Identity {
	return &session.Identity{
		UID:       r.UID,
		Email:     r.Email,
		Provider:  r.Provider,
		Token:     r.Token,
		ExpiresAt: r.ExpiresAt,
	}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*session.Identity, error) {
	return c.authenticate(ctx, "/api/auth/login", credentials{Email: email, Password: password})
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*session.Identity, error) {
	return c.authenticate(ctx, "/api/auth/signup", credentials{Email: email, Password: password})
}

func (c *Client) ExchangeExternal(ctx context.Context, token string) (*session.Identity, error) {
	return c.authenticate(ctx, "/api/auth/external", externalRequest{IDToken: token})
}

// Verify asks the backend whether the session of id is still open.
func (c *Client) Verify(ctx context.Context, id session.Identity) (*session.Identity, error) {
	var res identityResponse
	if err := c.api.Do(ctx, http.MethodGet, api.Join(c.authURL, "/api/auth/session"), nil, id.Token, &res); err != nil {
		return nil, authError(err)
	}
	out := res.identity()
	if out.Token == "" {
		out.Token = id.Token
	}
	return out, nil
}

// SignOut revokes the session of id on the backend.
func (c *Client) SignOut(ctx context.Context, id session.Identity) error {
	err := c.api.Do(ctx, http.MethodPost, api.Join(c.authURL, "/api/auth/logout"), nil, id.Token, nil)
	if err != nil {
		return authError(err)
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, path string, payload any) (*session.Identity, error) {
	var res identityResponse
	if err := c.api.Do(ctx, http.MethodPost, api.Join(c.authURL, path), payload, "", &res); err != nil {
		c.logger.Debugw("auth request failed", "path", path, "error", err)
		return nil, authError(err)
	}
	if res.UID == "" || res.Token == "" {
		return nil, errors.New("incomplete identity in backend response")
	}
	return res.identity(), nil
}

// authError maps backend answers onto the session errors.
func authError(err error) error {
	if u := unavailable(err); u != nil {
		return u
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case api.CodeMissingCredentials:
		return session.ErrMissingCredentials
	case api.CodeInvalidCredentials:
		return session.ErrInvalidCredentials
	case api.CodeEmailNotFound:
		return session.ErrUnknownAccount
	case api.CodeEmailExists:
		return session.ErrAccountExists
	case api.CodeWeakPassword:
		return session.ErrWeakPassword
	case api.CodeInvalidIDToken:
		return session.ErrInvalidToken
	case api.CodeTokenExpired, api.CodeUnauthenticated:
		return session.ErrSessionExpired
	}
	return err
}
