// Package session tracks the signed-in identity of the client process.
package session

import (
	"context"
	"errors"
	"time"
)

// Identity is an authenticated principal. UID is stable across sessions;
// Token is the backend access token of the current session.
type Identity struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email,omitempty"`
	Provider  string    `json:"provider"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session token is past its expiry at now.
func (id Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && !now.Before(id.ExpiresAt)
}

func (id *Identity) clone() *Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}

// Authentication errors. Each one leaves the session state unchanged.
var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnknownAccount     = errors.New("no account exists for this email")
	ErrAccountExists      = errors.New("an account already exists for this email")
	ErrWeakPassword       = errors.New("password is too weak (at least 6 characters)")
	ErrInvalidToken       = errors.New("the identity token was rejected")
	ErrNetworkUnavailable = errors.New("network unavailable, try again later")
	ErrSessionExpired     = errors.New("session expired, sign in again")
)

// IdentityProvider is the backend that verifies credentials and issues sessions.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	ExchangeExternal(ctx context.Context, token string) (*Identity, error)
	// Verify checks that id is still a valid session and returns its current
	// state. Rejected sessions give ErrSessionExpired.
	Verify(ctx context.Context, id Identity) (*Identity, error)
	SignOut(ctx context.Context, id Identity) error
}

// Store persists the identity between process runs. Load returns nil, nil
// when nothing is stored.
type Store interface {
	Load() (*Identity, error)
	Save(id Identity) error
	Clear() error
}
