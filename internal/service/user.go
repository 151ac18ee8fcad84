package service

import (
	"SupplyRun/internal/config"
	"SupplyRun/internal/model"
	"SupplyRun/internal/repo"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

// Sign-in providers recorded on sessions.
const (
	ProviderPassword = "password"
	ProviderExternal = "external"
)

// AuthOptions configures token issuing and external credential checks.
type AuthOptions struct {
	Secret              string
	TokenTTL            time.Duration
	HideUnknownAccounts bool

	ExternalSecret   string
	ExternalIssuer   string
	ExternalAudience string
}

func AuthOptionsFromConfig(cfg *config.Config) AuthOptions {
	return AuthOptions{
		Secret:              cfg.AuthSecret,
		TokenTTL:            cfg.AuthTokenTTL,
		HideUnknownAccounts: cfg.HideUnknownAccounts,
		ExternalSecret:      cfg.ExternalTokenSecret,
		ExternalIssuer:      cfg.ExternalIssuer,
		ExternalAudience:    cfg.ExternalAudience,
	}
}

// AuthResult is a freshly opened session.
type AuthResult struct {
	Principal model.Principal
	Token     string
}

// UserService is the identity provider: accounts, sessions and access tokens.
type UserService struct {
	users    repo.UserRepository
	sessions repo.SessionRepository
	opts     AuthOptions
	now      func() time.Time
}

func NewUserService(users repo.UserRepository, sessions repo.SessionRepository, opts AuthOptions) *UserService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &UserService{users: users, sessions: sessions, opts: opts, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a password account and opens a session for it.
func (s *UserService) SignUp(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	exists, err := s.emailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, &model.User{ID: uuid.NewString(), Email: &email, PasswordHash: string(hash)})
	if err != nil {
		// a concurrent sign-up may have won the unique index
		if taken, _ := s.emailTaken(ctx, email); taken {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.openSession(ctx, user, ProviderPassword)
}

// SignIn checks the password of an existing account and opens a session.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.opts.HideUnknownAccounts {
				return nil, ErrInvalidCredentials
			}
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrEmailNotFound
	}
	// accounts created from an external credential have no password
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.openSession(ctx, user, ProviderPassword)
}

// Authenticate resolves an access token to its principal. Tokens that fail
// signature or expiry checks, or whose session is revoked, give ErrTokenExpired.
func (s *UserService) Authenticate(ctx context.Context, token string) (model.Principal, error) {
	now := s.now()
	claims, err := parseAccessToken(s.opts.Secret, token, now)
	if err != nil {
		return model.Principal{}, ErrTokenExpired
	}

	sess, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Principal{}, ErrTokenExpired
		}
		return model.Principal{}, fmt.Errorf("get session: %w", err)
	}
	if sess.Revoked || !now.Before(sess.ExpiresAt) || sess.UserID != claims.Subject {
		return model.Principal{}, ErrTokenExpired
	}

	return model.Principal{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Provider:  claims.Provider,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// SignOut revokes a session.
func (s *UserService) SignOut(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *UserService) emailTaken(ctx context.Context, email string) (bool, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("get user: %w", err)
	}
	return user != nil, nil
}

func (s *UserService) openSession(ctx context.Context, user *model.User, provider string) (*AuthResult, error) {
	now := s.now()
	sess := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Provider:  provider,
		ExpiresAt: now.Add(s.opts.TokenTTL).UTC(),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	var email string
	if user.Email != nil {
		email = *user.Email
	}
	token, err := issueAccessToken(s.opts.Secret, user.ID, sess.ID, email, provider, now, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Principal: model.Principal{
			UserID:    user.ID,
			Email:     email,
			Provider:  provider,
			SessionID: sess.ID,
			ExpiresAt: sess.ExpiresAt,
		},
		Token: token,
	}, nil
}
