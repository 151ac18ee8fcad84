package service

import (
	"SupplyRun/internal/model"
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// externalClaims is the identity token minted by the trusted third-party provider.
type externalClaims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

func (s *UserService) verifyExternal(raw string) (*externalClaims, error) {
	if s.opts.ExternalSecret == "" {
		return nil, errors.New("external credentials are not configured")
	}
	claims := &externalClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(s.opts.ExternalSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.opts.ExternalIssuer),
		jwt.WithAudience(s.opts.ExternalAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("id token without subject")
	}
	return claims, nil
}

// ExchangeExternal trades a third-party identity token for a session. The
// account is looked up by (issuer, subject); on first use it is linked to the
// account with the same verified email or created.
func (s *UserService) ExchangeExternal(ctx context.Context, idToken string) (*AuthResult, error) {
	claims, err := s.verifyExternal(idToken)
	if err != nil {
		return nil, ErrInvalidIDToken
	}

	user, err := s.users.GetUserByExternal(ctx, claims.Issuer, claims.Subject)
	switch {
	case err == nil:
		return s.openSession(ctx, user, ProviderExternal)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("get external user: %w", err)
	}

	user, err = s.userForNewExternal(ctx, claims)
	if err != nil {
		return nil, err
	}
	link := &model.ExternalIdentity{UserID: user.ID, Issuer: claims.Issuer, Subject: claims.Subject}
	if err := s.users.LinkExternal(ctx, link); err != nil {
		return nil, fmt.Errorf("link external identity: %w", err)
	}
	return s.openSession(ctx, user, ProviderExternal)
}

func (s *UserService) userForNewExternal(ctx context.Context, claims *externalClaims) (*model.User, error) {
	email := normalizeEmail(claims.Email)
	if email != "" && claims.EmailVerified {
		user, err := s.users.GetUserByEmail(ctx, email)
		if err == nil && user != nil {
			return user, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get user: %w", err)
		}
	}

	user := &model.User{ID: uuid.NewString()}
	if email != "" {
		if taken, err := s.emailTaken(ctx, email); err != nil {
			return nil, err
		} else if !taken {
			user.Email = &email
		}
	}
	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}
