package service

import "errors"

// Identity provider errors.
var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrEmailNotFound      = errors.New("no account for this email")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidIDToken     = errors.New("invalid external id token")
	ErrTokenExpired       = errors.New("session token is expired or revoked")
)

// Document store errors.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidPath      = errors.New("invalid collection path")
	ErrInvalidArgument  = errors.New("invalid document")
	ErrQuotaExceeded    = errors.New("collection quota exceeded")
)
