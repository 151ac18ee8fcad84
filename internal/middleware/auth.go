package middleware

import (
	"SupplyRun/internal/model"
	"context"
	"net/http"
	"strings"
	"time"
)

// AuthCookieName is the cookie carrying the access token for browser style clients.
const AuthCookieName = "auth_token"

// TokenVerifier resolves an access token to its principal.
type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (model.Principal, error)
}

type ctxKey int

const (
	principalKey ctxKey = iota
	tokenKey
	authErrKey
)

// WithAuth resolves the bearer token or auth cookie of a request. Valid
// tokens put the principal into the request context; requests without a
// token or with a rejected one stay anonymous and handlers decide.
func WithAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			p, err := v.Authenticate(ctx, token)
			if err != nil {
				ctx = context.WithValue(ctx, authErrKey, err)
			} else {
				ctx = context.WithValue(ctx, principalKey, p)
				ctx = context.WithValue(ctx, tokenKey, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(AuthCookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetLoginCookie stores the access token in the auth cookie.
func SetLoginCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearLoginCookie expires the auth cookie.
func ClearLoginCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// GetPrincipal returns the authenticated caller, if any.
func GetPrincipal(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok
}

// GetUserIDFromContext returns the UID of the authenticated caller, if any.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := GetPrincipal(ctx)
	if !ok || p.UserID == "" {
		return "", false
	}
	return p.UserID, true
}

// GetToken returns the raw access token of an authenticated request.
func GetToken(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok
}

// GetAuthError returns why a presented token was rejected.
func GetAuthError(ctx context.Context) error {
	err, _ := ctx.Value(authErrKey).(error)
	return err
}
