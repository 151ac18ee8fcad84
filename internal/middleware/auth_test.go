package middleware

import (
	"SupplyRun/internal/model"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errRejected = errors.New("rejected")

type stubVerifier map[string]model.Principal

func (s stubVerifier) Authenticate(_ context.Context, token string) (model.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return model.Principal{}, errRejected
}

func principalEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid, ok := GetUserIDFromContext(r.Context()); ok {
			tok, _ := GetToken(r.Context())
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(uid + "|" + tok))
			return
		}
		if err := GetAuthError(r.Context()); err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
}

func TestWithAuth_ValidCookieSetsUserID(t *testing.T) {
	h := WithAuth(stubVerifier{"tok-77": {UserID: "u-77"}})(principalEcho(t))

	rrCookie := httptest.NewRecorder()
	SetLoginCookie(rrCookie, "tok-77", time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rrCookie.Result().Cookies() {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u-77|tok-77", rr.Body.String())
}

func TestWithAuth_BearerHeader(t *testing.T) {
	h := WithAuth(stubVerifier{"tok-1": {UserID: "u-1"}})(principalEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u-1|tok-1", rr.Body.String())
}

func TestWithAuth_NoTokenLeavesAnonymous(t *testing.T) {
	h := WithAuth(stubVerifier{})(principalEcho(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWithAuth_InvalidTokenRecordsError(t *testing.T) {
	h := WithAuth(stubVerifier{})(principalEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestClearLoginCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	ClearLoginCookie(rr)
	cookies := rr.Result().Cookies()
	if assert.Len(t, cookies, 1) {
		assert.Equal(t, AuthCookieName, cookies[0].Name)
		assert.Less(t, cookies[0].MaxAge, 0)
	}
}
