package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"SupplyRun/internal/config"
)

// Project headers sent by every client.
const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderProjectID = "X-Project-Id"
	HeaderAppID     = "X-App-Id"
)

// WithProject rejects requests that do not present the project's API key and id.
func WithProject(p config.Project) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderAPIKey)
			if subtle.ConstantTimeCompare([]byte(key), []byte(p.APIKey)) != 1 || r.Header.Get(HeaderProjectID) != p.ProjectID {
				sugar.Warnw("rejected request with bad project credentials",
					"uri", r.RequestURI,
					"project_id", r.Header.Get(HeaderProjectID),
				)
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"code": "API_KEY_INVALID", "message": "API key not valid for this project"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
