package api

import (
	"SupplyRun/internal/config"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var project = config.Project{APIKey: "key_0123456789abcdefghijklmnopqrstuv", ProjectID: "p1", AppID: "app"}

func TestDo_SendsHeadersAndDecodes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, project.APIKey, r.Header.Get(HeaderAPIKey))
		assert.Equal(t, "p1", r.Header.Get(HeaderProjectID))
		assert.Equal(t, "app", r.Header.Get(HeaderAppID))
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))

		var m map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		assert.Equal(t, float64(1), m["x"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	c := &Client{Project: project}
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Do(context.Background(), http.MethodPost, Join(ts.URL, "/api"), map[string]any{"x": 1}, "tok123", &out))
	assert.True(t, out.OK)
}

func TestDo_ErrorEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/plain" {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"EMAIL_EXISTS","message":"taken"}}`))
	}))
	defer ts.Close()

	c := &Client{Project: project}
	err := c.Do(context.Background(), http.MethodPost, ts.URL+"/x", struct{}{}, "", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, CodeEmailExists, apiErr.Code)
	assert.Equal(t, "taken", apiErr.Message)

	err = c.Do(context.Background(), http.MethodGet, ts.URL+"/plain", nil, "", nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, apiErr.Code)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestDo_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := &Client{Project: project}
	err := c.Do(context.Background(), http.MethodGet, url, nil, "", nil)
	assert.True(t, errors.Is(err, ErrUnreachable), "got %v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.Do(ctx, http.MethodGet, url, nil, "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "http://h/api/x", Join("http://h/", "/api/x"))
	assert.Equal(t, "http://h/api/x", Join("http://h", "api/x"))
}
