package handlers_test

import (
	"SupplyRun/internal/handlers"
	"SupplyRun/internal/middleware"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocuments_AddAndList(t *testing.T) {
	env := newTestEnv(t)
	id := env.signUp(t, "owner@example.com", "Secret123")
	path := "/api/documents/users/" + id.UID + "/lists"

	rr := env.do(t, http.MethodPost, path, handlers.AddRequest{
		Fields:           map[string]any{"title": "Weekly restock"},
		ServerTimestamps: []string{"createdAt"},
	}, id.Token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var added handlers.AddResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
	assert.Len(t, added.ID, 26)

	rr = env.do(t, http.MethodGet, path, nil, id.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	var snap handlers.SnapshotFrame
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	require.Len(t, snap.Documents, 1)
	doc := snap.Documents[0]
	assert.Equal(t, added.ID, doc.ID)
	assert.Equal(t, "Weekly restock", doc.Fields["title"])
	ts, err := time.Parse(time.RFC3339Nano, doc.Fields["createdAt"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
}

func TestDocuments_Rules(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signUp(t, "owner@example.com", "Secret123")
	other := env.signUp(t, "other@example.com", "Secret123")
	path := "/api/documents/users/" + owner.UID + "/lists"
	body := handlers.AddRequest{Fields: map[string]any{"title": "x"}}

	t.Run("anonymous", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, path, body, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("other user", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, path, body, other.Token)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, handlers.CodePermissionDenied, errorCode(t, rr))

		rr = env.do(t, http.MethodGet, path, nil, other.Token)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("bad path", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/documents/users/"+owner.UID, nil, owner.Token)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("quota", func(t *testing.T) {
		for i := 0; i < env.cfg.MaxDocuments; i++ {
			rr := env.do(t, http.MethodPost, path, body, owner.Token)
			require.Equal(t, http.StatusCreated, rr.Code)
		}
		rr := env.do(t, http.MethodPost, path, body, owner.Token)
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, handlers.CodeResourceExhausted, errorCode(t, rr))
	})

	t.Run("revoked token", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/auth/logout", nil, other.Token)
		require.Equal(t, http.StatusNoContent, rr.Code)
		rr = env.do(t, http.MethodGet, "/api/documents/users/"+other.UID+"/lists", nil, other.Token)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, handlers.CodeTokenExpired, errorCode(t, rr))
	})
}

func dialListen(t *testing.T, srv *httptest.Server, path, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/listen/" + path
	h := http.Header{}
	h.Set(middleware.HeaderAPIKey, testProject.APIKey)
	h.Set(middleware.HeaderProjectID, testProject.ProjectID)
	h.Set("Authorization", "Bearer "+token)
	return websocket.DefaultDialer.Dial(u, h)
}

func readFrame(t *testing.T, ws *websocket.Conn) handlers.SnapshotFrame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f handlers.SnapshotFrame
	require.NoError(t, ws.ReadJSON(&f))
	return f
}

func TestDocuments_Listen(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	owner := env.signUp(t, "owner@example.com", "Secret123")
	path := "users/" + owner.UID + "/lists"

	ws, _, err := dialListen(t, srv, path, owner.Token)
	require.NoError(t, err)
	defer ws.Close()

	first := readFrame(t, ws)
	assert.Equal(t, "snapshot", first.Type)
	assert.Empty(t, first.Documents)

	rr := env.do(t, http.MethodPost, "/api/documents/"+path, handlers.AddRequest{
		Fields:           map[string]any{"title": "Groceries"},
		ServerTimestamps: []string{"createdAt"},
	}, owner.Token)
	require.Equal(t, http.StatusCreated, rr.Code)

	next := readFrame(t, ws)
	require.Len(t, next.Documents, 1)
	assert.Equal(t, "Groceries", next.Documents[0].Fields["title"])

	// revoking the session closes the feed with the unauthenticated close code
	rr = env.do(t, http.MethodPost, "/api/auth/logout", nil, owner.Token)
	require.Equal(t, http.StatusNoContent, rr.Code)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, _, err = ws.ReadMessage()
		if err != nil {
			break
		}
	}
	assert.True(t, websocket.IsCloseError(err, handlers.CloseUnauthenticated), "got %v", err)
}

func TestDocuments_ListenRejectsBeforeUpgrade(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	owner := env.signUp(t, "owner@example.com", "Secret123")
	other := env.signUp(t, "other@example.com", "Secret123")

	_, resp, err := dialListen(t, srv, "users/"+owner.UID+"/lists", other.Token)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = dialListen(t, srv, "users/"+owner.UID+"/lists", "stale")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
