package handlers_test

import (
	"SupplyRun/internal/config"
	"SupplyRun/internal/handlers"
	"SupplyRun/internal/hub"
	"SupplyRun/internal/middleware"
	"SupplyRun/internal/repo"
	"SupplyRun/internal/service"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

var testProject = config.Project{
	APIKey:            "test_0123456789abcdefghijklmnopqrstuvwx",
	AuthDomain:        "localhost:0",
	ProjectID:         "supplyrun-test",
	StorageBucket:     "supplyrun-test.bucket",
	MessagingSenderID: "1000",
	AppID:             "1:1000:test",
}

type testEnv struct {
	router http.Handler
	cfg    *config.Config
	users  *service.UserService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: "file:" + uuid.NewString() + "?mode=memory&cache=shared"}
	db, err := gorm.Open(dial, &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.Migrate(db))
	return db
}

func newTestEnv(t *testing.T, tweak ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := &config.Config{
		AuthSecret:          "test-secret",
		AuthTokenTTL:        time.Hour,
		ExternalTokenSecret: "external-secret",
		ExternalIssuer:      "idp",
		ExternalAudience:    "supplyrun",
		MaxDocuments:        3,
		ListenPingInterval:  50 * time.Millisecond,
		Project:             testProject,
	}
	for _, f := range tweak {
		f(cfg)
	}

	db := newTestDB(t)
	logger := zap.NewNop().Sugar()
	users := service.NewUserService(repo.NewUserRepository(db), repo.NewSessionRepository(db), service.AuthOptionsFromConfig(cfg))
	docs := service.NewDocumentService(repo.NewDocumentRepository(db), hub.New(), cfg.MaxDocuments)
	h := handlers.NewHandler(users, docs, logger, cfg)
	return &testEnv{router: h.Router, cfg: cfg, users: users}
}

func projectHeaders(req *http.Request) {
	req.Header.Set(middleware.HeaderAPIKey, testProject.APIKey)
	req.Header.Set(middleware.HeaderProjectID, testProject.ProjectID)
	req.Header.Set(middleware.HeaderAppID, testProject.AppID)
}

// do sends a JSON request through the router. token, when set, is sent as a bearer token.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	projectHeaders(req)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) signUp(t *testing.T, email, password string) handlers.IdentityResponse {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var id handlers.IdentityResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &id))
	return id
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body.Error.Code
}
