package remote_test

import (
	"SupplyRun/internal/cli/lists"
	"SupplyRun/internal/cli/remote"
	"SupplyRun/internal/config"
	"SupplyRun/internal/handlers"
	"SupplyRun/internal/hub"
	"SupplyRun/internal/repo"
	"SupplyRun/internal/service"
	"net/http/httptest"
	"sync"
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
	AuthDomain:        "",
	ProjectID:         "supplyrun-test",
	StorageBucket:     "supplyrun-test.bucket",
	MessagingSenderID: "1000",
	AppID:             "1:1000:test",
}

// newBackend starts a real backend over an in-memory database and returns a
// client config pointing at it.
func newBackend(t *testing.T) (*httptest.Server, *config.Config) {
	t.Helper()
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: "file:" + uuid.NewString() + "?mode=memory&cache=shared"}
	db, err := gorm.Open(dial, &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.Migrate(db))

	serverCfg := &config.Config{
		AuthSecret:         "test-secret",
		AuthTokenTTL:       time.Hour,
		MaxDocuments:       10,
		ListenPingInterval: 50 * time.Millisecond,
		Project:            testProject,
	}
	users := service.NewUserService(repo.NewUserRepository(db), repo.NewSessionRepository(db), service.AuthOptionsFromConfig(serverCfg))
	docs := service.NewDocumentService(repo.NewDocumentRepository(db), hub.New(), serverCfg.MaxDocuments)
	h := handlers.NewHandler(users, docs, zap.NewNop().Sugar(), serverCfg)

	srv := httptest.NewServer(h.Router)
	t.Cleanup(srv.Close)

	return srv, &config.Config{
		ServerURL:        srv.URL,
		AuthURL:          srv.URL,
		ReconnectTimeout: 20 * time.Millisecond,
		Project:          testProject,
	}
}

func newClient(cfg *config.Config) *remote.Client {
	return remote.New(cfg, zap.NewNop().Sugar())
}

// recordingSink collects what a feed delivers.
type recordingSink struct {
	mu        sync.Mutex
	snapshots [][]lists.Document
	states    []lists.ConnState
}

func (s *recordingSink) Snapshot(docs []lists.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, docs)
}

func (s *recordingSink) Connectivity(st lists.ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func (s *recordingSink) last() ([]lists.Document, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return nil, 0
	}
	return s.snapshots[len(s.snapshots)-1], len(s.snapshots)
}

func (s *recordingSink) sawState(st lists.ConnState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, got := range s.states {
		if got == st {
			return true
		}
	}
	return false
}
