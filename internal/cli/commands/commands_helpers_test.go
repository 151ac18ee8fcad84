package commands

import (
	"SupplyRun/internal/config"
	"SupplyRun/internal/handlers"
	"SupplyRun/internal/hub"
	"SupplyRun/internal/repo"
	"SupplyRun/internal/service"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// withTempConfig points the user config directory at a temp dir so the
// session file and caches stay inside the test.
func withTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("APPDATA", dir)
	} else {
		t.Setenv("XDG_CONFIG_HOME", dir)
	}
	_ = os.MkdirAll(filepath.Join(dir, "db"), 0o700)
	return dir
}

var testProject = config.Project{
	APIKey:            "test_0123456789abcdefghijklmnopqrstuvwx",
	ProjectID:         "supplyrun-test",
	StorageBucket:     "supplyrun-test.bucket",
	MessagingSenderID: "1000",
	AppID:             "1:1000:test",
}

// startBackend runs a real backend on an in-memory database and returns
// the client config for it.
func startBackend(t *testing.T, dir string) (*httptest.Server, *config.Config) {
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
		MaxDocuments:       50,
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
		ClientDBPath:     filepath.Join(dir, "db"),
		ReconnectTimeout: 20 * time.Millisecond,
		Project:          testProject,
	}
}
