// Package bootstrap wires the client components for one CLI invocation.
package bootstrap

import (
	"SupplyRun/internal/cli/lists"
	"SupplyRun/internal/cli/remote"
	"SupplyRun/internal/cli/repo"
	fsrepo "SupplyRun/internal/cli/repo/fs"
	reposqlite "SupplyRun/internal/cli/repo/sqlite"
	"SupplyRun/internal/cli/session"
	"SupplyRun/internal/config"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// App holds the wired client.
type App struct {
	Config  *config.Config
	Logger  *zap.SugaredLogger
	Remote  *remote.Client
	Session *session.Manager
	Lists   *lists.Bridge
}

// NewLogger returns a development logger on stderr when verbose is set and
// a no-op logger otherwise.
func NewLogger(verbose bool) *zap.SugaredLogger {
	if !verbose {
		return zap.NewNop().Sugar()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// OpenApp wires the backend client, the session manager and the lists
// bridge, and restores the persisted session. A session that cannot be
// restored leaves the client signed out. cleanup must be called when the
// command is done.
func OpenApp(ctx context.Context, cfg *config.Config) (*App, func()) {
	logger := NewLogger(cfg.Verbose)

	rc := remote.New(cfg, logger)
	mgr := session.NewManager(rc, fsrepo.SessionStore{}, logger)
	rc.OnUnauthenticated(mgr.Invalidate)

	if err := mgr.Restore(ctx); err != nil {
		logger.Warnw("stored session not restored", "error", err)
	}

	bridge := lists.NewBridge(rc, logger)
	unbind := bridge.Bind(mgr)

	app := &App{Config: cfg, Logger: logger, Remote: rc, Session: mgr, Lists: bridge}
	cleanup := func() {
		unbind()
		bridge.Close()
		_ = logger.Sync()
	}
	return app, cleanup
}

// OpenCache opens the snapshot cache of uid.
func (a *App) OpenCache(uid string) (repo.SnapshotStore, error) {
	c, _, err := reposqlite.OpenForUser(a.Config.ClientDBPath, uid)
	if err != nil {
		return nil, fmt.Errorf("open user cache: %w", err)
	}
	return c, nil
}
