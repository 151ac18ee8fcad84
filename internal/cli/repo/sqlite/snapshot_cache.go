// Package sqlite keeps the last observed lists of a user on disk, so they
// can be shown while the backend is unreachable.
package sqlite

import (
	"SupplyRun/internal/cli/lists"
	"SupplyRun/internal/cli/repo"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned by Load when nothing was saved for the scope.
var ErrNoSnapshot = errors.New("no cached snapshot")

// SnapshotCache is the per-user cache database.
type SnapshotCache struct {
	db *sql.DB
}

var _ repo.SnapshotStore = (*SnapshotCache)(nil)

var uidRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// OpenForUser opens (and creates if needed) the cache file of uid under
// base and migrates it. The second value is the database path.
func OpenForUser(base, uid string) (*SnapshotCache, string, error) {
	if !uidRe.MatchString(uid) {
		return nil, "", errors.New("invalid uid for user cache")
	}
	if base == "" {
		cfgDir, err := os.UserConfigDir()
		if err != nil {
			return nil, "", err
		}
		base = filepath.Join(cfgDir, "SupplyRun", "users")
	}
	dir := filepath.Join(base, uid)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", err
	}
	dbPath := filepath.Join(dir, "cache.sqlite")
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, "", err
	}
	c := &SnapshotCache{db: db}
	if err := c.Migrate(); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	return c, dbPath, nil
}

// Close closes the database.
func (c *SnapshotCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Migrate makes sure the tables exist.
func (c *SnapshotCache) Migrate() error {
	_, err := c.db.Exec(initialDDL())
	return err
}

// Save replaces the cached snapshot of scope with recs, in their order.
func (c *SnapshotCache) Save(ctx context.Context, scope lists.Scope, recs []lists.Record, savedAt time.Time) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE scope = ?`, scope.Collection); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records(scope, position, id, title, created_at) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range recs {
		var created sql.NullInt64
		if r.CreatedAt != nil {
			created = sql.NullInt64{Int64: r.CreatedAt.UnixNano(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, scope.Collection, i, r.ID, r.Title, created); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots(scope, saved_at) VALUES(?, ?)
        ON CONFLICT(scope) DO UPDATE SET saved_at = excluded.saved_at`, scope.Collection, savedAt.UnixNano()); err != nil {
		return err
	}
	return tx.Commit()
}

// Load returns the cached records of scope in saved order and when they were saved.
func (c *SnapshotCache) Load(ctx context.Context, scope lists.Scope) ([]lists.Record, time.Time, error) {
	var savedAt int64
	err := c.db.QueryRowContext(ctx, `SELECT saved_at FROM snapshots WHERE scope = ?`, scope.Collection).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	rows, err := c.db.QueryContext(ctx, `SELECT id, title, created_at FROM records WHERE scope = ? ORDER BY position`, scope.Collection)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	var res []lists.Record
	for rows.Next() {
		var (
			r       lists.Record
			created sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Title, &created); err != nil {
			return nil, time.Time{}, err
		}
		if created.Valid {
			t := time.Unix(0, created.Int64).UTC()
			r.CreatedAt = &t
		}
		res = append(res, r)
	}
	return res, time.Unix(0, savedAt).UTC(), rows.Err()
}
