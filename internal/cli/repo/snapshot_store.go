package repo

import (
	"SupplyRun/internal/cli/lists"
	"context"
	"time"
)

// SnapshotStore is the local copy of the last lists observed for a user.
type SnapshotStore interface {
	Save(ctx context.Context, scope lists.Scope, recs []lists.Record, savedAt time.Time) error
	Load(ctx context.Context, scope lists.Scope) ([]lists.Record, time.Time, error)
	Close() error
}
