package lists

import (
	"SupplyRun/internal/cli/session"
	"context"
)

// ConnState is the connectivity of a live feed.
type ConnState int32

const (
	Connecting ConnState = iota
	Live
	Reconnecting
	Closed
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Live:
		return "live"
	case Reconnecting:
		return "reconnecting"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Sink receives what a feed observes. Calls may block until the consumer
// is ready or the feed context ends.
type Sink interface {
	Snapshot(docs []Document)
	Connectivity(state ConnState)
}

// DocumentStore is the backend document API used by the bridge.
type DocumentStore interface {
	// Listen streams full snapshots of the collection at path into sink
	// until ctx ends or a terminal error occurs. It returns nil when ctx ends.
	Listen(ctx context.Context, id session.Identity, path string, sink Sink) error
	// Add writes one document. Fields named in serverTimestamps are set to
	// the commit time by the backend.
	Add(ctx context.Context, id session.Identity, path string, fields map[string]any, serverTimestamps []string) (string, error)
}
