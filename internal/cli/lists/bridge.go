package lists

import (
	"SupplyRun/internal/cli/session"
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type subKey struct {
	uid  string
	path string
}

// Bridge maps the user's list collection onto ordered Records.
type Bridge struct {
	store  DocumentStore
	logger *zap.SugaredLogger

	mu   sync.Mutex
	subs map[subKey]*Subscription
	wg   sync.WaitGroup
}

// NewBridge creates a Bridge over store. logger may be nil.
func NewBridge(store DocumentStore, logger *zap.SugaredLogger) *Bridge {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Bridge{
		store:  store,
		logger: logger,
		subs:   make(map[subKey]*Subscription),
	}
}

// Observe opens a live subscription to the lists of id in scope. A second
// Observe for the same user and scope replaces the first one, which ends
// with ErrSuperseded.
func (b *Bridge) Observe(ctx context.Context, id session.Identity, scope Scope) (*Subscription, error) {
	if id.UID == "" {
		return nil, ErrNotSignedIn
	}
	if !scope.valid() {
		return nil, &ValidationError{Field: "scope", Reason: "must be a single path segment"}
	}

	path := scope.Path(id.UID)
	s := newSubscription(ctx, b, subKey{uid: id.UID, path: path})

	b.mu.Lock()
	old := b.subs[s.key]
	b.subs[s.key] = s
	b.wg.Add(1)
	b.mu.Unlock()

	if old != nil {
		b.logger.Debugw("subscription superseded", "uid", id.UID, "path", path)
		old.end(ErrSuperseded)
	}

	go s.pump()
	go func() {
		defer b.wg.Done()
		err := b.store.Listen(s.ctx, id, path, feedSink{s})
		if s.ctx.Err() != nil {
			s.end(nil)
			return
		}
		if err == nil {
			err = ErrFeedEnded
		}
		b.logger.Warnw("list feed ended", "uid", id.UID, "path", path, "error", err)
		s.end(err)
	}()
	return s, nil
}

// Create validates title and writes a new list into the default scope.
func (b *Bridge) Create(ctx context.Context, id session.Identity, title string) (string, error) {
	return b.CreateIn(ctx, id, DefaultScope, title)
}

// CreateIn writes a new list into scope. The title is trimmed and must not
// be empty. The creation time is assigned by the backend, so the list shows
// as pending until the commit is observed.
func (b *Bridge) CreateIn(ctx context.Context, id session.Identity, scope Scope, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !scope.valid() {
		return "", &ValidationError{Field: "scope", Reason: "must be a single path segment"}
	}
	if id.UID == "" {
		return "", ErrNotSignedIn
	}

	docID, err := b.store.Add(ctx, id, scope.Path(id.UID),
		map[string]any{FieldTitle: title},
		[]string{FieldCreatedAt},
	)
	if err != nil {
		var we *WriteError
		if errors.As(err, &we) {
			return "", we
		}
		return "", &WriteError{Reason: err}
	}
	return docID, nil
}

// Bind ends subscriptions whenever the session of m goes away or moves to
// another user. The returned func stops watching m.
func (b *Bridge) Bind(m *session.Manager) (unbind func()) {
	return m.ObserveSession(func(id *session.Identity) {
		uid := ""
		if id != nil {
			uid = id.UID
		}
		b.endWhere(func(s *Subscription) bool { return s.key.uid != uid }, ErrSessionEnded)
	})
}

// Close ends every subscription and waits for their feeds to stop.
func (b *Bridge) Close() {
	b.endWhere(func(*Subscription) bool { return true }, nil)
	b.wg.Wait()
}

func (b *Bridge) endWhere(match func(*Subscription) bool, cause error) {
	b.mu.Lock()
	var victims []*Subscription
	for _, s := range b.subs {
		if match(s) {
			victims = append(victims, s)
		}
	}
	b.mu.Unlock()
	for _, s := range victims {
		s.end(cause)
	}
}

func (b *Bridge) forget(s *Subscription) {
	b.mu.Lock()
	if b.subs[s.key] == s {
		delete(b.subs, s.key)
	}
	b.mu.Unlock()
}
