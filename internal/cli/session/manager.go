package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Manager holds the current identity and notifies observers of every change.
//
// All notifications are delivered in the order the transitions happened.
// A transition triggered from inside a callback is queued and delivered
// after the running callbacks finish, never recursively.
type Manager struct {
	provider IdentityProvider
	store    Store
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu        sync.Mutex
	current   *Identity
	seq       uint64
	observers []*observer
	queue     []event
	draining  bool
}

type observer struct {
	fn      func(*Identity)
	since   uint64
	removed atomic.Bool
}

// event is one pending notification. A targeted event goes only to its
// observer; a broadcast goes to every observer registered before seq.
type event struct {
	seq    uint64
	id     *Identity
	target *observer
}

// NewManager creates a Manager. store and logger may be nil.
func NewManager(provider IdentityProvider, store Store, logger *zap.SugaredLogger) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{
		provider: provider,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Current returns a copy of the current identity, or nil when signed out.
func (m *Manager) Current() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.clone()
}

// ObserveSession registers fn for identity changes. fn is called once with
// the identity current at registration, then once per transition. The
// returned cancel is idempotent and may be called from inside fn; once it
// returns no new invocation of fn starts.
func (m *Manager) ObserveSession(fn func(*Identity)) (cancel func()) {
	o := &observer{fn: fn}

	m.mu.Lock()
	o.since = m.seq
	m.observers = append(m.observers, o)
	m.queue = append(m.queue, event{seq: m.seq, id: m.current.clone(), target: o})
	m.drainLocked()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.removed.Store(true)
			m.mu.Lock()
			for i, cur := range m.observers {
				if cur == o {
					m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
					break
				}
			}
			m.mu.Unlock()
		})
	}
}

// SignInWithPassword authenticates an existing account.
func (m *Manager) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	id, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.establish(id), nil
}

// SignUpWithPassword creates an account and signs it in.
func (m *Manager) SignUpWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	id, err := m.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.establish(id), nil
}

// SignInWithExternalCredential exchanges an identity token of the external
// provider for a session.
func (m *Manager) SignInWithExternalCredential(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	id, err := m.provider.ExchangeExternal(ctx, token)
	if err != nil {
		return nil, err
	}
	return m.establish(id), nil
}

// SignOut ends the current session. The backend revocation is best effort:
// its failure is logged and the local session is cleared regardless.
// Signing out while signed out does nothing.
func (m *Manager) SignOut(ctx context.Context) error {
	cur := m.Current()
	if cur == nil {
		return nil
	}
	if err := m.provider.SignOut(ctx, *cur); err != nil {
		m.logger.Warnw("sign out: revocation failed", "uid", cur.UID, "error", err)
	}
	m.clearStore()
	m.transition(func(*Identity) (*Identity, bool) { return nil, true })
	return nil
}

// Invalidate drops the session of uid after the backend rejected its token.
// It does nothing when uid is not the current identity.
func (m *Manager) Invalidate(uid string) {
	dropped := m.transition(func(cur *Identity) (*Identity, bool) {
		return nil, cur != nil && cur.UID == uid
	})
	if dropped {
		m.logger.Infow("session invalidated", "uid", uid)
		m.clearStore()
	}
}

// Restore loads a persisted identity and checks it with the backend. A
// rejected session is discarded. When the backend is unreachable the stored
// identity is kept so cached data stays readable.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	stored, err := m.store.Load()
	if err != nil || stored == nil {
		return err
	}
	if stored.Expired(m.now()) {
		m.clearStore()
		return nil
	}

	verified, err := m.provider.Verify(ctx, *stored)
	switch {
	case errors.Is(err, ErrNetworkUnavailable):
		m.logger.Infow("restore: backend unreachable, keeping stored session", "uid", stored.UID)
		verified = stored
	case err != nil:
		m.logger.Infow("restore: stored session rejected", "uid", stored.UID, "error", err)
		m.clearStore()
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrInvalidToken) {
			return nil
		}
		return err
	}
	if verified.Token == "" {
		verified.Token = stored.Token
	}
	m.transition(func(*Identity) (*Identity, bool) { return verified.clone(), true })
	return nil
}

func (m *Manager) establish(id *Identity) *Identity {
	id = id.clone()
	if m.store != nil {
		if err := m.store.Save(*id); err != nil {
			m.logger.Warnw("session not persisted", "uid", id.UID, "error", err)
		}
	}
	m.transition(func(*Identity) (*Identity, bool) { return id.clone(), true })
	return id.clone()
}

func (m *Manager) clearStore() {
	if m.store == nil {
		return
	}
	if err := m.store.Clear(); err != nil {
		m.logger.Warnw("stored session not cleared", "error", err)
	}
}

// transition applies next under the lock and queues a broadcast when it
// reports a change.
func (m *Manager) transition(next func(cur *Identity) (*Identity, bool)) bool {
	m.mu.Lock()
	id, ok := next(m.current)
	if !ok {
		m.mu.Unlock()
		return false
	}
	m.current = id
	m.seq++
	m.queue = append(m.queue, event{seq: m.seq, id: id.clone()})
	m.drainLocked()
	return true
}

// drainLocked delivers queued events. It must be called with m.mu held and
// returns with it released. Only one goroutine drains at a time; others
// leave their events to it.
func (m *Manager) drainLocked() {
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true
	for len(m.queue) > 0 {
		ev := m.queue[0]
		m.queue = m.queue[1:]

		var targets []*observer
		if ev.target != nil {
			targets = []*observer{ev.target}
		} else {
			for _, o := range m.observers {
				if o.since < ev.seq {
					targets = append(targets, o)
				}
			}
		}

		m.mu.Unlock()
		for _, o := range targets {
			if !o.removed.Load() {
				o.fn(ev.id.clone())
			}
		}
		m.mu.Lock()
	}
	m.draining = false
	m.mu.Unlock()
}
