package lists

import (
	"context"
	"sync"
	"sync/atomic"
)

// Subscription is a live view of one list collection.
//
// Updates delivers the full ordered list after every change and is closed
// when the subscription ends. Only the latest snapshot is kept for a slow
// reader; intermediate ones are dropped.
type Subscription struct {
	bridge *Bridge
	key    subKey

	ctx    context.Context
	cancel context.CancelFunc

	in       chan []Document
	updates  chan []Record
	pumpDone chan struct{}
	state    atomic.Int32

	closeOnce sync.Once
	mu        sync.Mutex
	err       error

	// owned by the pump
	arrival map[string]uint64
	arrived uint64
}

func newSubscription(parent context.Context, b *Bridge, key subKey) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	return &Subscription{
		bridge:   b,
		key:      key,
		ctx:      ctx,
		cancel:   cancel,
		in:       make(chan []Document),
		updates:  make(chan []Record),
		pumpDone: make(chan struct{}),
		arrival:  make(map[string]uint64),
	}
}

// Updates returns the channel of ordered snapshots.
func (s *Subscription) Updates() <-chan []Record { return s.updates }

// State reports the connectivity of the underlying feed.
func (s *Subscription) State() ConnState {
	if s.ctx.Err() != nil {
		return Closed
	}
	return ConnState(s.state.Load())
}

// Err returns why the subscription ended, or nil while it is open or after
// a plain Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription. No snapshot is received from Updates after
// Close returns. Close is idempotent.
func (s *Subscription) Close() {
	s.end(nil)
}

func (s *Subscription) end(cause error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.err = cause
		s.mu.Unlock()
		s.cancel()
	})
	<-s.pumpDone
	s.bridge.forget(s)
}

// pump hands the newest snapshot to the reader. It is the only writer of
// updates, so closing the channel when it exits is safe.
func (s *Subscription) pump() {
	defer func() {
		s.state.Store(int32(Closed))
		close(s.updates)
		close(s.pumpDone)
	}()

	var (
		pending []Record
		has     bool
	)
	for {
		var out chan<- []Record
		if has {
			out = s.updates
		}
		select {
		case <-s.ctx.Done():
			return
		case docs := <-s.in:
			pending, has = s.materialize(docs), true
		case out <- pending:
			pending, has = nil, false
		}
	}
}

func (s *Subscription) materialize(docs []Document) []Record {
	recs := make([]Record, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if _, ok := s.arrival[d.ID]; !ok {
			s.arrived++
			s.arrival[d.ID] = s.arrived
		}
		seen[d.ID] = struct{}{}
		recs = append(recs, recordFromDocument(d))
	}
	for id := range s.arrival {
		if _, ok := seen[id]; !ok {
			delete(s.arrival, id)
		}
	}
	orderRecords(recs, s.arrival)
	return recs
}

type feedSink struct{ s *Subscription }

func (f feedSink) Snapshot(docs []Document) {
	select {
	case f.s.in <- docs:
	case <-f.s.ctx.Done():
	}
}

func (f feedSink) Connectivity(state ConnState) {
	if f.s.ctx.Err() == nil {
		f.s.state.Store(int32(state))
	}
}
