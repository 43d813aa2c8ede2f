// Package querycache holds fetched query results for the lifetime of the
// process. Reads are deduplicated per key, results are invalidated by tag,
// and optimistic edits are kept as undoable layers over the fetched value.
package querycache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/sync/singleflight"
)

// maxSupersededRetries bounds how often a reader follows an invalidation
// that superseded the fetch it was waiting on.
const maxSupersededRetries = 3

// Store is the single source of truth for query results.
//
// Thread Safety:
//
//	Store is safe for concurrent use. Subscriber callbacks run outside
//	the store lock and may be invoked from several goroutines.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	tags    map[Tag]map[Key]struct{}
	serial  uint64
	nextID  uint64

	flight singleflight.Group
	bg     conc.WaitGroup

	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithMetrics sets the collectors updated by the store.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[Key]*entry),
		tags:    make(map[Tag]map[Key]struct{}),
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// entry is the per-key state machine:
//
//	uninitialized -> loading -> succeeded | failed
//	succeeded | failed -> (invalidate) stale -> refetch -> succeeded | failed
//
// value is the fold of base through the patch layers, in order.
type entry struct {
	key    Key
	serial uint64
	def    Definition

	status    Status
	base      any
	value     any
	previous  any
	err       error
	stale     bool
	updatedAt time.Time

	generation uint64
	version    uint64
	fetching   bool
	fetchGen   uint64
	fetchSeq   uint64

	layers []*layer
	subs   map[uint64]*subscription
}

func (e *entry) snapshot() Snapshot {
	snap := Snapshot{
		Key:        e.key,
		Status:     e.status,
		Err:        e.err,
		Stale:      e.stale,
		Fetching:   e.fetching,
		Generation: e.generation,
		Version:    e.version,
		Previous:   e.previous,
		UpdatedAt:  e.updatedAt,
	}
	if e.status == StatusSucceeded {
		snap.Value = e.value
	}
	return snap
}

func (e *entry) recompute() {
	v := e.base
	for _, l := range e.layers {
		v = l.apply(v)
	}
	e.value = v
}

// touch records a transition and returns the deliveries it causes.
func (e *entry) touch() []delivery {
	e.version++
	if len(e.subs) == 0 {
		return nil
	}
	snap := e.snapshot()
	ds := make([]delivery, 0, len(e.subs))
	for _, sub := range e.subs {
		ds = append(ds, delivery{sub: sub, snap: snap})
	}
	return ds
}

func (e *entry) fresh() bool {
	return e.status == StatusSucceeded && !e.stale
}

// flightKey identifies the current fetch of e. Every started fetch gets
// a new key, so a late joiner can never attach to a finished flight.
func (e *entry) flightKey() string {
	return fmt.Sprintf("%d/%d", e.serial, e.fetchSeq)
}

// fetchOutcome is the shared result of one underlying fetch.
type fetchOutcome struct {
	snapshot   Snapshot
	superseded bool
}

// entryLocked returns the entry for def.Key, creating it on first use,
// and records def's fetcher and tags.
func (s *Store) entryLocked(def Definition) *entry {
	e, ok := s.entries[def.Key]
	if !ok {
		s.serial++
		e = &entry{
			key:     def.Key,
			serial:  s.serial,
			status:  StatusUninitialized,
			version: 1,
			subs:    make(map[uint64]*subscription),
		}
		s.entries[def.Key] = e
	}
	if def.Fetch != nil {
		e.def = def
	}
	for _, tag := range def.Tags {
		keys, ok := s.tags[tag]
		if !ok {
			keys = make(map[Key]struct{})
			s.tags[tag] = keys
		}
		keys[def.Key] = struct{}{}
	}
	return e
}

// GetOrFetch returns the cached result for def when it is succeeded and
// not stale. Otherwise it starts a fetch, or joins the one already in
// flight for the same key and generation, and waits for it.
//
// The fetch itself is detached from ctx: a caller giving up returns
// ctx.Err() but never cancels the request other callers share.
// A failed fetch returns the failed snapshot together with its error.
func (s *Store) GetOrFetch(ctx context.Context, def Definition) (Snapshot, error) {
	if def.Fetch == nil {
		return Snapshot{}, fmt.Errorf("query %s: %w", def.Key, ErrNoFetcher)
	}

	for attempt := 0; ; attempt++ {
		s.mu.Lock()
		e := s.entryLocked(def)
		if e.fresh() {
			snap := e.snapshot()
			s.mu.Unlock()
			s.metrics.hit(def.Key)
			return snap, nil
		}
		ch, ds := s.startFetchLocked(ctx, e)
		s.mu.Unlock()
		notify(ds)

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case res = <-ch:
		}
		if res.Err != nil {
			return Snapshot{}, res.Err
		}

		out := res.Val.(fetchOutcome)
		if out.superseded && attempt < maxSupersededRetries {
			continue
		}
		if out.snapshot.Status == StatusFailed {
			return out.snapshot, out.snapshot.Err
		}
		return out.snapshot, nil
	}
}

// startFetchLocked moves e into its fetching state, unless a fetch for
// the current generation is already running, and returns the channel
// of the shared flight.
func (s *Store) startFetchLocked(ctx context.Context, e *entry) (<-chan singleflight.Result, []delivery) {
	gen := e.generation
	var ds []delivery

	if e.fetching && e.fetchGen == gen {
		s.metrics.joined(e.key)
	} else {
		e.fetching = true
		e.fetchGen = gen
		e.fetchSeq++
		if e.status != StatusSucceeded {
			e.status = StatusLoading
			e.err = nil
			e.stale = false
		}
		ds = e.touch()
		s.logger.Debug("query fetch started", "key", e.key, "generation", gen)
	}

	fetch := e.def.Fetch
	fctx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(e.flightKey(), func() (interface{}, error) {
		v, err := fetch(fctx)
		return s.complete(e, gen, v, err), nil
	})
	return ch, ds
}

// complete commits the response of a fetch started under gen, or
// discards it when the entry was invalidated or reset meanwhile.
func (s *Store) complete(e *entry, gen uint64, v any, err error) fetchOutcome {
	s.mu.Lock()

	if s.entries[e.key] != e || e.generation != gen {
		if e.fetchGen == gen {
			e.fetching = false
		}
		s.mu.Unlock()

		s.metrics.fetched(e.key, outcomeDiscarded)
		s.logger.Debug("query response discarded", "key", e.key, "generation", gen)

		snap := Snapshot{Key: e.key, Generation: gen, Stale: true}
		if err != nil {
			snap.Status = StatusFailed
			snap.Err = err
		} else {
			snap.Status = StatusSucceeded
			snap.Value = v
		}
		return fetchOutcome{snapshot: snap, superseded: true}
	}

	e.fetching = false
	e.stale = false
	e.updatedAt = s.now()

	if err != nil {
		if e.status == StatusSucceeded {
			e.previous = e.value
		}
		e.status = StatusFailed
		e.err = err
		e.value = nil
		s.metrics.fetched(e.key, outcomeFailure)
		s.logger.Warn("query fetch failed", "key", e.key, "error", err)
	} else {
		e.base = v
		e.layers = pendingLayers(e.layers)
		e.status = StatusSucceeded
		e.err = nil
		e.recompute()
		e.previous = e.value
		s.metrics.fetched(e.key, outcomeSuccess)
		s.logger.Debug("query fetch succeeded", "key", e.key, "generation", gen)
	}

	ds := e.touch()
	snap := e.snapshot()
	s.mu.Unlock()

	notify(ds)
	return fetchOutcome{snapshot: snap}
}

// Invalidate marks every result tagged with any of tags as stale and
// bumps its generation, so responses already in flight are discarded.
// Keys with active subscribers are refetched in the background; the
// rest are refetched on their next read.
func (s *Store) Invalidate(tags ...Tag) {
	s.mu.Lock()

	seen := make(map[Key]bool)
	var ds []delivery
	var eager []Definition

	for _, tag := range tags {
		for key := range s.tags[tag] {
			if seen[key] {
				continue
			}
			seen[key] = true

			e, ok := s.entries[key]
			if !ok || e.status == StatusUninitialized {
				continue
			}

			e.generation++
			if e.status != StatusLoading {
				e.stale = true
			}
			ds = append(ds, e.touch()...)
			s.metrics.invalidated(key)

			if len(e.subs) > 0 && e.def.Fetch != nil {
				eager = append(eager, e.def)
			}
		}
	}
	s.mu.Unlock()

	s.logger.Debug("queries invalidated", "tags", tags, "keys", len(seen), "refetching", len(eager))
	notify(ds)

	for _, def := range eager {
		s.refetch(def)
	}
}

// Subscribe registers fn for every transition of def's result and
// delivers the current snapshot immediately. If the result is not fresh
// and nothing is in flight, a fetch is started in the background.
//
// After unsubscribe returns, fn is no longer called; fetches it
// triggered keep running and still populate the cache.
func (s *Store) Subscribe(def Definition, fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	e := s.entryLocked(def)
	s.nextID++
	sub := newSubscription(s.nextID, fn)
	e.subs[sub.id] = sub
	snap := e.snapshot()
	inFlight := e.fetching && e.fetchGen == e.generation
	needFetch := !e.fresh() && !inFlight && e.def.Fetch != nil
	s.mu.Unlock()

	sub.deliver(snap)
	if needFetch {
		s.refetch(def)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			s.mu.Lock()
			delete(e.subs, sub.id)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscribers of key.
func (s *Store) Subscribers(key Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		return len(e.subs)
	}
	return 0
}

// Peek returns the current result for key without fetching.
func (s *Store) Peek(key Key) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Snapshot{Key: key, Status: StatusUninitialized}, false
	}
	return e.snapshot(), true
}

// Reset drops every result, tag and patch. Subscribers are detached and
// responses still in flight are discarded when they arrive.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		for _, sub := range e.subs {
			sub.active.Store(false)
		}
	}
	s.entries = make(map[Key]*entry)
	s.tags = make(map[Tag]map[Key]struct{})
}

// Wait blocks until all background refetches have finished.
func (s *Store) Wait() {
	s.bg.Wait()
}

func (s *Store) refetch(def Definition) {
	s.bg.Go(func() {
		_, _ = s.GetOrFetch(context.Background(), def)
	})
}
