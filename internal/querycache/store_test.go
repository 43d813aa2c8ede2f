package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tagList  Tag = "todos:LIST"
	tagStats Tag = "todos:STATS"
)

// gatedFetcher counts calls and, while gated, blocks each call until
// release is called. result maps the call number (1-based) to a value.
type gatedFetcher struct {
	calls  atomic.Int32
	mu     sync.Mutex
	gate   chan struct{}
	result func(call int32) (any, error)
}

func newGatedFetcher(result func(call int32) (any, error)) *gatedFetcher {
	return &gatedFetcher{result: result}
}

func (f *gatedFetcher) hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

func (f *gatedFetcher) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

func (f *gatedFetcher) fetch(ctx context.Context) (any, error) {
	n := f.calls.Add(1)
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.result(n)
}

func valueFetcher() *gatedFetcher {
	return newGatedFetcher(func(call int32) (any, error) {
		return fmt.Sprintf("v%d", call), nil
	})
}

func def(key Key, f *gatedFetcher, tags ...Tag) Definition {
	return Definition{Key: key, Tags: tags, Fetch: f.fetch}
}

func newTestStore() (*Store, *Metrics) {
	m := NewMetrics(prometheus.NewRegistry())
	return New(WithMetrics(m)), m
}

func TestNewKey_IsCanonical(t *testing.T) {
	a := NewKey("todos.page", map[string]any{"page": 1, "limit": 10})
	b := NewKey("todos.page", map[string]any{"limit": 10, "page": 1})

	assert.Equal(t, a, b)
	assert.Equal(t, Key("todos.page?limit=10&page=1"), a)
	assert.Equal(t, "todos.page", a.Op())
	assert.Equal(t, Key("todos.all"), NewKey("todos.all", nil))
}

func TestGetOrFetch_DeduplicatesConcurrentReads(t *testing.T) {
	s, m := newTestStore()
	f := valueFetcher()
	f.hold()
	d := def("todos.all", f, tagList)

	const readers = 8
	var wg sync.WaitGroup
	results := make([]Snapshot, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := s.GetOrFetch(context.Background(), d)
			assert.NoError(t, err)
			results[i] = snap
		}(i)
	}

	require.Eventually(t, func() bool {
		return promtest.ToFloat64(m.dedupJoins.WithLabelValues("todos.all")) == readers-1
	}, time.Second, 5*time.Millisecond)

	f.release()
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	for _, snap := range results {
		assert.Equal(t, StatusSucceeded, snap.Status)
		assert.Equal(t, "v1", snap.Value)
	}
}

func TestGetOrFetch_ServesFreshResultFromCache(t *testing.T) {
	s, m := newTestStore()
	f := valueFetcher()
	d := def("todos.all", f)

	_, err := s.GetOrFetch(context.Background(), d)
	require.NoError(t, err)
	snap, err := s.GetOrFetch(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, "v1", snap.Value)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, 1.0, promtest.ToFloat64(m.hits.WithLabelValues("todos.all")))
}

func TestGetOrFetch_FailureLeavesNoValue(t *testing.T) {
	s, _ := newTestStore()
	boom := errors.New("boom")
	f := newGatedFetcher(func(call int32) (any, error) {
		if call == 1 {
			return nil, boom
		}
		return "ok", nil
	})
	d := def("todos.all", f)

	snap, err := s.GetOrFetch(context.Background(), d)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Nil(t, snap.Value)
	assert.Nil(t, snap.Previous)

	snap, err = s.GetOrFetch(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "ok", snap.Value)
	assert.Nil(t, snap.Err)
}

func TestGetOrFetch_MissingFetcher(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.GetOrFetch(context.Background(), Definition{Key: "todos.all"})
	assert.ErrorIs(t, err, ErrNoFetcher)
}

func TestGetOrFetch_CallerCancellationDoesNotCancelSharedFetch(t *testing.T) {
	s, _ := newTestStore()
	var sawCancel atomic.Bool
	gate := make(chan struct{})
	d := Definition{
		Key: "todos.all",
		Fetch: func(ctx context.Context) (any, error) {
			<-gate
			if ctx.Err() != nil {
				sawCancel.Store(true)
			}
			return "v", nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := s.GetOrFetch(ctx, d)
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		snap, _ := s.Peek("todos.all")
		return snap.Fetching
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(gate)
	snap, err := s.GetOrFetch(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "v", snap.Value)
	assert.False(t, sawCancel.Load())
}

func TestInvalidate_LazyWithoutSubscribers(t *testing.T) {
	s, m := newTestStore()
	f := valueFetcher()
	d := def("todos.all", f, tagList)

	_, err := s.GetOrFetch(context.Background(), d)
	require.NoError(t, err)

	s.Invalidate(tagList)
	s.Wait()

	snap, _ := s.Peek("todos.all")
	assert.True(t, snap.Stale)
	assert.Equal(t, StatusSucceeded, snap.Status)
	assert.Equal(t, "v1", snap.Value, "stale results stay displayable")
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, int32(1), f.calls.Load(), "no refetch until next read")

	snap, err = s.GetOrFetch(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "v2", snap.Value)
	assert.False(t, snap.Stale)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.invalidations.WithLabelValues("todos.all")))
}

func TestInvalidate_OnlyTouchesTaggedKeys(t *testing.T) {
	s, _ := newTestStore()
	list := valueFetcher()
	stats := valueFetcher()

	_, err := s.GetOrFetch(context.Background(), def("todos.all", list, tagList))
	require.NoError(t, err)
	_, err = s.GetOrFetch(context.Background(), def("todos.stats", stats, tagStats))
	require.NoError(t, err)

	s.Invalidate(tagStats)

	listSnap, _ := s.Peek("todos.all")
	statsSnap, _ := s.Peek("todos.stats")
	assert.False(t, listSnap.Stale)
	assert.True(t, statsSnap.Stale)
}

func TestInvalidate_EagerRefetchForSubscribers(t *testing.T) {
	s, _ := newTestStore()
	f := valueFetcher()
	d := def("todos.all", f, tagList)

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := s.Subscribe(d, func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, snap)
	})
	defer unsubscribe()
	s.Wait()

	s.Invalidate(tagList)
	s.Wait()

	assert.Equal(t, int32(2), f.calls.Load())
	snap, _ := s.Peek("todos.all")
	assert.Equal(t, "v2", snap.Value)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	last := seen[len(seen)-1]
	assert.Equal(t, "v2", last.Value)
	assert.False(t, last.Stale)
}

func TestInvalidate_DiscardsSupersededInFlightResponse(t *testing.T) {
	s, m := newTestStore()
	f := valueFetcher()
	f.hold()
	d := def("todos.all", f, tagList)

	type result struct {
		snap Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := s.GetOrFetch(context.Background(), d)
		done <- result{snap, err}
	}()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Invalidate(tagList)
	f.release()

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "v2", res.snap.Value, "reader follows the invalidation to the newer fetch")
	assert.Equal(t, 1.0, promtest.ToFloat64(m.fetches.WithLabelValues("todos.all", outcomeDiscarded)))

	snap, _ := s.Peek("todos.all")
	assert.Equal(t, "v2", snap.Value)
	assert.False(t, snap.Fetching)
}

func TestRefetchFailure_KeepsLastKnownGoodAsPrevious(t *testing.T) {
	s, _ := newTestStore()
	boom := errors.New("offline")
	f := newGatedFetcher(func(call int32) (any, error) {
		if call == 2 {
			return nil, boom
		}
		return fmt.Sprintf("v%d", call), nil
	})
	d := def("todos.all", f, tagList)

	_, err := s.GetOrFetch(context.Background(), d)
	require.NoError(t, err)

	s.Invalidate(tagList)
	snap, err := s.GetOrFetch(context.Background(), d)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, StatusFailed, snap.Status)
	assert.Nil(t, snap.Value)
	assert.Equal(t, "v1", snap.Previous)
}

func TestSubscribe_StartsFetchAndCountsSubscribers(t *testing.T) {
	s, _ := newTestStore()
	f := valueFetcher()
	d := def("todos.all", f)

	var first Snapshot
	var once sync.Once
	unsubscribe := s.Subscribe(d, func(snap Snapshot) {
		once.Do(func() { first = snap })
	})
	s.Wait()

	assert.Equal(t, StatusUninitialized, first.Status)
	assert.Equal(t, 1, s.Subscribers("todos.all"))

	snap, _ := s.Peek("todos.all")
	assert.Equal(t, "v1", snap.Value)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, s.Subscribers("todos.all"))
}

func TestSubscribe_UnsubscribedSinkIsNoOp(t *testing.T) {
	s, _ := newTestStore()
	f := valueFetcher()
	f.hold()
	d := def("todos.all", f)

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := s.Subscribe(d, func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, snap)
	})

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	unsubscribe()

	f.release()
	s.Wait()

	mu.Lock()
	for _, snap := range seen {
		assert.NotEqual(t, StatusSucceeded, snap.Status, "no delivery after unsubscribe")
	}
	mu.Unlock()
	snap, _ := s.Peek("todos.all")
	assert.Equal(t, "v1", snap.Value, "the fetch still populates the cache")
}

func TestReset_DropsResultsAndDiscardsInFlight(t *testing.T) {
	s, _ := newTestStore()
	f := valueFetcher()
	d := def("todos.all", f, tagList)

	_, err := s.GetOrFetch(context.Background(), d)
	require.NoError(t, err)

	s.Reset()

	_, ok := s.Peek("todos.all")
	assert.False(t, ok)

	snap, err := s.GetOrFetch(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "v2", snap.Value)
}

func TestTypedQuery(t *testing.T) {
	s, _ := newTestStore()
	q := Query[[]int]{
		Key: "numbers",
		Fetch: func(context.Context) ([]int, error) {
			return []int{1, 2, 3}, nil
		},
	}

	got, err := Fetch(context.Background(), s, q)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	snap, _ := s.Peek("numbers")
	v, ok := ValueOf[[]int](snap)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, v)
}
