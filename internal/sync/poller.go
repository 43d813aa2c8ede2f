// Package sync keeps the terminal UI current: it forwards cache
// transitions of watched queries to Bubble Tea as messages and refreshes
// them on an interval or on demand.
package sync

import (
	"log/slog"
	"sort"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoboard/internal/querycache"
)

// QueryMsg is a tea.Msg carrying the latest snapshot of every watched
// query that changed since the previous message, ordered by key.
type QueryMsg struct {
	Snapshots []querycache.Snapshot
}

// Find returns the snapshot for key, if the message carries one.
func (m QueryMsg) Find(key querycache.Key) (querycache.Snapshot, bool) {
	for _, s := range m.Snapshots {
		if s.Key == key {
			return s, true
		}
	}
	return querycache.Snapshot{}, false
}

// Poller bridges store subscriptions to the Bubble Tea runtime and
// invalidates its tags periodically.
type Poller struct {
	store    *querycache.Store
	tags     []querycache.Tag
	interval time.Duration
	logger   *slog.Logger

	mu          gosync.Mutex
	pending     map[querycache.Key]querycache.Snapshot
	seen        map[querycache.Key]uint64
	unsubs      []func()
	lastRefresh time.Time
	running     bool
	stopped     bool

	signal    chan struct{}
	triggerCh chan struct{}
	stopCh    chan struct{}
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the automatic refresh interval. Zero disables it.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithTags sets the tags invalidated on every refresh.
func WithTags(tags ...querycache.Tag) Option {
	return func(p *Poller) {
		p.tags = append(p.tags, tags...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = l
	}
}

// New creates a Poller over the given store.
func New(s *querycache.Store, opts ...Option) *Poller {
	p := &Poller{
		store:     s,
		logger:    slog.New(slog.DiscardHandler),
		pending:   make(map[querycache.Key]querycache.Snapshot),
		seen:      make(map[querycache.Key]uint64),
		signal:    make(chan struct{}, 1),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Watch subscribes to def. Every transition is forwarded in the next
// QueryMsg; transitions arriving faster than the UI reads are coalesced
// to the latest per key.
func (p *Poller) Watch(def querycache.Definition) {
	unsubscribe := p.store.Subscribe(def, p.deliver)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		unsubscribe()
		return
	}
	p.unsubs = append(p.unsubs, unsubscribe)
}

// Start launches the refresh loop and returns a command that waits for
// the first QueryMsg.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the refresh loop and detaches every watched query.
// Responses still in flight are dropped.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.running = false
	unsubs := p.unsubs
	p.unsubs = nil
	p.mu.Unlock()

	close(p.stopCh)
	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
}

// RefreshAll triggers an immediate refresh of every watched query.
func (p *Poller) RefreshAll() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already queued.
	}
	return nil
}

// LastRefresh returns when the tags were last invalidated.
func (p *Poller) LastRefresh() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRefresh
}

// WaitForNextResult returns a tea.Cmd that waits for the next QueryMsg.
// Call it after handling a QueryMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}

func (p *Poller) loop() {
	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-tick:
			p.refresh("interval")
		case <-p.triggerCh:
			p.refresh("manual")
		}
	}
}

func (p *Poller) refresh(reason string) {
	p.mu.Lock()
	p.lastRefresh = time.Now()
	p.mu.Unlock()

	p.logger.Debug("refreshing queries", "reason", reason, "tags", p.tags)
	p.store.Invalidate(p.tags...)
}

// deliver records snap and wakes the waiting command. Callbacks may
// race, so a snapshot older than one already seen is dropped.
func (p *Poller) deliver(snap querycache.Snapshot) {
	p.mu.Lock()
	if snap.Version <= p.seen[snap.Key] {
		p.mu.Unlock()
		return
	}
	p.seen[snap.Key] = snap.Version
	p.pending[snap.Key] = snap
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-p.stopCh:
			return nil
		case <-p.signal:
		}

		p.mu.Lock()
		msg := QueryMsg{Snapshots: make([]querycache.Snapshot, 0, len(p.pending))}
		for _, snap := range p.pending {
			msg.Snapshots = append(msg.Snapshots, snap)
		}
		p.pending = make(map[querycache.Key]querycache.Snapshot)
		p.mu.Unlock()

		sort.Slice(msg.Snapshots, func(i, j int) bool {
			return msg.Snapshots[i].Key < msg.Snapshots[j].Key
		})
		return msg
	}
}
