// Package mutation runs writes against the remote collection with
// optimistic cache updates: the cache shows the new record immediately,
// is reconciled with the server's record on success and rolled back on
// failure.
package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/querycache"
)

// Creator submits new records to the remote collection.
type Creator interface {
	Create(ctx context.Context, draft model.Draft) (model.Todo, error)
}

// Target is a cached list that reflects creates optimistically.
// New records are inserted at the head; a positive Limit caps the list
// afterwards, so a bounded page keeps its size.
type Target struct {
	Key   querycache.Key
	Limit int
}

// Coordinator executes creates. Each call owns an independent Patch, so
// concurrent creates never disturb each other's insertion or rollback.
type Coordinator struct {
	store      *querycache.Store
	remote     Creator
	targets    []Target
	invalidate []querycache.Tag
	logger     *slog.Logger

	tempSeq atomic.Int64

	mu       sync.Mutex
	inFlight map[string]InFlightCreate
}

// InFlightCreate describes a create awaiting the server.
type InFlightCreate struct {
	// ID is the mutation id, also logged as "mutation".
	ID      string
	TempID  int
	Title   string
	Started time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTargets sets the cached lists patched by every create.
func WithTargets(targets ...Target) Option {
	return func(c *Coordinator) {
		c.targets = append(c.targets, targets...)
	}
}

// WithInvalidate sets the tags invalidated after a successful create.
func WithInvalidate(tags ...querycache.Tag) Option {
	return func(c *Coordinator) {
		c.invalidate = append(c.invalidate, tags...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// New creates a Coordinator writing through remote and patching store.
func New(store *querycache.Store, remote Creator, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		remote:   remote,
		logger:   slog.New(slog.DiscardHandler),
		inFlight: make(map[string]InFlightCreate),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InFlight returns the number of creates awaiting the server.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight)
}

// Pending returns the creates awaiting the server, oldest first.
func (c *Coordinator) Pending() []InFlightCreate {
	c.mu.Lock()
	out := make([]InFlightCreate, 0, len(c.inFlight))
	for _, f := range c.inFlight {
		out = append(out, f)
	}
	c.mu.Unlock()

	slices.SortFunc(out, func(a, b InFlightCreate) int {
		return b.TempID - a.TempID
	})
	return out
}

// Lookup returns the in-flight create whose speculative record has tempID.
func (c *Coordinator) Lookup(tempID int) (InFlightCreate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.inFlight {
		if f.TempID == tempID {
			return f, true
		}
	}
	return InFlightCreate{}, false
}

func (c *Coordinator) track(p *Patch) func() {
	c.mu.Lock()
	c.inFlight[p.ID] = InFlightCreate{
		ID:      p.ID,
		TempID:  p.Speculative.ID,
		Title:   p.Speculative.Title,
		Started: time.Now(),
	}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.inFlight, p.ID)
		c.mu.Unlock()
	}
}

// Patch is the optimistic state of one create call.
type Patch struct {
	// ID identifies the mutation in logs and in Pending.
	ID string

	// Speculative is the record shown until the server answers. Its ID
	// is the temporary id, unique and negative within the process.
	Speculative model.Todo

	handles []*querycache.PatchHandle
}

// Keys returns the cached lists the patch was applied to.
func (p *Patch) Keys() []querycache.Key {
	var keys []querycache.Key
	for _, h := range p.handles {
		if h.Applied() {
			keys = append(keys, h.Key())
		}
	}
	return keys
}

// Undo removes the speculative record from every patched list.
// It is idempotent and never fails.
func (p *Patch) Undo() {
	for _, h := range p.handles {
		h.Undo()
	}
}

// reconcile swaps the speculative record for created in place and
// confirms the edits.
func (p *Patch) reconcile(targets []Target, created model.Todo) {
	for i, h := range p.handles {
		h.Replace(querycache.Edit(swapTemp(p.Speculative.ID, created, targets[i].Limit)))
		h.Commit()
	}
}

// CreateTodo validates draft, shows it optimistically in every target
// list and submits it.
//
// On success the speculative record is replaced by the server's record
// at the same position and the configured tags are invalidated. On
// failure every patch is undone and the *remote.TransportError is
// returned. A draft failing validation returns a *ValidationError and
// never reaches the network.
func (c *Coordinator) CreateTodo(ctx context.Context, draft model.Draft) (model.Todo, error) {
	draft, err := ValidateDraft(draft)
	if err != nil {
		return model.Todo{}, err
	}

	p := c.begin(draft)
	defer c.track(p)()

	c.logger.Debug("create started",
		"mutation", p.ID,
		"temp_id", p.Speculative.ID,
		"keys", len(p.Keys()),
	)

	created, err := c.remote.Create(ctx, draft)
	if err != nil {
		p.Undo()
		c.logger.Warn("create failed, rolled back", "mutation", p.ID, "error", err)
		return model.Todo{}, fmt.Errorf("creating todo: %w", err)
	}

	p.reconcile(c.targets, created)
	c.store.Invalidate(c.invalidate...)

	c.logger.Info("todo created", "mutation", p.ID, "id", created.ID, "temp_id", p.Speculative.ID)
	return created, nil
}

// begin synthesizes the speculative record and patches every target.
func (c *Coordinator) begin(draft model.Draft) *Patch {
	p := &Patch{
		ID: uuid.NewString(),
		Speculative: model.Todo{
			ID:        -int(c.tempSeq.Add(1)),
			UserID:    draft.UserID,
			Title:     draft.Title,
			Completed: draft.Completed,
		},
	}
	for _, t := range c.targets {
		h := c.store.Patch(t.Key, querycache.Edit(insertHead(p.Speculative, t.Limit)))
		p.handles = append(p.handles, h)
	}
	return p
}

// insertHead puts todo first and trims the list to limit.
func insertHead(todo model.Todo, limit int) func([]model.Todo) []model.Todo {
	return func(todos []model.Todo) []model.Todo {
		out := make([]model.Todo, 0, len(todos)+1)
		out = append(out, todo)
		out = append(out, todos...)
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return out
	}
}

// swapTemp is insertHead for the server's record. The edit sits where
// the speculative one did, so the record keeps its position. An older
// entry carrying the same server id is dropped to keep ids unique.
func swapTemp(tempID int, created model.Todo, limit int) func([]model.Todo) []model.Todo {
	return func(todos []model.Todo) []model.Todo {
		out := make([]model.Todo, 0, len(todos)+1)
		out = append(out, created)
		for _, t := range todos {
			if t.ID == created.ID || t.ID == tempID {
				continue
			}
			out = append(out, t)
		}
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return out
	}
}
