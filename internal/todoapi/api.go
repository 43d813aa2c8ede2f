// Package todoapi binds the remote todo collection to the query cache:
// it names every read by key and tags, and routes creates through the
// mutation coordinator.
package todoapi

import (
	"context"
	"log/slog"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/mutation"
	"github.com/nhle/todoboard/internal/querycache"
	"github.com/nhle/todoboard/internal/remote"
	"github.com/nhle/todoboard/internal/view"
)

// Cache tags of todo queries.
const (
	TagAll   querycache.Tag = "todos:ALL"
	TagStats querycache.Tag = "todos:STATS"
	TagList  querycache.Tag = "todos:LIST"
)

// Query operation names.
const (
	opAll   = "todos.all"
	opStats = "todos.stats"
	opPage  = "todos.page"
)

// DefaultPageSize is the page size of the default view.
const DefaultPageSize = 10

// Collection is the remote side of the API.
type Collection interface {
	FetchAll(ctx context.Context) ([]model.Todo, error)
	FetchPage(ctx context.Context, offset, limit int) ([]model.Todo, error)
	Create(ctx context.Context, draft model.Draft) (model.Todo, error)
}

// API exposes the todo queries and the create mutation.
type API struct {
	remote   Collection
	store    *querycache.Store
	creator  *mutation.Coordinator
	pageSize int
	logger   *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithPageSize sets the page size of the default view. Creates insert
// optimistically into its first page.
func WithPageSize(n int) Option {
	return func(a *API) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// WithLogger sets the logger passed on to the mutation coordinator.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		a.logger = l
	}
}

// New creates an API reading from rc and caching in store.
func New(rc Collection, store *querycache.Store, opts ...Option) *API {
	a := &API{
		remote:   rc,
		store:    store,
		pageSize: DefaultPageSize,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.creator = mutation.New(store, rc,
		mutation.WithTargets(
			mutation.Target{Key: a.Page(1, a.pageSize).Key, Limit: a.pageSize},
			mutation.Target{Key: a.AllTodos().Key},
		),
		mutation.WithInvalidate(TagList, TagStats),
		mutation.WithLogger(a.logger),
	)
	return a
}

// Store returns the cache backing the API.
func (a *API) Store() *querycache.Store {
	return a.store
}

// PageSize returns the page size of the default view.
func (a *API) PageSize() int {
	return a.pageSize
}

// Pending returns the number of creates awaiting the server.
func (a *API) Pending() int {
	return a.creator.InFlight()
}

// PendingCreate returns the in-flight create behind a speculative todo.
func (a *API) PendingCreate(tempID int) (mutation.InFlightCreate, bool) {
	return a.creator.Lookup(tempID)
}

// AllTodos is the canonical full list.
func (a *API) AllTodos() querycache.Query[[]model.Todo] {
	return querycache.Query[[]model.Todo]{
		Key:   querycache.NewKey(opAll, nil),
		Tags:  []querycache.Tag{TagAll, TagList},
		Fetch: a.remote.FetchAll,
	}
}

// Stats folds the full collection into totals.
func (a *API) Stats() querycache.Query[model.Stats] {
	return querycache.Query[model.Stats]{
		Key:  querycache.NewKey(opStats, nil),
		Tags: []querycache.Tag{TagStats},
		Fetch: func(ctx context.Context) (model.Stats, error) {
			todos, err := a.remote.FetchAll(ctx)
			if err != nil {
				return model.Stats{}, err
			}
			return view.ComputeStats(todos), nil
		},
	}
}

// Page is one server-side page (1-based) of limit todos.
func (a *API) Page(page, limit int) querycache.Query[[]model.Todo] {
	return querycache.Query[[]model.Todo]{
		Key: querycache.NewKey(opPage, map[string]any{
			"page":  page,
			"limit": limit,
		}),
		Tags: []querycache.Tag{TagList},
		Fetch: func(ctx context.Context) ([]model.Todo, error) {
			return a.remote.FetchPage(ctx, (page-1)*limit, limit)
		},
	}
}

// PageTotal is the size of the collection behind Page queries. The
// service reports no count, so this is the known dataset size.
func (a *API) PageTotal() int {
	return remote.KnownTotal
}

// CreateTodo creates a todo with an optimistic update of the full list
// and the first page of the default view.
func (a *API) CreateTodo(ctx context.Context, draft model.Draft) (model.Todo, error) {
	return a.creator.CreateTodo(ctx, draft)
}
