package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nhle/todoboard/internal/model"
)

// FakeCollection is an in-process stand-in for the remote todo
// collection. Like the public mock service it echoes created records
// with a fresh id but does not add them to later listings.
type FakeCollection struct {
	URL string

	t        *testing.T
	mu       sync.Mutex
	todos    []model.Todo
	nextID   int
	failGets bool
	failPost bool
	gate     chan struct{}

	gets  atomic.Int64
	posts atomic.Int64
}

// NewFakeCollection starts a server seeded with todos and closes it
// when the test completes.
func NewFakeCollection(t *testing.T, todos []model.Todo) *FakeCollection {
	t.Helper()

	f := &FakeCollection{
		t:      t,
		todos:  model.CloneTodos(todos),
		nextID: len(todos) + 1,
	}

	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	f.URL = srv.URL

	return f
}

// Gets returns the number of GET /todos requests served.
func (f *FakeCollection) Gets() int64 { return f.gets.Load() }

// Posts returns the number of POST /todos requests served.
func (f *FakeCollection) Posts() int64 { return f.posts.Load() }

// SetTodos replaces the listing returned by GET.
func (f *FakeCollection) SetTodos(todos []model.Todo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.todos = model.CloneTodos(todos)
}

// FailGets makes GET requests answer 500.
func (f *FakeCollection) FailGets(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGets = fail
}

// FailPosts makes POST requests answer 500.
func (f *FakeCollection) FailPosts(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPost = fail
}

// Hold blocks every request until the returned release func is called.
// Requests still held when the test ends are released automatically.
func (f *FakeCollection) Hold() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()

	var once sync.Once
	release = func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gate == gate {
				f.gate = nil
			}
			f.mu.Unlock()
			close(gate)
		})
	}
	f.t.Cleanup(release)
	return release
}

func (f *FakeCollection) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/todos" {
		http.NotFound(w, r)
		return
	}

	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	switch r.Method {
	case http.MethodGet:
		f.gets.Add(1)
		f.handleList(w, r)
	case http.MethodPost:
		f.posts.Add(1)
		f.handleCreate(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakeCollection) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	fail := f.failGets
	todos := model.CloneTodos(f.todos)
	f.mu.Unlock()

	if fail {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		return
	}

	if start := r.URL.Query().Get("_start"); start != "" {
		offset, _ := strconv.Atoi(start)
		limit, _ := strconv.Atoi(r.URL.Query().Get("_limit"))
		if offset > len(todos) {
			offset = len(todos)
		}
		end := len(todos)
		if limit > 0 && offset+limit < end {
			end = offset + limit
		}
		todos = todos[offset:end]
	}

	if todos == nil {
		todos = []model.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

func (f *FakeCollection) handleCreate(w http.ResponseWriter, r *http.Request) {
	var draft model.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	fail := f.failPost
	id := f.nextID
	f.nextID++
	f.mu.Unlock()

	if fail {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, model.Todo{
		ID:        id,
		UserID:    draft.UserID,
		Title:     draft.Title,
		Completed: draft.Completed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// SampleTodos returns the three-entry list used across scenario tests.
func SampleTodos() []model.Todo {
	return []model.Todo{
		{ID: 1, UserID: 1, Title: "a", Completed: false},
		{ID: 2, UserID: 1, Title: "b", Completed: true},
		{ID: 3, UserID: 1, Title: "c", Completed: false},
	}
}
