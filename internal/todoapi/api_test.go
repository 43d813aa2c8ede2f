package todoapi_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/querycache"
	"github.com/nhle/todoboard/internal/remote"
	"github.com/nhle/todoboard/internal/todoapi"
	"github.com/nhle/todoboard/tests/testutil"
)

func newAPI(t *testing.T, todos []model.Todo, opts ...todoapi.Option) (*todoapi.API, *testutil.FakeCollection) {
	t.Helper()

	fake := testutil.NewFakeCollection(t, todos)
	api := todoapi.New(remote.NewClient(fake.URL), querycache.New(), opts...)
	t.Cleanup(api.Store().Wait)
	return api, fake
}

func TestAllTodos_ConcurrentReadsShareOneRequest(t *testing.T) {
	api, fake := newAPI(t, testutil.SampleTodos())
	release := fake.Hold()

	const readers = 10
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			todos, err := querycache.Fetch(context.Background(), api.Store(), api.AllTodos())
			assert.NoError(t, err)
			assert.Len(t, todos, 3)
		}()
	}

	require.Eventually(t, func() bool {
		snap, _ := api.Store().Peek(api.AllTodos().Key)
		return snap.Fetching
	}, time.Second, 5*time.Millisecond)

	release()
	wg.Wait()

	assert.Equal(t, int64(1), fake.Gets())
}

func TestStats_FoldsFullCollection(t *testing.T) {
	api, _ := newAPI(t, testutil.SampleTodos())

	stats, err := querycache.Fetch(context.Background(), api.Store(), api.Stats())
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Total: 3, Completed: 1, Pending: 2}, stats)
}

func TestPage_UsesOffsetPagination(t *testing.T) {
	api, fake := newAPI(t, testutil.SampleTodos())

	q := api.Page(2, 2)
	assert.Equal(t, querycache.Key("todos.page?limit=2&page=2"), q.Key)

	todos, err := querycache.Fetch(context.Background(), api.Store(), q)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, 3, todos[0].ID)

	_, err = querycache.Fetch(context.Background(), api.Store(), api.Page(2, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), fake.Gets(), "same page is served from cache")
	assert.Equal(t, remote.KnownTotal, api.PageTotal())
}

func TestFetch_FailureIsReportedWithoutValue(t *testing.T) {
	api, fake := newAPI(t, testutil.SampleTodos())
	fake.FailGets(true)

	_, err := querycache.Fetch(context.Background(), api.Store(), api.AllTodos())
	require.Error(t, err)
	assert.True(t, remote.IsTransportError(err))

	snap, _ := api.Store().Peek(api.AllTodos().Key)
	assert.Equal(t, querycache.StatusFailed, snap.Status)
	assert.Nil(t, snap.Value)
}

func TestCreateTodo_PatchesFirstPageAndFullList(t *testing.T) {
	api, fake := newAPI(t, testutil.SampleTodos(), todoapi.WithPageSize(2))
	ctx := context.Background()
	store := api.Store()

	_, err := querycache.Fetch(ctx, store, api.AllTodos())
	require.NoError(t, err)
	_, err = querycache.Fetch(ctx, store, api.Page(1, 2))
	require.NoError(t, err)

	created, err := api.CreateTodo(ctx, model.Draft{Title: "new", UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), fake.Posts())

	all, _ := store.Peek(api.AllTodos().Key)
	list, ok := querycache.ValueOf[[]model.Todo](all)
	require.True(t, ok)
	assert.Equal(t, created, list[0])
	assert.Len(t, list, 4)
	assert.True(t, all.Stale)

	page, _ := store.Peek(api.Page(1, 2).Key)
	pageTodos, ok := querycache.ValueOf[[]model.Todo](page)
	require.True(t, ok)
	require.Len(t, pageTodos, 2)
	assert.Equal(t, created.ID, pageTodos[0].ID)
	assert.Equal(t, 1, pageTodos[1].ID)
}

func TestCreateTodo_RefetchForSubscribersReflectsServer(t *testing.T) {
	api, fake := newAPI(t, testutil.SampleTodos())
	store := api.Store()

	var mu sync.Mutex
	var last querycache.Snapshot
	unsubscribe := querycache.Subscribe(store, api.AllTodos(), func(snap querycache.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		last = snap
	})
	defer unsubscribe()
	store.Wait()

	_, err := api.CreateTodo(context.Background(), model.Draft{Title: "new", UserID: 1})
	require.NoError(t, err)
	store.Wait()

	// The collection does not persist creates, so the refetched list
	// matches the server listing again.
	assert.Equal(t, int64(2), fake.Gets())
	mu.Lock()
	defer mu.Unlock()
	todos, ok := querycache.ValueOf[[]model.Todo](last)
	require.True(t, ok)
	assert.Equal(t, testutil.SampleTodos(), todos)
	assert.False(t, last.Stale)
}

func TestCreateTodo_FailureRollsBack(t *testing.T) {
	api, fake := newAPI(t, testutil.SampleTodos())
	ctx := context.Background()
	fake.FailPosts(true)

	before, err := querycache.Fetch(ctx, api.Store(), api.AllTodos())
	require.NoError(t, err)

	_, err = api.CreateTodo(ctx, model.Draft{Title: "new", UserID: 1})
	require.Error(t, err)

	after, err := querycache.Fetch(ctx, api.Store(), api.AllTodos())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, int64(1), fake.Gets(), "rollback does not refetch")
	assert.Equal(t, 0, api.Pending())
}
