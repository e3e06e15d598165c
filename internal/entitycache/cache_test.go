package entitycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	ID   int64
	Name string
}

func newBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := NewBackend(Config{NumCounters: 1000, MaxEntries: 100, FetchTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func TestGetFetchesOnceAndMemoizes(t *testing.T) {
	var calls atomic.Int32
	c := New(newBackend(t), "user", func(_ context.Context, id int64) (user, error) {
		calls.Add(1)
		return user{ID: id, Name: "Marta"}, nil
	}, nil)

	_, ok := c.Peek(1)
	assert.False(t, ok)

	u, ok := c.Get(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, "Marta", u.Name)

	u, ok = c.Peek(1)
	require.True(t, ok)
	assert.Equal(t, int64(1), u.ID)

	_, _ = c.Get(context.Background(), 1)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New(newBackend(t), "user", func(_ context.Context, id int64) (user, error) {
		calls.Add(1)
		<-release
		return user{ID: id}, nil
	}, nil)

	const callers = 10
	var wg sync.WaitGroup
	results := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = c.Get(context.Background(), 5)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i, ok := range results {
		assert.True(t, ok, "caller %d", i)
	}
}

func TestFailedFetchIsNotCached(t *testing.T) {
	var calls atomic.Int32
	c := New(newBackend(t), "user", func(_ context.Context, id int64) (user, error) {
		if calls.Add(1) == 1 {
			return user{}, errors.New("network down")
		}
		return user{ID: id, Name: "Formiga"}, nil
	}, nil)

	_, ok := c.Get(context.Background(), 3)
	assert.False(t, ok)
	_, ok = c.Peek(3)
	assert.False(t, ok)

	u, ok := c.Get(context.Background(), 3)
	require.True(t, ok)
	assert.Equal(t, "Formiga", u.Name)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCancelledCallerDoesNotAbortSharedFetch(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	c := New(newBackend(t), "user", func(ctx context.Context, id int64) (user, error) {
		defer close(done)
		<-release
		return user{ID: id, Name: "Cristiane"}, ctx.Err()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, ok := c.Get(ctx, 9)
	assert.False(t, ok)

	close(release)
	<-done
	assert.Eventually(t, func() bool {
		u, ok := c.Peek(9)
		return ok && u.Name == "Cristiane"
	}, time.Second, 5*time.Millisecond)
}

func TestUpsertOverwrites(t *testing.T) {
	c := New(newBackend(t), "user", func(_ context.Context, id int64) (user, error) {
		return user{ID: id, Name: "fetched"}, nil
	}, nil)

	c.Upsert(4, user{ID: 4, Name: "first"})
	c.Upsert(4, user{ID: 4, Name: "second"})

	u, ok := c.Get(context.Background(), 4)
	require.True(t, ok)
	assert.Equal(t, "second", u.Name)
}

func TestNamespacesAndReset(t *testing.T) {
	b := newBackend(t)
	users := New(b, "user", func(_ context.Context, id int64) (user, error) { return user{}, errors.New("unused") }, nil)
	teams := New(b, "team", func(_ context.Context, id int64) (string, error) { return "", errors.New("unused") }, nil)

	users.Upsert(1, user{ID: 1})
	teams.Upsert(1, "Corinthians")

	u, ok := users.Peek(1)
	require.True(t, ok)
	assert.Equal(t, int64(1), u.ID)
	name, ok := teams.Peek(1)
	require.True(t, ok)
	assert.Equal(t, "Corinthians", name)

	require.NoError(t, b.Reset(context.Background()))
	_, ok = users.Peek(1)
	assert.False(t, ok)
	_, ok = teams.Peek(1)
	assert.False(t, ok)
}
