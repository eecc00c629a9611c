package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trademate-dev/trademate/internal/cache"
	"github.com/trademate-dev/trademate/internal/client"
)

const key cache.Key = "clients"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingLoader returns the next value of a counter on every call.
func countingLoader() (Loader[int], *atomic.Int32) {
	var calls atomic.Int32
	return func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, &calls
}

func TestFetchHitAndMiss(t *testing.T) {
	c := cache.New()
	clk := newClock()
	load, calls := countingLoader()
	f := New(c, key, load, Options{MaxAge: time.Minute, Now: clk.Now})

	snap, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Data)

	clk.Advance(59 * time.Second)
	snap, err = f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Data)
	assert.Equal(t, int32(1), calls.Load())

	clk.Advance(time.Second)
	snap, err = f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Data)
	assert.Equal(t, clk.Now(), snap.FetchedAt)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	c := cache.New()
	load, calls := countingLoader()
	f := New(c, key, load, Options{MaxAge: time.Hour})

	_, err := f.Fetch(context.Background())
	require.NoError(t, err)
	c.Invalidate(key)
	snap, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Data)
	assert.False(t, snap.Stale)

	snap, err = f.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Data)
	assert.Equal(t, int32(3), calls.Load())
}

func TestConcurrentFetchesShareOneRead(t *testing.T) {
	c := cache.New()
	release := make(chan struct{})
	var calls atomic.Int32
	f := New(c, key, func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"Acme Ltd"}, nil
	}, Options{MaxAge: time.Minute})

	const callers = 5
	var wg sync.WaitGroup
	results := make([]cache.Snapshot[[]string], callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := f.Fetch(context.Background())
			assert.NoError(t, err)
			results[i] = snap
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, snap := range results {
		assert.Equal(t, []string{"Acme Ltd"}, snap.Data)
	}
}

func TestFetchAfterInvalidateDoesNotJoinOlderFlight(t *testing.T) {
	c := cache.New()
	first := make(chan struct{})
	var calls atomic.Int32
	f := New(c, key, func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			<-first
			return "before", nil
		}
		return "after", nil
	}, Options{MaxAge: time.Minute})

	done := make(chan cache.Snapshot[string])
	go func() {
		snap, _ := f.Fetch(context.Background())
		done <- snap
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Invalidate(key)
	snap, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "after", snap.Data)

	// the older read finishes last and must not overwrite the newer one
	close(first)
	<-done
	cached, _ := f.Peek()
	assert.Equal(t, "after", cached.Data)
}

func TestFailedFetchReturnsCachedSnapshot(t *testing.T) {
	c := cache.New()
	clk := newClock()
	fail := errors.New("connection refused")
	var broken atomic.Bool
	f := New(c, key, func(ctx context.Context) (string, error) {
		if broken.Load() {
			return "", &client.NetworkError{Op: "list clients", Err: fail}
		}
		return "cached", nil
	}, Options{MaxAge: time.Minute, Now: clk.Now})

	_, err := f.Fetch(context.Background())
	require.NoError(t, err)

	broken.Store(true)
	clk.Advance(2 * time.Minute)
	snap, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, client.IsNetwork(err))
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, "cached", snap.Data)
	assert.False(t, snap.IsZero())

	// nothing cached: zero snapshot
	empty := New(cache.New(), key, func(ctx context.Context) (string, error) {
		return "", fail
	}, Options{})
	snap, err = empty.Fetch(context.Background())
	assert.Error(t, err)
	assert.True(t, snap.IsZero())
}

func TestCallerCancellationDoesNotAbortSharedRead(t *testing.T) {
	c := cache.New()
	release := make(chan struct{})
	var loadErr atomic.Value
	f := New(c, key, func(ctx context.Context) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
			loadErr.Store(ctx.Err())
			return "", ctx.Err()
		}
		return "done", nil
	}, Options{MaxAge: time.Minute, Timeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx)
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	err := <-errCh
	assert.True(t, client.IsNetwork(err))

	close(release)
	require.Eventually(t, func() bool {
		snap, ok := f.Peek()
		return ok && snap.Data == "done"
	}, time.Second, time.Millisecond)
	assert.Nil(t, loadErr.Load())
}

func TestFetchTimeout(t *testing.T) {
	c := cache.New()
	f := New(c, key, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", &client.NetworkError{Op: "list clients", Err: ctx.Err()}
	}, Options{Timeout: 20 * time.Millisecond})

	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
