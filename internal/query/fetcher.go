// Package query reads collection snapshots through the entity cache,
// going to the network only when the cached copy is missing or stale.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/trademate-dev/trademate/internal/cache"
	"github.com/trademate-dev/trademate/internal/client"
	"github.com/trademate-dev/trademate/internal/metrics"
)

const (
	// DefaultMaxAge is used when Options.MaxAge is unset.
	DefaultMaxAge = 30 * time.Second
	// DefaultTimeout bounds a single network read.
	DefaultTimeout = 15 * time.Second
)

// Loader performs the network read for one key.
type Loader[T any] func(ctx context.Context) (T, error)

// Options tunes a Fetcher.
type Options struct {
	MaxAge  time.Duration
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Collector
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Fetcher serves one cache key.
type Fetcher[T any] struct {
	key     cache.Key
	cache   *cache.Cache
	load    Loader[T]
	maxAge  time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Collector

	group singleflight.Group
}

// New creates a fetcher for key backed by load.
func New[T any](c *cache.Cache, key cache.Key, load Loader[T], opts Options) *Fetcher[T] {
	f := &Fetcher[T]{
		key:     key,
		cache:   c,
		load:    load,
		maxAge:  opts.MaxAge,
		timeout: opts.Timeout,
		now:     opts.Now,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if f.maxAge <= 0 {
		f.maxAge = DefaultMaxAge
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Key returns the cache key this fetcher serves.
func (f *Fetcher[T]) Key() cache.Key { return f.key }

// MaxAge is the staleness threshold applied to fetched snapshots.
func (f *Fetcher[T]) MaxAge() time.Duration { return f.maxAge }

// Peek returns the cached snapshot without any network access.
func (f *Fetcher[T]) Peek() (cache.Snapshot[T], bool) {
	return cache.Get[T](f.cache, f.key)
}

// Fetch returns a fresh snapshot, reading from the network when the
// cached one is missing, stale or invalidated. Concurrent callers share a
// single network read.
//
// On failure the previously cached snapshot, if any, is returned together
// with the error; callers decide whether to show the stale data. Check
// Snapshot.IsZero to tell whether anything was cached.
func (f *Fetcher[T]) Fetch(ctx context.Context) (cache.Snapshot[T], error) {
	cached, ok := cache.Get[T](f.cache, f.key)
	if ok && cached.Fresh(f.now()) {
		f.metrics.RecordCacheHit(string(f.key))
		return cached, nil
	}
	f.metrics.RecordCacheMiss(string(f.key))

	// A new generation starts a new flight: a read issued after
	// Invalidate must not join one issued before it.
	flight := fmt.Sprintf("%s#%d", f.key, f.cache.Generation(f.key))
	ch := f.group.DoChan(flight, func() (any, error) {
		return f.fetchNetwork(ctx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			f.metrics.RecordCoalesced(string(f.key))
		}
		if res.Err != nil {
			return cached, res.Err
		}
		return res.Val.(cache.Snapshot[T]), nil
	case <-ctx.Done():
		return cached, &client.NetworkError{Op: "fetch " + string(f.key), Err: ctx.Err()}
	}
}

// Refresh invalidates the key and fetches it again.
func (f *Fetcher[T]) Refresh(ctx context.Context) (cache.Snapshot[T], error) {
	f.cache.Invalidate(f.key)
	return f.Fetch(ctx)
}

func (f *Fetcher[T]) fetchNetwork(parent context.Context) (cache.Snapshot[T], error) {
	// The read is shared by every waiting caller, so it must not die with
	// the caller that happened to start it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), f.timeout)
	defer cancel()

	seq := f.cache.Reserve()
	start := time.Now()
	data, err := f.load(ctx)
	elapsed := time.Since(start)
	if err != nil {
		f.metrics.RecordFetch(string(f.key), metrics.FetchError, elapsed)
		f.logger.Info("fetch failed", "key", f.key, "error", err)
		return cache.Snapshot[T]{}, fmt.Errorf("fetch %s: %w", f.key, err)
	}

	snap := cache.NewSnapshot(data, f.now(), f.maxAge)
	if !cache.SetAt(f.cache, f.key, snap, seq) {
		f.metrics.RecordFetch(string(f.key), metrics.FetchDiscarded, elapsed)
		f.logger.Debug("discarding superseded fetch", "key", f.key, "seq", seq)
		current, _ := cache.Get[T](f.cache, f.key)
		return current, nil
	}
	f.metrics.RecordFetch(string(f.key), metrics.FetchOK, elapsed)
	f.logger.Debug("fetched", "key", f.key, "seq", seq, "elapsed", elapsed)
	return snap, nil
}
