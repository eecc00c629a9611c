package cache

import "time"

// Key names a cached collection, e.g. "clients".
type Key string

// Snapshot is the cached value of one key together with its freshness
// metadata.
type Snapshot[T any] struct {
	Data      T
	FetchedAt time.Time
	MaxAge    time.Duration
	// Stale is set by Invalidate and forces the next fetch to hit the
	// network regardless of age.
	Stale bool
}

// NewSnapshot stamps data as fetched at now.
func NewSnapshot[T any](data T, now time.Time, maxAge time.Duration) Snapshot[T] {
	return Snapshot[T]{Data: data, FetchedAt: now, MaxAge: maxAge}
}

// Fresh reports whether the snapshot may be served without a network read.
func (s Snapshot[T]) Fresh(now time.Time) bool {
	if s.Stale || s.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(s.FetchedAt) < s.MaxAge
}

// Age is how long ago the snapshot was fetched.
func (s Snapshot[T]) Age(now time.Time) time.Duration {
	if s.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(s.FetchedAt)
}

// IsZero reports whether s holds nothing, i.e. no fetch ever succeeded.
func (s Snapshot[T]) IsZero() bool {
	return s.FetchedAt.IsZero()
}
