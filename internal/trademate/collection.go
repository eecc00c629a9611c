package trademate

import (
	"context"

	"github.com/trademate-dev/trademate/internal/cache"
	"github.com/trademate-dev/trademate/internal/mutation"
	"github.com/trademate-dev/trademate/internal/query"
	"github.com/trademate-dev/trademate/pkg/models"
)

// Collection pairs the fetcher and the mutation executor of one cache
// key, which is how screens use them.
type Collection[E models.Entity[E]] struct {
	fetcher  *query.Fetcher[[]E]
	executor *mutation.Executor[E]
	filter   func([]E, string) []E
}

// Key returns the cache key of the collection.
func (c *Collection[E]) Key() cache.Key { return c.fetcher.Key() }

// Fetch returns the snapshot, from cache when fresh.
func (c *Collection[E]) Fetch(ctx context.Context) (cache.Snapshot[[]E], error) {
	return c.fetcher.Fetch(ctx)
}

// Refresh forces a network read.
func (c *Collection[E]) Refresh(ctx context.Context) (cache.Snapshot[[]E], error) {
	return c.fetcher.Refresh(ctx)
}

// Peek returns whatever is cached without touching the network.
func (c *Collection[E]) Peek() ([]E, bool) {
	s, ok := c.fetcher.Peek()
	return s.Data, ok
}

// Search fetches the collection and keeps the records matching term. On
// a failed fetch the filtered stale records are returned with the error.
func (c *Collection[E]) Search(ctx context.Context, term string) ([]E, error) {
	snap, err := c.fetcher.Fetch(ctx)
	return c.filter(snap.Data, term), err
}

// Find returns the record with id from a fetched snapshot.
func (c *Collection[E]) Find(ctx context.Context, id int64) (E, bool, error) {
	snap, err := c.fetcher.Fetch(ctx)
	for _, e := range snap.Data {
		if e.EntityID() == id {
			return e, true, err
		}
	}
	var zero E
	return zero, false, err
}

func (c *Collection[E]) Create(ctx context.Context, e E) (E, error) {
	return c.executor.Create(ctx, e)
}

func (c *Collection[E]) Update(ctx context.Context, e E) (E, error) {
	return c.executor.Update(ctx, e)
}

func (c *Collection[E]) Delete(ctx context.Context, id int64) (E, error) {
	return c.executor.Delete(ctx, id)
}

// Execute runs op through the optimistic executor.
func (c *Collection[E]) Execute(ctx context.Context, op mutation.Op, payload E) (E, error) {
	return c.executor.Execute(ctx, op, payload)
}
