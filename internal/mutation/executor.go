// Package mutation applies create, update and delete operations to the
// entity cache optimistically and reconciles them with the server's
// answer.
package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trademate-dev/trademate/internal/cache"
	"github.com/trademate-dev/trademate/internal/metrics"
	"github.com/trademate-dev/trademate/pkg/models"
)

// Op is the kind of write.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// DefaultTimeout bounds the network call of a single mutation.
const DefaultTimeout = 15 * time.Second

// Remote performs the server side of writes for one collection.
type Remote[E any] interface {
	Create(ctx context.Context, e E) (E, error)
	Update(ctx context.Context, id int64, e E) (E, error)
	Delete(ctx context.Context, id int64) error
}

// TempIDs hands out temporary ids for optimistic placeholders. They are
// negative and so never collide with server ids.
type TempIDs struct {
	last atomic.Int64
}

// Next returns -1, -2, -3, ...
func (t *TempIDs) Next() int64 {
	return t.last.Add(-1)
}

// Options tunes an Executor.
type Options struct {
	// Dependents are keys derived from this collection; they are
	// invalidated after every confirmed write.
	Dependents []cache.Key
	// MaxAge is the staleness threshold for a snapshot the executor has to
	// create because the key was never fetched.
	MaxAge   time.Duration
	Timeout  time.Duration
	TempIDs  *TempIDs
	Notifier Notifier
	Logger   *slog.Logger
	Metrics  *metrics.Collector
}

// Executor runs optimistic mutations against one cache key holding a
// []E snapshot.
type Executor[E models.Entity[E]] struct {
	key        cache.Key
	cache      *cache.Cache
	remote     Remote[E]
	dependents []cache.Key
	maxAge     time.Duration
	timeout    time.Duration
	tempIDs    *TempIDs
	notifier   Notifier
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// New creates an executor for key.
func New[E models.Entity[E]](c *cache.Cache, key cache.Key, remote Remote[E], opts Options) *Executor[E] {
	x := &Executor[E]{
		key:        key,
		cache:      c,
		remote:     remote,
		dependents: opts.Dependents,
		maxAge:     opts.MaxAge,
		timeout:    opts.Timeout,
		tempIDs:    opts.TempIDs,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if x.timeout <= 0 {
		x.timeout = DefaultTimeout
	}
	if x.tempIDs == nil {
		x.tempIDs = &TempIDs{}
	}
	if x.logger == nil {
		x.logger = slog.Default()
	}
	return x
}

// Key returns the cache key this executor writes.
func (x *Executor[E]) Key() cache.Key { return x.key }

// Create adds e. The returned record carries the server-assigned id.
func (x *Executor[E]) Create(ctx context.Context, e E) (E, error) {
	return x.Execute(ctx, OpCreate, e)
}

// Update replaces the record with e's id.
func (x *Executor[E]) Update(ctx context.Context, e E) (E, error) {
	return x.Execute(ctx, OpUpdate, e)
}

// Delete removes the record with id. It returns the record as it was
// cached, or the zero value if it was not cached.
func (x *Executor[E]) Delete(ctx context.Context, id int64) (E, error) {
	var zero E
	return x.run(ctx, OpDelete, id, zero)
}

// Execute applies op with payload. For update and delete the target is
// payload's id.
func (x *Executor[E]) Execute(ctx context.Context, op Op, payload E) (E, error) {
	return x.run(ctx, op, payload.EntityID(), payload)
}

// pending is the per-call record of an optimistic write. Each call keeps
// its own, so out-of-order responses reconcile against the right state.
type pending[E any] struct {
	op         Op
	id         int64
	tempID     int64
	payload    E
	prior      cache.Entry[[]E]
	version    uint64
	wrote      bool
	priorItem  E
	found      bool
	priorIndex int
}

func (x *Executor[E]) run(ctx context.Context, op Op, id int64, payload E) (E, error) {
	var zero E
	if err := x.check(op, id, payload); err != nil {
		return zero, x.fail(op, err)
	}

	p := pending[E]{op: op, id: id, payload: payload}
	if op == OpCreate {
		p.tempID = x.tempIDs.Next()
	}

	p.prior, p.version = cache.Update(x.cache, x.key, func(cur cache.Entry[[]E]) (cache.Snapshot[[]E], bool) {
		next := cur.Snapshot
		if !cur.Present {
			next = cache.Snapshot[[]E]{MaxAge: x.maxAge}
		}
		data, changed := applyOptimistic(op, next.Data, id, payload, p.tempID)
		if !changed {
			return cur.Snapshot, false
		}
		next.Data = data
		return next, true
	})
	p.wrote = p.version != p.prior.Version
	if op != OpCreate {
		if i := indexOf(p.prior.Snapshot.Data, id); i >= 0 {
			p.priorItem, p.found, p.priorIndex = p.prior.Snapshot.Data[i], true, i
		}
	}

	x.logger.Debug("optimistic write", "key", x.key, "op", op, "id", id, "temp_id", p.tempID, "applied", p.wrote)

	callCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()
	result, err := x.call(callCtx, op, id, payload)
	if err != nil {
		x.rollback(p)
		return zero, x.fail(op, err)
	}

	if op == OpDelete {
		result = p.priorItem
	}
	cache.Update(x.cache, x.key, func(cur cache.Entry[[]E]) (cache.Snapshot[[]E], bool) {
		if !cur.Present {
			return cur.Snapshot, false
		}
		next := cur.Snapshot
		next.Data = confirm(op, cur.Snapshot.Data, id, p.tempID, result)
		return next, true
	})
	x.cache.Invalidate(x.key)
	for _, dep := range x.dependents {
		x.cache.Invalidate(dep)
	}

	x.metrics.RecordMutation(string(x.key), string(op), metrics.MutationConfirmed)
	x.logger.Info("mutation confirmed", "key", x.key, "op", op, "id", result.EntityID())
	return result, nil
}

// check rejects a payload before anything is written.
func (x *Executor[E]) check(op Op, id int64, payload E) error {
	switch op {
	case OpCreate:
		return payload.Validate()
	case OpUpdate:
		if id <= 0 {
			return &models.ValidationError{Field: "id", Message: "must be a saved record"}
		}
		return payload.Validate()
	case OpDelete:
		if id <= 0 {
			return &models.ValidationError{Field: "id", Message: "must be a saved record"}
		}
		return nil
	}
	return &models.ValidationError{Field: "operation", Message: fmt.Sprintf("%q is not supported", op)}
}

func (x *Executor[E]) call(ctx context.Context, op Op, id int64, payload E) (E, error) {
	switch op {
	case OpCreate:
		return x.remote.Create(ctx, payload)
	case OpUpdate:
		return x.remote.Update(ctx, id, payload)
	default:
		var zero E
		return zero, x.remote.Delete(ctx, id)
	}
}

// rollback restores the snapshot captured before the optimistic write.
// When later writes have landed on top, only this mutation's own change
// is reverted so theirs survive, and the key is marked stale.
func (x *Executor[E]) rollback(p pending[E]) {
	if !p.wrote {
		return
	}
	if cache.Restore(x.cache, x.key, p.prior, p.version) {
		x.metrics.RecordRollback(string(x.key), metrics.RollbackExact)
		x.logger.Debug("rolled back", "key", x.key, "op", p.op, "mode", metrics.RollbackExact)
		return
	}
	cache.Update(x.cache, x.key, func(cur cache.Entry[[]E]) (cache.Snapshot[[]E], bool) {
		if !cur.Present {
			return cur.Snapshot, false
		}
		next := cur.Snapshot
		next.Data = undo(p.op, cur.Snapshot.Data, p.id, p.tempID, p.payload, p.priorItem, p.found, p.priorIndex)
		return next, true
	})
	// other writes were interleaved; let the next read settle on the
	// server's state
	x.cache.Invalidate(x.key)
	x.metrics.RecordRollback(string(x.key), metrics.RollbackRebased)
	x.logger.Debug("rolled back", "key", x.key, "op", p.op, "mode", metrics.RollbackRebased)
}

func (x *Executor[E]) fail(op Op, err error) error {
	kind := classify(err)
	outcome := metrics.MutationFailed
	if kind == KindValidation {
		outcome = metrics.MutationRejected
	}
	x.metrics.RecordMutation(string(x.key), string(op), outcome)
	x.logger.Info("mutation failed", "key", x.key, "op", op, "kind", kind, "error", err)
	if x.notifier != nil {
		x.notifier.Notify(newNotification(x.key, op, kind, err))
	}
	return &MutationError{Kind: kind, Op: op, Key: x.key, Err: err}
}
