// Package metrics exposes Prometheus counters for the sync layer: cache
// hits and misses, network fetches, mutations and rollbacks.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trademate"

// Fetch outcomes.
const (
	FetchOK        = "ok"
	FetchError     = "error"
	FetchDiscarded = "discarded"
)

// Mutation outcomes.
const (
	MutationConfirmed = "confirmed"
	MutationFailed    = "failed"
	MutationRejected  = "rejected"
)

// Rollback modes.
const (
	RollbackExact   = "exact"
	RollbackRebased = "rebased"
)

// Collector records sync-layer metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	fetches      *prometheus.CounterVec
	coalesced    *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	mutations    *prometheus.CounterVec
	rollbacks    *prometheus.CounterVec
}

// NewCollector creates the collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Fetches served from a fresh cached snapshot",
		}, []string{"key"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Fetches that needed a network read",
		}, []string{"key"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Network reads by outcome",
		}, []string{"key", "outcome"}),
		coalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_coalesced_total",
			Help:      "Fetches that joined an in-flight network read",
		}, []string{"key"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Network read latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"key"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Optimistic mutations by operation and outcome",
		}, []string{"key", "op", "outcome"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollbacks_total",
			Help:      "Optimistic writes undone after a failed mutation",
		}, []string{"key", "mode"}),
	}

	reg.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.fetches,
		c.coalesced,
		c.fetchLatency,
		c.mutations,
		c.rollbacks,
	)
	return c
}

func (c *Collector) RecordCacheHit(key string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(key).Inc()
}

func (c *Collector) RecordCacheMiss(key string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(key).Inc()
}

// RecordFetch counts a finished network read.
func (c *Collector) RecordFetch(key, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.fetches.WithLabelValues(key, outcome).Inc()
	c.fetchLatency.WithLabelValues(key).Observe(elapsed.Seconds())
}

func (c *Collector) RecordCoalesced(key string) {
	if c == nil {
		return
	}
	c.coalesced.WithLabelValues(key).Inc()
}

func (c *Collector) RecordMutation(key, op, outcome string) {
	if c == nil {
		return
	}
	c.mutations.WithLabelValues(key, op, outcome).Inc()
}

func (c *Collector) RecordRollback(key, mode string) {
	if c == nil {
		return
	}
	c.rollbacks.WithLabelValues(key, mode).Inc()
}

// Serve exposes g on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
