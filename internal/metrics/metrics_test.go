package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordCacheHit("clients")
		c.RecordCacheMiss("clients")
		c.RecordFetch("clients", FetchOK, time.Millisecond)
		c.RecordCoalesced("clients")
		c.RecordMutation("clients", "create", MutationConfirmed)
		c.RecordRollback("clients", RollbackExact)
	})
}

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheHit("jobs")
	c.RecordCacheHit("jobs")
	c.RecordCacheMiss("jobs")
	c.RecordFetch("jobs", FetchDiscarded, 10*time.Millisecond)
	c.RecordMutation("jobs", "update", MutationFailed)
	c.RecordRollback("jobs", RollbackRebased)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheHits.WithLabelValues("jobs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses.WithLabelValues("jobs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("jobs", FetchDiscarded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutations.WithLabelValues("jobs", "update", MutationFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rollbacks.WithLabelValues("jobs", RollbackRebased)))

	n, err := testutil.GatherAndCount(reg, "trademate_fetch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestServe(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg).RecordCacheMiss("dashboard")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, reg) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		raw, _ := io.ReadAll(resp.Body)
		body = string(raw)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, strings.Contains(body, `trademate_cache_misses_total{key="dashboard"} 1`))

	cancel()
	assert.NoError(t, <-done)
}
