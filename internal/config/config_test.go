package config

import (
	"log/slog"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.APIBaseURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "trust", cfg.SessionPolicy)
	assert.Equal(t, 60*time.Second, cfg.Cache.ClientsMaxAge)
	assert.Equal(t, 30*time.Second, cfg.Cache.JobsMaxAge)
	assert.Equal(t, 30*time.Second, cfg.Cache.DashboardMaxAge)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{
		"TRADEMATE_API_BASE_URL":          "https://crm.example.com/api",
		"TRADEMATE_REQUEST_TIMEOUT":       "5s",
		"TRADEMATE_SESSION_POLICY":        "expiry",
		"TRADEMATE_CACHE_JOBS_MAX_AGE":    "1m",
		"TRADEMATE_LOG_LEVEL":             "debug",
		"API_BASE_URL":                    "ignored without prefix",
		"TRADEMATE_CACHE_CLIENTS_MAX_AGE": "2m",
	}})
	require.NoError(t, err)

	assert.Equal(t, "https://crm.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "expiry", cfg.SessionPolicy)
	assert.Equal(t, time.Minute, cfg.Cache.JobsMaxAge)
	assert.Equal(t, 2*time.Minute, cfg.Cache.ClientsMaxAge)

	lvl, err := ParseLevel(cfg.LogLevel)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestParseRejectsBadValues(t *testing.T) {
	_, err := Parse(env.Options{Environment: map[string]string{"TRADEMATE_REQUEST_TIMEOUT": "soon"}})
	assert.Error(t, err)

	_, err = Parse(env.Options{Environment: map[string]string{"TRADEMATE_CACHE_DASHBOARD_MAX_AGE": "0s"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRADEMATE_CACHE_DASHBOARD_MAX_AGE must be positive")

	_, err = Parse(env.Options{Environment: map[string]string{"TRADEMATE_LOG_LEVEL": "loud"}})
	assert.Error(t, err)
}
