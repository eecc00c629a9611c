package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name below.
const EnvPrefix = "TRADEMATE_"

// Config holds the client configuration
// See .env.example for more documentation
type Config struct {
	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"http://localhost:8080/api"`
	APIToken       string        `env:"API_TOKEN" envDefault:""`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	// Session
	SessionFile   string `env:"SESSION_FILE" envDefault:""`
	SessionPolicy string `env:"SESSION_POLICY" envDefault:"trust"`

	// Staleness thresholds per collection
	Cache CacheConfig

	MetricsAddr string `env:"METRICS_ADDR" envDefault:""`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"warn"`
}

// CacheConfig sets how long each collection snapshot is served before a
// refetch.
type CacheConfig struct {
	ClientsMaxAge   time.Duration `env:"CACHE_CLIENTS_MAX_AGE" envDefault:"60s"`
	JobsMaxAge      time.Duration `env:"CACHE_JOBS_MAX_AGE" envDefault:"30s"`
	DashboardMaxAge time.Duration `env:"CACHE_DASHBOARD_MAX_AGE" envDefault:"30s"`
}

// Load reads a .env file if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Debug("failed to load .env file", "error", err)
	}
	return Parse(env.Options{})
}

// Parse reads the configuration from the environment only. opts lets
// tests supply an Environment map.
func Parse(opts env.Options) (*Config, error) {
	opts.Prefix = EnvPrefix
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%sREQUEST_TIMEOUT must be positive", EnvPrefix))
	}
	for name, d := range map[string]time.Duration{
		"CACHE_CLIENTS_MAX_AGE":   c.Cache.ClientsMaxAge,
		"CACHE_JOBS_MAX_AGE":      c.Cache.JobsMaxAge,
		"CACHE_DASHBOARD_MAX_AGE": c.Cache.DashboardMaxAge,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s%s must be positive", EnvPrefix, name))
		}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps debug/info/warn/error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}
