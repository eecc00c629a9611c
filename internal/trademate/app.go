// Package trademate wires the cache, fetchers, mutation executors,
// session store and route guard into one application object.
package trademate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trademate-dev/trademate/internal/cache"
	"github.com/trademate-dev/trademate/internal/client"
	"github.com/trademate-dev/trademate/internal/config"
	"github.com/trademate-dev/trademate/internal/guard"
	"github.com/trademate-dev/trademate/internal/metrics"
	"github.com/trademate-dev/trademate/internal/mutation"
	"github.com/trademate-dev/trademate/internal/query"
	"github.com/trademate-dev/trademate/internal/session"
	"github.com/trademate-dev/trademate/pkg/models"
)

// Cache keys.
const (
	KeyClients   cache.Key = "clients"
	KeyJobs      cache.Key = "jobs"
	KeyDashboard cache.Key = "dashboard"
)

// Jobs embed their client and the dashboard counts jobs, so writes to a
// collection make these keys stale too.
var dependents = map[cache.Key][]cache.Key{
	KeyClients: {KeyJobs, KeyDashboard},
	KeyJobs:    {KeyDashboard},
}

// App is the client application.
type App struct {
	Config   *config.Config
	Cache    *cache.Cache
	API      *client.Client
	Sessions *session.Store
	Guard    *guard.Guard
	Metrics  *metrics.Collector
	// Registry is what Metrics is registered with; serve it to expose
	// the counters.
	Registry *prometheus.Registry

	clients   *Collection[models.Client]
	jobs      *Collection[models.Job]
	dashboard *query.Fetcher[models.DashboardStats]

	logger    *slog.Logger
	unsubAuth func()
}

type options struct {
	backend    session.Backend
	httpClient *http.Client
	notifier   mutation.Notifier
	logger     *slog.Logger
	now        func() time.Time
}

// Option customises New.
type Option func(*options)

// WithSessionBackend sets where the session is persisted. The default is
// a file at cfg.SessionFile, or session.DefaultPath().
func WithSessionBackend(b session.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithHTTPClient replaces the API transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithNotifier sets who hears about failed mutations.
func WithNotifier(n mutation.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithLogger sets the logger for every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides time.Now for staleness and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// sessionToken prefers an explicitly configured token over the session.
type sessionToken struct {
	override string
	store    *session.Store
}

func (t sessionToken) Token() string {
	if t.override != "" {
		return t.override
	}
	return t.store.Token()
}

// New builds the application. Call Start before use and Close after.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.backend == nil {
		path := cfg.SessionFile
		if path == "" {
			var err error
			if path, err = session.DefaultPath(); err != nil {
				return nil, err
			}
		}
		o.backend = session.NewFileBackend(path)
	}
	policy, err := guard.ParsePolicy(cfg.SessionPolicy)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Cache:    cache.New(),
		Registry: prometheus.NewRegistry(),
		logger:   o.logger,
	}
	app.Metrics = metrics.NewCollector(app.Registry)

	tokens := &sessionToken{override: cfg.APIToken}
	apiOpts := []client.Option{
		client.WithTimeout(cfg.RequestTimeout),
		client.WithTokenSource(tokens),
		client.WithLogger(o.logger.With("component", "api")),
	}
	if o.httpClient != nil {
		apiOpts = append([]client.Option{client.WithHTTPClient(o.httpClient)}, apiOpts...)
	}
	app.API = client.NewClient(cfg.APIBaseURL, apiOpts...)

	app.Sessions = session.NewStore(app.API, o.backend, o.logger.With("component", "session"))
	tokens.store = app.Sessions
	app.Guard = guard.New(app.Sessions, policy,
		guard.WithClock(o.now),
		guard.WithLogger(o.logger.With("component", "guard")),
	)

	tempIDs := &mutation.TempIDs{}
	app.clients = newCollection(app, KeyClients, cfg.Cache.ClientsMaxAge, app.API.ListClients,
		clientRemote{app.API}, models.FilterClients, tempIDs, o)
	app.jobs = newCollection(app, KeyJobs, cfg.Cache.JobsMaxAge, app.API.ListJobs,
		jobRemote{app.API}, models.FilterJobs, tempIDs, o)
	app.dashboard = query.New(app.Cache, KeyDashboard, app.API.Dashboard, query.Options{
		MaxAge:  cfg.Cache.DashboardMaxAge,
		Timeout: cfg.RequestTimeout,
		Logger:  o.logger.With("component", "query", "key", KeyDashboard),
		Metrics: app.Metrics,
		Now:     o.now,
	})

	// another user must never see the previous user's cached records
	app.unsubAuth = app.Sessions.Subscribe(func(_ session.Session, signedIn bool) {
		if !signedIn {
			app.Cache.Clear()
		}
	})
	return app, nil
}

func newCollection[E models.Entity[E]](
	app *App,
	key cache.Key,
	maxAge time.Duration,
	list query.Loader[[]E],
	remote mutation.Remote[E],
	filter func([]E, string) []E,
	tempIDs *mutation.TempIDs,
	o options,
) *Collection[E] {
	logger := o.logger.With("key", key)
	return &Collection[E]{
		fetcher: query.New(app.Cache, key, list, query.Options{
			MaxAge:  maxAge,
			Timeout: app.Config.RequestTimeout,
			Logger:  logger.With("component", "query"),
			Metrics: app.Metrics,
			Now:     o.now,
		}),
		executor: mutation.New(app.Cache, key, remote, mutation.Options{
			Dependents: dependents[key],
			MaxAge:     maxAge,
			Timeout:    app.Config.RequestTimeout,
			TempIDs:    tempIDs,
			Notifier:   o.notifier,
			Logger:     logger.With("component", "mutation"),
			Metrics:    app.Metrics,
		}),
		filter: filter,
	}
}

// Start restores the persisted session and settles the route guard.
func (a *App) Start(_ context.Context) error {
	if err := a.Sessions.Init(); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	state := a.Guard.Start()
	a.logger.Debug("application started", "guard", state)
	return nil
}

// Close releases subscriptions. The persisted session is kept.
func (a *App) Close() error {
	a.Guard.Stop()
	if a.unsubAuth != nil {
		a.unsubAuth()
	}
	a.Sessions.Dispose()
	return nil
}

// Clients is the client collection.
func (a *App) Clients() *Collection[models.Client] { return a.clients }

// Jobs is the job collection.
func (a *App) Jobs() *Collection[models.Job] { return a.jobs }

// Dashboard returns the aggregate statistics, from cache when fresh.
func (a *App) Dashboard(ctx context.Context) (cache.Snapshot[models.DashboardStats], error) {
	return a.dashboard.Fetch(ctx)
}

// RefreshDashboard forces a network read of the statistics.
func (a *App) RefreshDashboard(ctx context.Context) (cache.Snapshot[models.DashboardStats], error) {
	return a.dashboard.Refresh(ctx)
}

// Login signs in and moves the guard to Authenticated.
func (a *App) Login(ctx context.Context, creds session.Credentials) (session.Session, error) {
	return a.Sessions.Login(ctx, creds)
}

// Register creates an account and signs in.
func (a *App) Register(ctx context.Context, p session.Profile) (session.Session, error) {
	return a.Sessions.Register(ctx, p)
}

// Logout signs out and drops every cached snapshot.
func (a *App) Logout() error {
	return a.Sessions.Logout()
}
