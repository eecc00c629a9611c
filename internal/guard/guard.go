// Package guard decides whether a route may be entered based on the
// session state.
package guard

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/trademate-dev/trademate/internal/session"
)

// State of the guard. Loading is initial; Start moves to one of the
// other two exactly once.
type State int

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Decision is the outcome of Check.
type Decision int

const (
	Proceed Decision = iota
	// Wait means the persisted session has not been consulted yet.
	Wait
	RedirectLogin
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Wait:
		return "wait"
	case RedirectLogin:
		return "redirect-login"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// Policy decides how much a persisted session is trusted at start-up.
type Policy string

const (
	// PolicyTrust accepts any persisted session without verification.
	PolicyTrust Policy = "trust"
	// PolicyExpiry rejects a persisted session whose token exp claim has
	// passed, and clears it.
	PolicyExpiry Policy = "expiry"
)

// ParsePolicy accepts "trust" or "expiry"; empty means trust.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyTrust, nil
	case PolicyTrust, PolicyExpiry:
		return p, nil
	}
	return "", fmt.Errorf("unknown session policy %q (want %q or %q)", s, PolicyTrust, PolicyExpiry)
}

// DefaultPublicRoutes can be entered without a session.
var DefaultPublicRoutes = []string{"login", "register"}

// Sessions is the part of the session store the guard depends on.
type Sessions interface {
	Current() (session.Session, bool)
	Logout() error
	Subscribe(fn func(sess session.Session, signedIn bool)) (unsubscribe func())
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// WithPublicRoutes replaces DefaultPublicRoutes.
func WithPublicRoutes(routes ...string) Option {
	return func(g *Guard) {
		g.public = make(map[string]bool, len(routes))
		for _, r := range routes {
			g.public[r] = true
		}
	}
}

// Guard gates routes on the session state.
type Guard struct {
	sessions Sessions
	policy   Policy
	now      func() time.Time
	logger   *slog.Logger
	public   map[string]bool

	mu    sync.RWMutex
	state State
	unsub func()
}

// New creates a guard in the Loading state.
func New(sessions Sessions, policy Policy, opts ...Option) *Guard {
	g := &Guard{
		sessions: sessions,
		policy:   policy,
		now:      time.Now,
		logger:   slog.Default(),
		state:    Loading,
	}
	WithPublicRoutes(DefaultPublicRoutes...)(g)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start consults the session store once and leaves Loading. Later calls
// return the current state without re-checking.
func (g *Guard) Start() State {
	g.mu.Lock()
	if g.state != Loading {
		defer g.mu.Unlock()
		return g.state
	}

	sess, ok := g.sessions.Current()
	expired := ok && g.policy == PolicyExpiry && sess.Expired(g.now())
	switch {
	case expired:
		g.state = Unauthenticated
	case ok:
		g.state = Authenticated
	default:
		g.state = Unauthenticated
	}
	g.unsub = g.sessions.Subscribe(g.onSessionChange)
	state := g.state
	g.mu.Unlock()

	if expired {
		g.logger.Info("persisted session expired", "username", sess.Username, "expired_at", sess.ExpiresAt)
		// logout notifies onSessionChange, which takes the lock
		if err := g.sessions.Logout(); err != nil {
			g.logger.Warn("failed to clear expired session", "error", err)
		}
	}
	g.logger.Debug("guard started", "state", state, "policy", g.policy)
	return state
}

// Stop detaches the guard from the session store.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unsub != nil {
		g.unsub()
		g.unsub = nil
	}
}

func (g *Guard) onSessionChange(_ session.Session, signedIn bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Loading {
		return
	}
	prev := g.state
	if signedIn {
		g.state = Authenticated
	} else {
		g.state = Unauthenticated
	}
	if prev != g.state {
		g.logger.Debug("guard transition", "from", prev, "to", g.state)
	}
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// IsPublic reports whether route can be entered without a session.
func (g *Guard) IsPublic(route string) bool {
	return g.public[route]
}

// Check decides whether route may be entered now.
func (g *Guard) Check(route string) Decision {
	if g.IsPublic(route) {
		return Proceed
	}
	switch g.State() {
	case Loading:
		return Wait
	case Authenticated:
		return Proceed
	default:
		return RedirectLogin
	}
}
