// Package apitest provides an in-memory TradeMate API for tests. It
// issues signed tokens, keeps per-route call counters and lets tests
// inject failures or hold responses back.
package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/trademate-dev/trademate/pkg/models"
)

// Route names, used for call counts and faults.
const (
	RouteLogin        = "login"
	RouteRegister     = "register"
	RouteListClients  = "listClients"
	RouteCreateClient = "createClient"
	RouteUpdateClient = "updateClient"
	RouteDeleteClient = "deleteClient"
	RouteListJobs     = "listJobs"
	RouteCreateJob    = "createJob"
	RouteUpdateJob    = "updateJob"
	RouteDeleteJob    = "deleteJob"
	RouteDashboard    = "dashboard"
)

// Fault changes how a route answers.
type Fault struct {
	// Status, when non-zero, is returned with Message instead of the
	// normal response.
	Status  int
	Message string
	// Drop closes the connection without a response.
	Drop bool
	// Hold blocks the handler until it is closed or the request is
	// cancelled. The fault applies after release.
	Hold <-chan struct{}
	// Once removes the fault after its first use.
	Once bool
}

type account struct {
	email    string
	password string
}

// Server is the fake API.
type Server struct {
	srv    *httptest.Server
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	router *mux.Router

	mu       sync.Mutex
	users    map[string]account
	clients  map[int64]models.Client
	jobs     map[int64]models.Job
	nextID   int64
	calls    map[string]int
	faults   map[string]Fault
	lastAuth string
}

// New starts a server that is closed when tb finishes.
func New(tb testing.TB) *Server {
	s := &Server{
		key:     []byte("apitest-signing-key"),
		ttl:     time.Hour,
		now:     time.Now,
		users:   make(map[string]account),
		clients: make(map[int64]models.Client),
		jobs:    make(map[int64]models.Job),
		calls:   make(map[string]int),
		faults:  make(map[string]Fault),
	}
	s.router = mux.NewRouter()
	s.routes(s.router.PathPrefix("/api").Subrouter())
	s.srv = httptest.NewServer(s.router)
	tb.Cleanup(s.srv.Close)
	return s
}

// URL is the API base URL, including the /api prefix.
func (s *Server) URL() string { return s.srv.URL + "/api" }

// Client returns an HTTP client for the server.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// SetClock overrides the time used for token expiry, timestamps and
// the dashboard's notion of today.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetTokenTTL sets the lifetime of issued tokens.
func (s *Server) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = d
}

func (s *Server) routes(api *mux.Router) {
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost).Name(RouteRegister)

	api.HandleFunc("/clients", s.authed(s.handleListClients)).Methods(http.MethodGet).Name(RouteListClients)
	api.HandleFunc("/clients", s.authed(s.handleCreateClient)).Methods(http.MethodPost).Name(RouteCreateClient)
	api.HandleFunc("/clients/{id:[0-9-]+}", s.authed(s.handleUpdateClient)).Methods(http.MethodPut).Name(RouteUpdateClient)
	api.HandleFunc("/clients/{id:[0-9-]+}", s.authed(s.handleDeleteClient)).Methods(http.MethodDelete).Name(RouteDeleteClient)

	api.HandleFunc("/jobs", s.authed(s.handleListJobs)).Methods(http.MethodGet).Name(RouteListJobs)
	api.HandleFunc("/jobs", s.authed(s.handleCreateJob)).Methods(http.MethodPost).Name(RouteCreateJob)
	api.HandleFunc("/jobs/{id:[0-9-]+}", s.authed(s.handleUpdateJob)).Methods(http.MethodPut).Name(RouteUpdateJob)
	api.HandleFunc("/jobs/{id:[0-9-]+}", s.authed(s.handleDeleteJob)).Methods(http.MethodDelete).Name(RouteDeleteJob)

	api.HandleFunc("/dashboard", s.authed(s.handleDashboard)).Methods(http.MethodGet).Name(RouteDashboard)

	api.Use(s.track)
}

// track counts calls and applies faults before the handler runs.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		s.mu.Lock()
		s.calls[name]++
		f, faulty := s.faults[name]
		if faulty && f.Once {
			delete(s.faults, name)
		}
		s.mu.Unlock()

		if !faulty {
			next.ServeHTTP(w, r)
			return
		}
		if f.Hold != nil {
			select {
			case <-f.Hold:
			case <-r.Context().Done():
				return
			}
		}
		switch {
		case f.Drop:
			dropConnection(w)
		case f.Status != 0:
			writeError(w, f.Status, f.Message)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("apitest: response writer cannot be hijacked")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(fmt.Sprintf("apitest: hijack: %v", err))
	}
	_ = conn.Close()
}

// Fail installs f on route until ClearFault.
func (s *Server) Fail(route string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = f
}

// ClearFault removes the fault on route.
func (s *Server) ClearFault(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, route)
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// LastAuthorization returns the Authorization header of the most recent
// authenticated request.
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// AddUser creates an account.
func (s *Server) AddUser(username, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = account{email: email, password: password}
}

// Token issues a token for username, as login would.
func (s *Server) Token(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(username)
}

func (s *Server) issueLocked(username string) string {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return token
}

// SeedClient stores c, assigning an id when it has none.
func (s *Server) SeedClient(c models.Client) models.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextIDLocked()
	} else if c.ID > s.nextID {
		s.nextID = c.ID
	}
	if c.CreatedAt == nil {
		c.CreatedAt = models.NewLocalTime(s.now())
	}
	c.Unconfirmed = false
	s.clients[c.ID] = c
	return c
}

// SeedJob stores j, assigning an id when it has none. A client reference
// is resolved against the seeded clients.
func (s *Server) SeedJob(j models.Job) models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.ID == 0 {
		j.ID = s.nextIDLocked()
	} else if j.ID > s.nextID {
		s.nextID = j.ID
	}
	if j.Client != nil {
		if c, ok := s.clients[j.Client.ID]; ok {
			j.Client = models.ForClient(c)
		}
	}
	if j.CreatedAt == nil {
		j.CreatedAt = models.NewLocalTime(s.now())
	}
	j.Unconfirmed = false
	s.jobs[j.ID] = j
	return j
}

// Clients returns the stored clients ordered by id.
func (s *Server) Clients() []models.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedClientsLocked()
}

// Jobs returns the stored jobs ordered by id.
func (s *Server) Jobs() []models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedJobsLocked()
}

func (s *Server) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) sortedClientsLocked() []models.Client {
	out := make([]models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) sortedJobsLocked() []models.Job {
	out := make([]models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// authed rejects requests without a valid bearer token.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		s.mu.Lock()
		s.lastAuth = header
		now := s.now
		s.mu.Unlock()

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
			return s.key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(now))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
