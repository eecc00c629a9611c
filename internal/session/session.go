// Package session holds the signed-in identity and its bearer token, and
// persists both across restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/trademate-dev/trademate/pkg/models"
)

// Keys under which the session is persisted.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Session is the authenticated identity.
type Session struct {
	Token    string `json:"-" yaml:"-"`
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	// ExpiresAt comes from the token's exp claim; zero when the token is
	// opaque or carries no expiry.
	ExpiresAt time.Time `json:"-" yaml:"expiresAt,omitempty"`
}

// Expired reports whether the token is known to have expired at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// user is the persisted profile, stored as JSON under UserKey.
type user struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Credentials are what login takes.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Username) == "" {
		errs = append(errs, &models.ValidationError{Field: "username", Message: "is required"})
	}
	if c.Password == "" {
		errs = append(errs, &models.ValidationError{Field: "password", Message: "is required"})
	}
	return errors.Join(errs...)
}

// Profile is what registration takes.
type Profile struct {
	Username string
	Email    string
	Password string
}

// MinPasswordLength is enforced on registration only.
const MinPasswordLength = 6

func (p Profile) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Username) == "" {
		errs = append(errs, &models.ValidationError{Field: "username", Message: "is required"})
	}
	if strings.TrimSpace(p.Email) == "" {
		errs = append(errs, &models.ValidationError{Field: "email", Message: "is required"})
	} else if err := models.ValidateEmail("email", strings.TrimSpace(p.Email)); err != nil {
		errs = append(errs, err)
	}
	if len(p.Password) < MinPasswordLength {
		errs = append(errs, &models.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters", MinPasswordLength),
		})
	}
	return errors.Join(errs...)
}

// Authenticator is the API side of login and registration.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (token string, err error)
	Register(ctx context.Context, username, email, password string) (token string, err error)
}

// Store owns the current session. Create it with NewStore, call Init once
// at start-up and Dispose at shutdown.
type Store struct {
	auth    Authenticator
	backend Backend
	logger  *slog.Logger

	mu      sync.RWMutex
	current *Session

	subMu     sync.Mutex
	subs      map[int]func(Session, bool)
	nextSubID int
}

// NewStore creates a store. auth may be nil when only persisted sessions
// are needed, e.g. for logout.
func NewStore(auth Authenticator, backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		auth:    auth,
		backend: backend,
		logger:  logger,
		subs:    make(map[int]func(Session, bool)),
	}
}

// Init loads a persisted session, if any. A corrupt or partial record is
// discarded rather than treated as signed in.
func (s *Store) Init() error {
	token, hasToken, err := s.backend.Get(TokenKey)
	var raw string
	var hasUser bool
	if err == nil {
		raw, hasUser, err = s.backend.Get(UserKey)
	}
	if errors.Is(err, ErrCorrupt) {
		s.logger.Warn("discarding corrupt persisted session", "error", err)
		s.clearBackend()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if !hasToken || !hasUser || token == "" {
		if hasToken || hasUser {
			s.logger.Warn("discarding incomplete persisted session")
			s.clearBackend()
		}
		return nil
	}

	var u user
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.Username == "" {
		s.logger.Warn("discarding unreadable persisted session", "error", err)
		s.clearBackend()
		return nil
	}

	sess := newSession(token, u.Username, u.Email)
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	s.logger.Debug("restored session", "username", sess.Username)
	return nil
}

// Dispose drops all subscribers. The persisted session is left alone.
func (s *Store) Dispose() {
	s.subMu.Lock()
	s.subs = make(map[int]func(Session, bool))
	s.subMu.Unlock()
}

// Current returns the signed-in session.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Token returns the bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Login signs in. On rejection the store is left unchanged.
func (s *Store) Login(ctx context.Context, creds Credentials) (Session, error) {
	if err := creds.Validate(); err != nil {
		return Session{}, err
	}
	if s.auth == nil {
		return Session{}, errors.New("login: no authenticator configured")
	}
	token, err := s.auth.Login(ctx, strings.TrimSpace(creds.Username), creds.Password)
	if err != nil {
		return Session{}, fmt.Errorf("login failed: %w", err)
	}
	return s.establish(newSession(token, strings.TrimSpace(creds.Username), ""))
}

// Register creates an account and signs in as it.
func (s *Store) Register(ctx context.Context, p Profile) (Session, error) {
	if err := p.Validate(); err != nil {
		return Session{}, err
	}
	if s.auth == nil {
		return Session{}, errors.New("register: no authenticator configured")
	}
	username, email := strings.TrimSpace(p.Username), strings.TrimSpace(p.Email)
	token, err := s.auth.Register(ctx, username, email, p.Password)
	if err != nil {
		return Session{}, fmt.Errorf("registration failed: %w", err)
	}
	return s.establish(newSession(token, username, email))
}

// Logout forgets the session in memory and on disk.
func (s *Store) Logout() error {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	err := errors.Join(s.backend.Delete(TokenKey), s.backend.Delete(UserKey))
	if prev != nil {
		s.logger.Info("signed out", "username", prev.Username)
		s.notify(Session{}, false)
	}
	if err != nil {
		return fmt.Errorf("failed to clear persisted session: %w", err)
	}
	return nil
}

// Subscribe registers fn for sign-in and sign-out events.
func (s *Store) Subscribe(fn func(sess Session, signedIn bool)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(sess Session, signedIn bool) {
	s.subMu.Lock()
	fns := make([]func(Session, bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(sess, signedIn)
	}
}

// establish persists sess and only then makes it current, so a failed
// write never leaves a half-signed-in store.
func (s *Store) establish(sess Session) (Session, error) {
	raw, err := json.Marshal(user{Username: sess.Username, Email: sess.Email})
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.backend.Set(TokenKey, sess.Token); err != nil {
		return Session{}, fmt.Errorf("failed to persist session: %w", err)
	}
	if err := s.backend.Set(UserKey, string(raw)); err != nil {
		s.clearBackend()
		return Session{}, fmt.Errorf("failed to persist session: %w", err)
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	s.logger.Info("signed in", "username", sess.Username)
	s.notify(sess, true)
	return sess, nil
}

func (s *Store) clearBackend() {
	if err := errors.Join(s.backend.Delete(TokenKey), s.backend.Delete(UserKey)); err != nil {
		s.logger.Warn("failed to clear persisted session", "error", err)
	}
}

func newSession(token, username, email string) Session {
	sess := Session{Token: token, Username: username, Email: email}
	if claims, ok := decodeClaims(token); ok {
		if claims.ExpiresAt != nil {
			sess.ExpiresAt = claims.ExpiresAt.Time
		}
		if sess.Username == "" {
			sess.Username = claims.Subject
		}
	}
	return sess
}

// decodeClaims reads the registered claims of a JWT without verifying its
// signature; the server is the only party that can do that. Opaque tokens
// report ok=false.
func decodeClaims(token string) (*jwt.RegisteredClaims, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}
