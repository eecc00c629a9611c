package session

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trademate-dev/trademate/internal/client"
	"github.com/trademate-dev/trademate/pkg/models"
)

type fakeAuth struct {
	users map[string]string
	token string
	calls int
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (string, error) {
	f.calls++
	if pw, ok := f.users[username]; !ok || pw != password {
		return "", &client.AuthError{StatusError: client.StatusError{Op: "login", StatusCode: http.StatusUnauthorized}}
	}
	return f.token, nil
}

func (f *fakeAuth) Register(ctx context.Context, username, email, password string) (string, error) {
	f.calls++
	f.users[username] = password
	return f.token, nil
}

func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

func TestLoginPersistsAndRestores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trademate", "session.json")
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	auth := &fakeAuth{users: map[string]string{"alice": "secret"}, token: signedToken(t, "alice", exp)}

	store := NewStore(auth, NewFileBackend(path), nil)
	require.NoError(t, store.Init())
	_, ok := store.Current()
	assert.False(t, ok)

	var events []bool
	store.Subscribe(func(_ Session, signedIn bool) { events = append(events, signedIn) })

	sess, err := store.Login(context.Background(), Credentials{Username: " alice ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, auth.token, store.Token())
	assert.True(t, sess.ExpiresAt.Equal(exp))
	assert.Equal(t, []bool{true}, events)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// a new process sees the same session
	restarted := NewStore(nil, NewFileBackend(path), nil)
	require.NoError(t, restarted.Init())
	got, ok := restarted.Current()
	require.True(t, ok)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, auth.token, got.Token)

	require.NoError(t, restarted.Logout())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoginRejectedLeavesStoreUnchanged(t *testing.T) {
	backend := NewMemoryBackend()
	auth := &fakeAuth{users: map[string]string{"alice": "secret"}, token: "opaque"}
	store := NewStore(auth, backend, nil)
	require.NoError(t, store.Init())

	notified := false
	store.Subscribe(func(Session, bool) { notified = true })

	_, err := store.Login(context.Background(), Credentials{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	var authErr *client.AuthError
	assert.True(t, errors.As(err, &authErr))

	_, ok := store.Current()
	assert.False(t, ok)
	_, persisted, _ := backend.Get(TokenKey)
	assert.False(t, persisted)
	assert.False(t, notified)
}

func TestLoginValidation(t *testing.T) {
	auth := &fakeAuth{users: map[string]string{}}
	store := NewStore(auth, NewMemoryBackend(), nil)

	_, err := store.Login(context.Background(), Credentials{Username: "", Password: ""})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Zero(t, auth.calls)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		field   string
	}{
		{"short password", Profile{Username: "bob", Email: "bob@example.com", Password: "12345"}, "password"},
		{"bad email", Profile{Username: "bob", Email: "bob@", Password: "123456"}, "email"},
		{"no username", Profile{Email: "bob@example.com", Password: "123456"}, "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{users: map[string]string{}}
			store := NewStore(auth, NewMemoryBackend(), nil)
			_, err := store.Register(context.Background(), tt.profile)
			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.Zero(t, auth.calls)
		})
	}
}

func TestRegisterSignsIn(t *testing.T) {
	auth := &fakeAuth{users: map[string]string{}, token: "opaque-token"}
	store := NewStore(auth, NewMemoryBackend(), nil)

	sess, err := store.Register(context.Background(), Profile{Username: "bob", Email: "bob@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", sess.Email)
	assert.True(t, sess.ExpiresAt.IsZero())
	assert.False(t, sess.Expired(time.Now()))
	assert.Equal(t, "opaque-token", store.Token())
}

func TestInitDiscardsPartialRecord(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Set(TokenKey, "orphan"))

	store := NewStore(nil, backend, nil)
	require.NoError(t, store.Init())
	_, ok := store.Current()
	assert.False(t, ok)
	_, has, _ := backend.Get(TokenKey)
	assert.False(t, has)
}

func TestInitDiscardsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewStore(nil, NewFileBackend(path), nil)
	require.NoError(t, store.Init())
	_, ok := store.Current()
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestInitDiscardsUnreadableUser(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Set(TokenKey, "token"))
	require.NoError(t, backend.Set(UserKey, "{}"))

	store := NewStore(nil, backend, nil)
	require.NoError(t, store.Init())
	_, ok := store.Current()
	assert.False(t, ok)
}

// failingBackend refuses to store the user record.
type failingBackend struct{ *MemoryBackend }

func (f failingBackend) Set(key, value string) error {
	if key == UserKey {
		return errors.New("disk full")
	}
	return f.MemoryBackend.Set(key, value)
}

func TestFailedPersistDoesNotSignIn(t *testing.T) {
	backend := failingBackend{NewMemoryBackend()}
	auth := &fakeAuth{users: map[string]string{"alice": "secret"}, token: "t"}
	store := NewStore(auth, backend, nil)

	_, err := store.Login(context.Background(), Credentials{Username: "alice", Password: "secret"})
	require.Error(t, err)
	_, ok := store.Current()
	assert.False(t, ok)
	_, has, _ := backend.Get(TokenKey)
	assert.False(t, has)
}

func TestLogoutNotifiesOnlyWhenSignedIn(t *testing.T) {
	auth := &fakeAuth{users: map[string]string{"alice": "secret"}, token: "t"}
	store := NewStore(auth, NewMemoryBackend(), nil)

	var events []bool
	unsubscribe := store.Subscribe(func(_ Session, signedIn bool) { events = append(events, signedIn) })
	require.NoError(t, store.Logout())
	assert.Empty(t, events)

	_, err := store.Login(context.Background(), Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, store.Logout())
	assert.Equal(t, []bool{true, false}, events)

	unsubscribe()
	_, _ = store.Login(context.Background(), Credentials{Username: "alice", Password: "secret"})
	assert.Len(t, events, 2)
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Session{}.Expired(now))
	assert.True(t, Session{ExpiresAt: now}.Expired(now))
	assert.False(t, Session{ExpiresAt: now.Add(time.Second)}.Expired(now))
}
