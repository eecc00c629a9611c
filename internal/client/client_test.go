package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trademate-dev/trademate/pkg/models"
)

func TestNewClient(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)

	c = NewClient("http://example.test/api/", WithTimeout(time.Second))
	assert.Equal(t, "http://example.test/api", c.BaseURL)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(server.URL, WithTokenSource(StaticToken("abc123")))
	_, err := c.ListClients(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer abc123", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	_, err = uuid.Parse(got.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestNoTokenNoAuthorization(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{"token":"t"}`))
	}))
	defer server.Close()

	token, err := NewClient(server.URL).Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "t", token)
	assert.Empty(t, got.Get("Authorization"))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{http.StatusUnauthorized, `{"error":"bad credentials"}`, func(t *testing.T, err error) {
			var target *AuthError
			require.True(t, errors.As(err, &target))
			assert.Equal(t, "bad credentials", target.Message)
		}},
		{http.StatusNotFound, ``, func(t *testing.T, err error) {
			var target *NotFoundError
			assert.True(t, errors.As(err, &target))
		}},
		{http.StatusUnprocessableEntity, `{"message":"title is required"}`, func(t *testing.T, err error) {
			var target *ValidationError
			require.True(t, errors.As(err, &target))
			assert.Equal(t, "title is required", target.Message)
		}},
		{http.StatusConflict, `conflict`, func(t *testing.T, err error) {
			var target *ConflictError
			require.True(t, errors.As(err, &target))
			assert.Equal(t, "conflict", target.Message)
		}},
		{http.StatusInternalServerError, ``, func(t *testing.T, err error) {
			var target *StatusError
			require.True(t, errors.As(err, &target))
			assert.Equal(t, http.StatusInternalServerError, target.StatusCode)
		}},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).ListJobs(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.status, HTTPStatus(err))
			assert.False(t, IsNetwork(err))
			tt.check(t, err)
		})
	}
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url).ListClients(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Zero(t, HTTPStatus(err))
}

func TestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(server.URL).Dashboard(ctx)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJobPayloadReferencesClientByID(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/jobs/9", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		_, _ = w.Write([]byte(`{"id":9,"title":"Fix Sink","status":"PENDING","client":{"id":3,"name":"Acme Ltd"}}`))
	}))
	defer server.Close()

	in := models.Job{
		ID:     9,
		Title:  "Fix Sink",
		Status: models.StatusPending,
		Client: &models.ClientRef{ID: 3, Name: "Acme Ltd", Email: "ops@acme.test"},
	}
	out, err := NewClient(server.URL).UpdateJob(context.Background(), 9, in)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", out.ClientName())

	assert.Equal(t, map[string]any{"id": float64(3)}, body["client"])
	assert.Contains(t, body, "scheduledDate")
	assert.Nil(t, body["scheduledDate"])
	assert.NotContains(t, body, "id")
}

func TestDetachedJobSendsNullClient(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		_, _ = w.Write([]byte(`{"id":1,"title":"Fix Sink","status":"PENDING"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).CreateJob(context.Background(), models.Job{Title: "Fix Sink", Status: models.StatusPending})
	require.NoError(t, err)
	assert.Contains(t, body, "client")
	assert.Nil(t, body["client"])
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/clients/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	assert.NoError(t, NewClient(server.URL).DeleteClient(context.Background(), 7))
}
