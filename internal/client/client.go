package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trademate-dev/trademate/pkg/models"
)

const (
	// DefaultBaseURL is where a locally running TradeMate API listens.
	DefaultBaseURL = "http://localhost:8080/api"
	// DefaultTimeout bounds every request so no call blocks indefinitely.
	DefaultTimeout = 15 * time.Second

	requestIDHeader = "X-Request-ID"
)

// TokenSource supplies the bearer credential for authenticated calls.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client is a thin JSON client for the TradeMate REST API.
type Client struct {
	BaseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithTokenSource sets where the bearer token comes from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient constructs a client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %T: %w", in, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "method", req.Method, "path", req.URL.Path, "error", err)
		return &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("request done",
		"op", op,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"request_id", req.Header.Get(requestIDHeader),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// read up to 1KB of body for error message
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return classify(op, resp.StatusCode, errBody)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		// a body cut off mid-read is a transport problem, not a bad payload
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return &NetworkError{Op: op, Err: ctxErr}
		}
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

func (c *Client) doJSONRequest(ctx context.Context, op, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	return c.doJSON(req, op, out)
}

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login exchanges a username and password for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp tokenResponse
	if err := c.doJSONRequest(ctx, "login", http.MethodPost, "/auth/login",
		credentials{Username: username, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login: response did not include a token")
	}
	return resp.Token, nil
}

// Register creates an account and returns its session token.
func (c *Client) Register(ctx context.Context, username, email, password string) (string, error) {
	var resp tokenResponse
	if err := c.doJSONRequest(ctx, "register", http.MethodPost, "/auth/register",
		credentials{Username: username, Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("register: response did not include a token")
	}
	return resp.Token, nil
}

// ListClients returns every client of the signed-in user.
func (c *Client) ListClients(ctx context.Context) ([]models.Client, error) {
	var out []models.Client
	if err := c.doJSONRequest(ctx, "list clients", http.MethodGet, "/clients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateClient stores a new client. The id of in is ignored.
func (c *Client) CreateClient(ctx context.Context, in models.Client) (models.Client, error) {
	in.ID = 0
	var out models.Client
	err := c.doJSONRequest(ctx, "create client", http.MethodPost, "/clients", in, &out)
	return out, err
}

// UpdateClient replaces the client with the given id.
func (c *Client) UpdateClient(ctx context.Context, id int64, in models.Client) (models.Client, error) {
	in.ID = id
	var out models.Client
	err := c.doJSONRequest(ctx, "update client", http.MethodPut, "/clients/"+strconv.FormatInt(id, 10), in, &out)
	return out, err
}

// DeleteClient removes the client with the given id.
func (c *Client) DeleteClient(ctx context.Context, id int64) error {
	return c.doJSONRequest(ctx, "delete client", http.MethodDelete, "/clients/"+strconv.FormatInt(id, 10), nil, nil)
}

// jobPayload is the write shape of a job: the client is referenced by id
// only, or null.
type jobPayload struct {
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Status        models.Status     `json:"status"`
	ScheduledDate *models.LocalTime `json:"scheduledDate"`
	Address       string            `json:"address,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Client        *clientID         `json:"client"`
}

type clientID struct {
	ID int64 `json:"id"`
}

func newJobPayload(j models.Job) jobPayload {
	p := jobPayload{
		Title:         j.Title,
		Description:   j.Description,
		Status:        j.Status,
		ScheduledDate: j.ScheduledDate,
		Address:       j.Address,
		Notes:         j.Notes,
	}
	if j.Client != nil {
		p.Client = &clientID{ID: j.Client.ID}
	}
	return p
}

// ListJobs returns every job of the signed-in user.
func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	var out []models.Job
	if err := c.doJSONRequest(ctx, "list jobs", http.MethodGet, "/jobs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateJob stores a new job.
func (c *Client) CreateJob(ctx context.Context, in models.Job) (models.Job, error) {
	var out models.Job
	err := c.doJSONRequest(ctx, "create job", http.MethodPost, "/jobs", newJobPayload(in), &out)
	return out, err
}

// UpdateJob replaces the job with the given id.
func (c *Client) UpdateJob(ctx context.Context, id int64, in models.Job) (models.Job, error) {
	var out models.Job
	err := c.doJSONRequest(ctx, "update job", http.MethodPut, "/jobs/"+strconv.FormatInt(id, 10), newJobPayload(in), &out)
	return out, err
}

// DeleteJob removes the job with the given id.
func (c *Client) DeleteJob(ctx context.Context, id int64) error {
	return c.doJSONRequest(ctx, "delete job", http.MethodDelete, "/jobs/"+strconv.FormatInt(id, 10), nil, nil)
}

// Dashboard returns the aggregate job statistics.
func (c *Client) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	var out models.DashboardStats
	err := c.doJSONRequest(ctx, "dashboard", http.MethodGet, "/dashboard", nil, &out)
	return out, err
}
