package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nhle/todoboard/internal/model"
)

// KnownTotal is the size of the public mock collection. The service
// sends no count header, so offset pagination relies on this constant;
// it does not generalize to other datasets.
const KnownTotal = 200

const todosPath = "/todos"

// Client is a thin HTTP client for the remote todo collection.
// It performs exactly one attempt per call: no caching, no retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	requests   atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets a transport-level deadline on every request.
// A zero or negative value leaves requests without a deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the collection rooted at baseURL
// (e.g., https://jsonplaceholder.typicode.com).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Requests returns the number of requests issued so far.
func (c *Client) Requests() int64 {
	return c.requests.Load()
}

// FetchAll retrieves the entire collection.
func (c *Client) FetchAll(ctx context.Context) ([]model.Todo, error) {
	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, todosPath, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// FetchPage retrieves the sub-range starting at the zero-based offset.
func (c *Client) FetchPage(ctx context.Context, offset, limit int) ([]model.Todo, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("%w: offset=%d limit=%d", ErrInvalidRange, offset, limit)
	}

	q := url.Values{}
	q.Set("_start", strconv.Itoa(offset))
	q.Set("_limit", strconv.Itoa(limit))

	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, todosPath+"?"+q.Encode(), nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// Create submits a new record and returns it with the server-assigned id.
// The mock service accepts the write without persisting it, so the new
// record is not expected to show up in later FetchAll results.
func (c *Client) Create(ctx context.Context, draft model.Draft) (model.Todo, error) {
	var created model.Todo
	if err := c.do(ctx, http.MethodPost, todosPath, draft, &created); err != nil {
		return model.Todo{}, err
	}
	return created, nil
}

// do builds the request, sends it once and decodes the JSON response.
// Every failure is reported as a *TransportError.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	fail := func(status int, err error) error {
		return &TransportError{Method: method, Path: path, StatusCode: status, Err: err}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fail(0, fmt.Errorf("marshaling request body: %w", err))
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fail(0, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}

	c.requests.Add(1)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "error", err)
		return fail(0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("reading response body: %w", err))
	}

	c.logger.Debug("request done",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(resp.StatusCode, fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(respBody))))
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("unmarshaling response: %w", err))
	}

	return nil
}
