// ckan/client.go
package ckan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL       = "https://data.boston.gov/api/3/action"
	defaultUserAgent     = "bostondata-etl/1.0"
	defaultMaxPerRequest = 10000
	defaultTimeout       = 30 * time.Second
)

// Record is one raw upstream record: field name -> value, exactly as the
// datastore returned it. It only lives for the duration of a fetch.
type Record map[string]any

// RetryConfig controls the per-page retry policy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	StatusCodes map[int]struct{} // HTTP statuses considered transient
}

// DefaultRetryConfig is 3 attempts with exponential backoff (2s base, 10s cap),
// retrying 5xx and 429 only.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		StatusCodes: map[int]struct{}{
			http.StatusTooManyRequests:     {},
			http.StatusInternalServerError: {},
			http.StatusBadGateway:          {},
			http.StatusServiceUnavailable:  {},
			http.StatusGatewayTimeout:      {},
		},
	}
}

// APIError is a non-2xx response from the datastore API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ckan api error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ckan api error: status %d", e.StatusCode)
}

// Client talks to a CKAN datastore API. It holds no mutable state across
// calls; one client is safe for concurrent use by independent connectors.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	userAgent     string
	maxPerRequest int
	retry         RetryConfig
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMaxRecordsPerRequest caps the page size used for offset pagination.
// The portal itself refuses anything above 10000.
func WithMaxRecordsPerRequest(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPerRequest = n
		}
	}
}

func WithRetryConfig(rc RetryConfig) Option {
	return func(c *Client) { c.retry = rc }
}

// New creates a Client with sensible defaults for data.boston.gov.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		userAgent:     defaultUserAgent,
		maxPerRequest: defaultMaxPerRequest,
		retry:         DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the CKAN action API response wrapper:
// {"success": true, "result": {"records": [...], "total": N}}
type envelope struct {
	Success bool            `json:"success"`
	Result  searchResult    `json:"result"`
	Error   json.RawMessage `json:"error"`
}

type searchResult struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
}

// doAction performs one GET against baseURL/<action>?<params> and decodes the
// envelope. No retries at this level.
func (c *Client) doAction(ctx context.Context, action string, params url.Values) (*searchResult, error) {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, action, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", action, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response body: %w", action, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiErrorMessage(body)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	if !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiErrorMessage(body)}
	}
	return &env.Result, nil
}

// apiErrorMessage digs a human-readable message out of a CKAN error body.
func apiErrorMessage(body []byte) string {
	var failed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &failed); err == nil && failed.Error.Message != "" {
		return failed.Error.Message
	}
	const maxLen = 200
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	return string(body)
}

// shouldRetry decides whether an error from doAction is transient. Bad
// requests (malformed SQL, unknown resource) surface immediately.
func (c *Client) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		_, ok := c.retry.StatusCodes[apiErr.StatusCode]
		return ok
	}
	// Network-level failures (connection refused, per-call timeout) are
	// worth retrying.
	return true
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retry.BaseDelay << (attempt - 1)
	if delay > c.retry.MaxDelay {
		delay = c.retry.MaxDelay
	}
	return delay
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withRetry runs one action call under the retry policy.
func (c *Client) withRetry(ctx context.Context, action string, params url.Values) (*searchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		result, err := c.doAction(ctx, action, params)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !c.shouldRetry(ctx, err) {
			return nil, err
		}
		if attempt < c.retry.MaxAttempts {
			delay := c.backoffDelay(attempt)
			if sleepErr := sleepWithContext(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w", action, c.retry.MaxAttempts, lastErr)
}
