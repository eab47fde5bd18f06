package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"adsbglobe/pkg/tracker"
	"adsbglobe/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("adsbglobe/%s", version.Version)

// ErrMaxRetries is returned when every attempt hit a retryable failure.
var ErrMaxRetries = errors.New("max retries exceeded")

// StatusError is returned for a non-success HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api error: status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("api error: status %d", e.Code)
}

// ClientConfig holds retry and timeout settings.
type ClientConfig struct {
	Retries   int
	Timeout   time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Client performs HTTP requests with retries, per-host backoff and tracking.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
	backoff    *HostBackoff
	retries    int
	baseDelay  time.Duration
	source     string
}

// New creates a new Client. source names the tracker bucket requests are
// counted under.
func New(source string, t *tracker.Tracker, cfg ClientConfig) *Client {
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if t == nil {
		t = tracker.New()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tracker:    t,
		backoff:    NewHostBackoff(cfg.BaseDelay, cfg.MaxDelay),
		retries:    cfg.Retries,
		baseDelay:  cfg.BaseDelay,
		source:     source,
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, u, nil, headers)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, u, body, headers)
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, headers map[string]string) ([]byte, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	host := parsed.Host

	if err := c.backoff.Wait(ctx, host); err != nil {
		return nil, err
	}

	newReq := func() (*http.Request, error) {
		var rd io.Reader = http.NoBody
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", defaultUserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}

	resp, err := c.executeWithBackoff(ctx, newReq)
	if err != nil {
		c.tracker.TrackFailure(c.source)
		c.backoff.RecordFailure(host)
		return nil, err
	}
	c.backoff.RecordSuccess(host)
	return resp, nil
}

// executeWithBackoff attempts the request with exponential backoff on retryable errors.
func (c *Client) executeWithBackoff(ctx context.Context, newReq func() (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt > 0 {
			c.tracker.TrackRetry(c.source)
			sleepDur := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseDelay
			select {
			case <-time.After(sleepDur):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}

		slog.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		c.tracker.TrackRequest(c.source)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("Request failed, retrying", "host", req.URL.Host, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			msg := readSnippet(resp.Body)
			resp.Body.Close()
			slog.Warn("API Backoff", "status", resp.StatusCode, "host", req.URL.Host, "attempt", attempt+1)
			lastErr = &StatusError{Code: resp.StatusCode, Body: msg}
			continue
		}

		if resp.StatusCode >= 300 {
			msg := readSnippet(resp.Body)
			resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, Body: msg}
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrMaxRetries, lastErr)
}

// readSnippet reads a bounded prefix of an error body for diagnostics.
func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(bytes.TrimSpace(b))
}
