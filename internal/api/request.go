package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/mexc-futures/internal/metrics"
)

// ErrNoAuthToken is returned for private requests without a WEB token.
var ErrNoAuthToken = errors.New("auth token is not configured")

// codeSignature is the exchange code for a rejected request signature.
const codeSignature = 602

// APIError represents an error from the futures API.
type APIError struct {
	StatusCode int
	Code       int // Exchange code from the response envelope, 0 if absent
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("mexc api error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("mexc api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// IsAuth reports an expired or invalid token or signature.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == codeSignature
}

// Request describes one REST call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any  // Marshaled as compact JSON and signed when Auth is set
	Auth   bool // Send the WEB token
}

// envelope is the common response wrapper.
type envelope struct {
	Success *bool  `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Do performs req with retries and returns the raw response body.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		body = b
	}
	if req.Auth && c.signer == nil {
		return nil, ErrNoAuthToken
	}

	data, err := c.doWithRetry(ctx, req, body)
	if err != nil {
		return nil, err
	}

	c.session.NotifyActivity()
	return data, nil
}

// Get performs a public GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// GetPrivate performs an authenticated GET request.
func (c *Client) GetPrivate(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Auth: true})
}

// Post performs an authenticated, signed POST request.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Auth: true})
}

// doRequest performs a single HTTP request.
func (c *Client) doRequest(ctx context.Context, r Request, body []byte) ([]byte, error) {
	httpClient, err := c.session.Client(ctx)
	if err != nil {
		return nil, err
	}

	fullURL := c.baseURL + r.Path
	if len(r.Query) > 0 {
		fullURL += "?" + r.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if r.Auth {
		for k, v := range c.signer.Headers(body) {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	metrics.APIRequestSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(r.Method, "error").Inc()
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	_ = json.Unmarshal(data, &env)

	if resp.StatusCode >= 400 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       env.Code,
			Message:    msg,
			Body:       data,
		}
	}

	if env.Success != nil && !*env.Success {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       env.Code,
			Message:    env.Message,
			Body:       data,
		}
	}

	return data, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, r Request, body []byte) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", r.Path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		data, err := c.doRequest(ctx, r, body)
		if err == nil {
			return data, nil
		}

		lastErr = err

		// Check if error is retryable
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET request and decodes the response into result.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	data, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
