package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/mexc-futures/internal/auth"
)

// Session supplies the HTTP client and receives activity notifications.
// *session.Manager implements it.
type Session interface {
	Client(ctx context.Context) (*http.Client, error)
	NotifyActivity()
}

// Client provides access to the futures REST API.
type Client struct {
	baseURL string
	session Session
	signer  *auth.TokenSigner
	logger  *slog.Logger

	userAgent string

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client.
func NewClient(baseURL string, session Session, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      baseURL,
		session:      session,
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithAuthToken sets the WEB token used for private endpoints.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) {
		if token == "" {
			c.signer = nil
			return
		}
		c.signer = auth.NewTokenSigner(token)
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}
