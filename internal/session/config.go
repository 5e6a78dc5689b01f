package session

import (
	"time"
)

// DefaultBaseURL is the REST API root used for warm-up and keep-alive probes.
const DefaultBaseURL = "https://futures.mexc.com/api/v1"

// Probe endpoint used for warm-up and keep-alive.
const (
	ProbePath   = "/contract/ticker"
	ProbeSymbol = "BTC_USDT"
)

// Config configures a Manager.
type Config struct {
	BaseURL string // REST API root, no trailing slash

	ConnectTimeout time.Duration // TCP dial + TLS handshake
	ReadTimeout    time.Duration // Wait for response headers
	WriteTimeout   time.Duration // HTTP/2 frame write deadline
	PoolTimeout    time.Duration // Added to the overall request budget

	MaxConnections          int           // Per-host connection cap
	MaxKeepaliveConnections int           // Idle connections kept in the pool
	KeepaliveExpiry         time.Duration // Idle connection lifetime
	DisableHTTP2            bool

	PingInterval time.Duration // Keep-alive probe period
	MaxIdlePings int           // Idle probes tolerated before the session expires

	Proxy string // Optional upstream proxy (http, https, socks5, socks5h)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:                 DefaultBaseURL,
		ConnectTimeout:          10 * time.Second,
		ReadTimeout:             30 * time.Second,
		WriteTimeout:            10 * time.Second,
		PoolTimeout:             10 * time.Second,
		MaxConnections:          10,
		MaxKeepaliveConnections: 5,
		KeepaliveExpiry:         120 * time.Second,
		PingInterval:            30 * time.Second,
		MaxIdlePings:            10,
	}
}

// requestTimeout is the whole-request budget handed to http.Client.
func (c Config) requestTimeout() time.Duration {
	return c.ConnectTimeout + c.WriteTimeout + c.ReadTimeout + c.PoolTimeout
}
