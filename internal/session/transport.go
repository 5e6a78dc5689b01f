package session

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"
)

// ClientFactory builds the HTTP client backing a session.
type ClientFactory func(cfg Config) (*http.Client, error)

// NewHTTPClient builds a pooled client with TLS 1.3 as the floor and HTTP/2
// negotiated via ALPN unless disabled.
func NewHTTPClient(cfg Config) (*http.Client, error) {
	proxy, err := proxyFunc(cfg.Proxy)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 proxy,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS13},
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxConnsPerHost:       cfg.MaxConnections,
		MaxIdleConns:          cfg.MaxKeepaliveConnections,
		MaxIdleConnsPerHost:   cfg.MaxKeepaliveConnections,
		IdleConnTimeout:       cfg.KeepaliveExpiry,
		ForceAttemptHTTP2:     !cfg.DisableHTTP2,
	}

	if !cfg.DisableHTTP2 {
		h2, err := http2.ConfigureTransports(transport)
		if err != nil {
			return nil, fmt.Errorf("configure http2: %w", err)
		}
		h2.WriteByteTimeout = cfg.WriteTimeout
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.requestTimeout(),
	}, nil
}

func proxyFunc(raw string) (func(*http.Request) (*url.URL, error), error) {
	if raw == "" {
		return http.ProxyFromEnvironment, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy: %w", err)
	}

	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy %q has no host", raw)
	}

	return http.ProxyURL(u), nil
}
