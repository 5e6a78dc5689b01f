package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.API.RestURL == "" {
		return errors.New("api.rest_url is required")
	}
	if c.API.WSURL == "" {
		return errors.New("api.ws_url is required")
	}
	if (c.API.APIKey == "") != (c.API.SecretKey == "") {
		return errors.New("api.api_key and api.secret_key must be set together")
	}

	if c.Session.PingInterval <= 0 {
		return errors.New("session.ping_interval must be > 0")
	}
	if c.Session.MaxIdlePings < 1 {
		return errors.New("session.max_idle_pings must be >= 1")
	}
	if c.Session.MaxKeepaliveConnections > c.Session.MaxConnections {
		return fmt.Errorf("session.max_keepalive_connections (%d) cannot exceed max_connections (%d)",
			c.Session.MaxKeepaliveConnections, c.Session.MaxConnections)
	}
	if err := validateProxy("session.proxy", c.Session.Proxy); err != nil {
		return err
	}

	if c.Stream.PingInterval <= 0 {
		return errors.New("stream.ping_interval must be > 0")
	}
	if c.Stream.ReconnectInterval <= 0 {
		return errors.New("stream.reconnect_interval must be > 0")
	}
	if c.Stream.SendRate < 0 {
		return errors.New("stream.send_rate must be >= 0")
	}
	if err := validateProxy("stream.proxy", c.Stream.Proxy); err != nil {
		return err
	}

	if c.Poller.Concurrency < 1 {
		return errors.New("poller.concurrency must be >= 1")
	}

	if c.Recorder.BatchSize < 1 {
		return errors.New("recorder.batch_size must be >= 1")
	}
	if c.Recorder.BufferSize < 1 {
		return errors.New("recorder.buffer_size must be >= 1")
	}

	if c.Database.Host != "" {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	if !tableNameRe.MatchString(db.Table) {
		return fmt.Errorf("%s.table %q is not a valid identifier", prefix, db.Table)
	}
	return nil
}

func validateProxy(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
		return nil
	default:
		return fmt.Errorf("%s: unsupported scheme %q", field, u.Scheme)
	}
}
