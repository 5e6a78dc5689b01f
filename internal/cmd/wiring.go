package cmd

import (
	"log/slog"
	"time"

	"github.com/rickgao/mexc-futures/internal/api"
	"github.com/rickgao/mexc-futures/internal/config"
	"github.com/rickgao/mexc-futures/internal/poller"
	"github.com/rickgao/mexc-futures/internal/recorder"
	"github.com/rickgao/mexc-futures/internal/session"
	"github.com/rickgao/mexc-futures/internal/stream"
	"github.com/rickgao/mexc-futures/internal/version"
)

// sessionConfig maps the session section onto session.Config.
func sessionConfig(c *config.Config) session.Config {
	return session.Config{
		BaseURL:                 c.API.RestURL,
		ConnectTimeout:          c.Session.ConnectTimeout,
		ReadTimeout:             c.Session.ReadTimeout,
		WriteTimeout:            c.Session.WriteTimeout,
		PoolTimeout:             c.Session.PoolTimeout,
		MaxConnections:          c.Session.MaxConnections,
		MaxKeepaliveConnections: c.Session.MaxKeepaliveConnections,
		KeepaliveExpiry:         c.Session.KeepaliveExpiry,
		DisableHTTP2:            c.Session.DisableHTTP2,
		PingInterval:            c.Session.PingInterval,
		MaxIdlePings:            c.Session.MaxIdlePings,
		Proxy:                   c.Session.Proxy,
	}
}

// streamConfig maps the api and stream sections onto stream.Config.
func streamConfig(c *config.Config) stream.Config {
	return stream.Config{
		URL:               c.API.WSURL,
		APIKey:            c.API.APIKey,
		SecretKey:         c.API.SecretKey,
		PingInterval:      c.Stream.PingInterval,
		ReconnectInterval: c.Stream.ReconnectInterval,
		AutoReconnect:     !c.Stream.DisableReconnect,
		HandshakeTimeout:  c.Stream.HandshakeTimeout,
		WriteTimeout:      c.Stream.WriteTimeout,
		SendRate:          c.Stream.SendRate,
		SendBurst:         c.Stream.SendBurst,
		Proxy:             c.Stream.Proxy,
	}
}

// pollerConfig falls back to the recorder symbols when the poller has none.
func pollerConfig(c *config.Config) poller.Config {
	symbols := c.Poller.Symbols
	if len(symbols) == 0 {
		symbols = c.Recorder.Symbols
	}
	return poller.Config{
		Symbols:     symbols,
		Interval:    c.Poller.Interval,
		Concurrency: c.Poller.Concurrency,
		Timeout:     c.Poller.Timeout,
	}
}

func recorderConfig(c *config.Config) recorder.Config {
	rc := recorder.DefaultConfig()
	if len(c.Recorder.Events) > 0 {
		rc.Events = c.Recorder.Events
	}
	rc.BatchSize = c.Recorder.BatchSize
	rc.FlushInterval = c.Recorder.FlushInterval
	rc.BufferSize = c.Recorder.BufferSize
	return rc
}

// newAPIClient builds a REST client over sess.
func newAPIClient(c *config.Config, sess api.Session, logger *slog.Logger) *api.Client {
	opts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithRetries(c.API.MaxRetries, time.Second),
		api.WithUserAgent(version.UserAgent()),
	}
	if c.API.AuthToken != "" {
		opts = append(opts, api.WithAuthToken(c.API.AuthToken))
	}
	return api.NewClient(c.API.RestURL, sess, opts...)
}
