package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL    = "https://futures.mexc.com/api/v1"
	DefaultWSURL      = "wss://contract.mexc.com/edge"
	DefaultAPITimeout = 30 * time.Second
	DefaultMaxRetries = 3

	DefaultConnectTimeout          = 10 * time.Second
	DefaultReadTimeout             = 30 * time.Second
	DefaultWriteTimeout            = 10 * time.Second
	DefaultPoolTimeout             = 10 * time.Second
	DefaultMaxConnections          = 10
	DefaultMaxKeepaliveConnections = 5
	DefaultKeepaliveExpiry         = 120 * time.Second
	DefaultSessionPingInterval     = 30 * time.Second
	DefaultMaxIdlePings            = 10

	DefaultStreamPingInterval = 15 * time.Second
	DefaultReconnectInterval  = 5 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultStreamWriteTimeout = 5 * time.Second
	DefaultSendBurst          = 10

	DefaultPollInterval    = time.Minute
	DefaultPollConcurrency = 4
	DefaultPollTimeout     = 10 * time.Second

	DefaultBatchSize     = 500
	DefaultFlushInterval = time.Second
	DefaultBufferSize    = 10000

	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 4
	DefaultMinConns      = 1
	DefaultEventsTable   = "stream_events"
	DefaultChannelPrefix = "mexc."

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
	DefaultLogLevel    = "info"
)

// ApplyDefaults fills every zero-valued optional field.
func (c *Config) ApplyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Session defaults
	s := &c.Session
	if s.ConnectTimeout == 0 {
		s.ConnectTimeout = DefaultConnectTimeout
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.PoolTimeout == 0 {
		s.PoolTimeout = DefaultPoolTimeout
	}
	if s.MaxConnections == 0 {
		s.MaxConnections = DefaultMaxConnections
	}
	if s.MaxKeepaliveConnections == 0 {
		s.MaxKeepaliveConnections = DefaultMaxKeepaliveConnections
	}
	if s.KeepaliveExpiry == 0 {
		s.KeepaliveExpiry = DefaultKeepaliveExpiry
	}
	if s.PingInterval == 0 {
		s.PingInterval = DefaultSessionPingInterval
	}
	if s.MaxIdlePings == 0 {
		s.MaxIdlePings = DefaultMaxIdlePings
	}

	// Stream defaults
	st := &c.Stream
	if st.PingInterval == 0 {
		st.PingInterval = DefaultStreamPingInterval
	}
	if st.ReconnectInterval == 0 {
		st.ReconnectInterval = DefaultReconnectInterval
	}
	if st.HandshakeTimeout == 0 {
		st.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if st.WriteTimeout == 0 {
		st.WriteTimeout = DefaultStreamWriteTimeout
	}
	if st.SendBurst == 0 {
		st.SendBurst = DefaultSendBurst
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Concurrency == 0 {
		c.Poller.Concurrency = DefaultPollConcurrency
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	// Recorder defaults
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}

	// Sink defaults
	applyDBDefaults(&c.Database)
	if c.Redis.ChannelPrefix == "" {
		c.Redis.ChannelPrefix = DefaultChannelPrefix
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
	if db.Table == "" {
		db.Table = DefaultEventsTable
	}
}
