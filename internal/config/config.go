package config

import "time"

// Config is the root configuration for the SDK tooling.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Session  SessionConfig  `yaml:"session"`
	Stream   StreamConfig   `yaml:"stream"`
	Poller   PollerConfig   `yaml:"poller"`
	Recorder RecorderConfig `yaml:"recorder"`
	Database DBConfig       `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig holds exchange endpoints and credentials.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	AuthToken  string        `yaml:"auth_token"` // WEB token copied from the browser
	APIKey     string        `yaml:"api_key"`    // WebSocket login key
	SecretKey  string        `yaml:"secret_key"` // WebSocket login HMAC secret
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// SessionConfig holds REST session keep-alive settings.
type SessionConfig struct {
	ConnectTimeout          time.Duration `yaml:"connect_timeout"`
	ReadTimeout             time.Duration `yaml:"read_timeout"`
	WriteTimeout            time.Duration `yaml:"write_timeout"`
	PoolTimeout             time.Duration `yaml:"pool_timeout"`
	MaxConnections          int           `yaml:"max_connections"`
	MaxKeepaliveConnections int           `yaml:"max_keepalive_connections"`
	KeepaliveExpiry         time.Duration `yaml:"keepalive_expiry"`
	DisableHTTP2            bool          `yaml:"disable_http2"`
	PingInterval            time.Duration `yaml:"ping_interval"`
	MaxIdlePings            int           `yaml:"max_idle_pings"`
	Proxy                   string        `yaml:"proxy"` // http://, https:// or socks5:// URL
}

// StreamConfig holds WebSocket client settings.
type StreamConfig struct {
	PingInterval      time.Duration `yaml:"ping_interval"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	DisableReconnect  bool          `yaml:"disable_reconnect"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	SendRate          float64       `yaml:"send_rate"` // control messages per second, 0 = unlimited
	SendBurst         int           `yaml:"send_burst"`
	Proxy             string        `yaml:"proxy"`
}

// PollerConfig holds REST ticker poller settings.
type PollerConfig struct {
	Symbols     []string      `yaml:"symbols"`
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RecorderConfig holds stream recorder batching settings.
type RecorderConfig struct {
	Symbols       []string      `yaml:"symbols"`
	Events        []string      `yaml:"events"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds the Postgres/TimescaleDB sink connection. An empty Host disables the sink.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
	Table    string `yaml:"table"`
}

// RedisConfig holds the Redis pub/sub sink. An empty Addr disables the sink.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}
