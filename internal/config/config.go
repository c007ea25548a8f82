package config

import "time"

// StreamdConfig is the root configuration for a streamd instance.
type StreamdConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	API       APIConfig       `yaml:"api"`
	Stream    StreamConfig    `yaml:"stream"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Watchlist WatchlistConfig `yaml:"watchlist"`
	Database  DatabaseConfig  `yaml:"database"`
	Writers   WritersConfig   `yaml:"writers"`
	Poller    PollerConfig    `yaml:"poller"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds vendor REST and socket settings.
type APIConfig struct {
	RestURL           string        `yaml:"rest_url"`
	WSURL             string        `yaml:"ws_url"`
	APIKey            string        `yaml:"api_key"`      // Inline key, usually ${POLYGON_API_KEY}
	APIKeyFile        string        `yaml:"api_key_file"` // Used when api_key is empty
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerMinute int           `yaml:"requests_per_minute"` // 0 disables the limiter
}

// StreamConfig holds connection manager settings.
type StreamConfig struct {
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ResubscribeOnOpen    *bool         `yaml:"resubscribe_on_open"` // nil means true
	PingInterval         time.Duration `yaml:"ping_interval"`
	PingTimeout          time.Duration `yaml:"ping_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	BufferSize           int           `yaml:"buffer_size"`
}

// RealtimeConfig holds feed throttling and caps.
type RealtimeConfig struct {
	ThrottleInterval time.Duration `yaml:"throttle_interval"`
	MaxPoints        int           `yaml:"max_points"`
	MaxTrades        int           `yaml:"max_trades"`
}

// WatchlistConfig selects what the service streams. Each symbol gets a
// chart feed and a price feed; Compare, when set, gets one compare feed.
type WatchlistConfig struct {
	Symbols []string `yaml:"symbols"`
	Compare []string `yaml:"compare"`
}

// DatabaseConfig holds the TimescaleDB connection used by the recorder.
type DatabaseConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// PollerConfig holds snapshot poller settings.
type PollerConfig struct {
	Interval    time.Duration `yaml:"interval"` // 0 disables polling
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MetricsConfig holds the HTTP surface settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// Resubscribe resolves resubscribe_on_open, which defaults to true.
func (s StreamConfig) Resubscribe() bool {
	if s.ResubscribeOnOpen == nil {
		return true
	}
	return *s.ResubscribeOnOpen
}
