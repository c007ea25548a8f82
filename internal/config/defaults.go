package config

import (
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultRestURL              = "https://api.polygon.io"
	DefaultWSURL                = "wss://socket.polygon.io/stocks"
	DefaultAPITimeout           = 30 * time.Second
	DefaultMaxRetries           = 3
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultPingInterval         = 30 * time.Second
	DefaultPingTimeout          = 90 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultStreamBufferSize     = 1000
	DefaultThrottleInterval     = 500 * time.Millisecond
	DefaultMaxPoints            = 500
	DefaultMaxTrades            = 500
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultBatchSize            = 1000
	DefaultFlushInterval        = 1 * time.Second
	DefaultBufferSize           = 10000
	DefaultPollConcurrency      = 4
	DefaultPollTimeout          = 15 * time.Second
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
)

func (c *StreamdConfig) applyDefaults() {
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

	// Stream defaults
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.MaxReconnectAttempts == 0 {
		c.Stream.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBufferSize
	}

	// Realtime defaults
	if c.Realtime.ThrottleInterval == 0 {
		c.Realtime.ThrottleInterval = DefaultThrottleInterval
	}
	if c.Realtime.MaxPoints == 0 {
		c.Realtime.MaxPoints = DefaultMaxPoints
	}
	if c.Realtime.MaxTrades == 0 {
		c.Realtime.MaxTrades = DefaultMaxTrades
	}

	// Symbols are vendor tickers
	c.Watchlist.Symbols = normalizeSymbols(c.Watchlist.Symbols)
	c.Watchlist.Compare = normalizeSymbols(c.Watchlist.Compare)

	// Database defaults
	applyDBDefaults(&c.Database.Timescale)

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}

	// Poller defaults. Interval stays 0 (disabled) unless set.
	if c.Poller.Concurrency == 0 {
		c.Poller.Concurrency = DefaultPollConcurrency
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
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
}

// normalizeSymbols upper-cases and trims symbols, dropping duplicates.
// Empty entries are kept so Validate can report them.
func normalizeSymbols(symbols []string) []string {
	if len(symbols) == 0 {
		return symbols
	}
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" && seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
