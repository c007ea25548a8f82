package config

import (
	"errors"
	"fmt"
)

// MaxCompareSymbols bounds watchlist.compare.
const MaxCompareSymbols = 5

// Validate checks that all required fields are set and values are valid.
func (c *StreamdConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.APIKey == "" && c.API.APIKeyFile == "" {
		return errors.New("api.api_key or api.api_key_file is required")
	}
	if c.API.RequestsPerMinute < 0 {
		return errors.New("api.requests_per_minute must be >= 0")
	}

	if c.Stream.ReconnectBaseDelay < 0 {
		return errors.New("stream.reconnect_base_delay must be >= 0")
	}
	if c.Stream.MaxReconnectAttempts < 0 {
		return errors.New("stream.max_reconnect_attempts must be >= 0")
	}
	if c.Stream.BufferSize < 1 {
		return errors.New("stream.buffer_size must be >= 1")
	}

	if c.Realtime.ThrottleInterval <= 0 {
		return errors.New("realtime.throttle_interval must be > 0")
	}
	if c.Realtime.MaxPoints < 1 {
		return errors.New("realtime.max_points must be >= 1")
	}
	if c.Realtime.MaxTrades < 1 {
		return errors.New("realtime.max_trades must be >= 1")
	}

	if len(c.Watchlist.Symbols) == 0 && len(c.Watchlist.Compare) == 0 {
		return errors.New("watchlist.symbols or watchlist.compare is required")
	}
	for i, s := range c.Watchlist.Symbols {
		if s == "" {
			return fmt.Errorf("watchlist.symbols[%d] is empty", i)
		}
	}
	for i, s := range c.Watchlist.Compare {
		if s == "" {
			return fmt.Errorf("watchlist.compare[%d] is empty", i)
		}
	}
	if len(c.Watchlist.Compare) > MaxCompareSymbols {
		return fmt.Errorf("watchlist.compare allows at most %d symbols, got %d", MaxCompareSymbols, len(c.Watchlist.Compare))
	}

	if c.Database.Enabled {
		if err := c.Database.Timescale.validate("database.timescale"); err != nil {
			return err
		}
		if c.Writers.BatchSize < 1 {
			return errors.New("writers.batch_size must be >= 1")
		}
		if c.Writers.BufferSize < 1 {
			return errors.New("writers.buffer_size must be >= 1")
		}
	}

	if c.Poller.Interval < 0 {
		return errors.New("poller.interval must be >= 0")
	}
	if c.Poller.Concurrency < 1 {
		return errors.New("poller.concurrency must be >= 1")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
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
	return nil
}
