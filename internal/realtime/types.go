package realtime

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/stockstream/internal/connection"
	"github.com/rickgao/stockstream/internal/metrics"
	"github.com/rickgao/stockstream/internal/model"
	"github.com/rickgao/stockstream/internal/router"
)

// Errors
var (
	ErrNoSymbols       = errors.New("no symbols")
	ErrTooManySymbols  = errors.New("too many symbols")
	ErrAlreadyStarted  = errors.New("feed already started")
	ErrEmptySymbolName = errors.New("empty symbol")
)

// Stream is the part of connection.Manager the feeds consume.
type Stream interface {
	AddMessageHandler(sub model.Subscription, h router.MessageHandler) uuid.UUID
	RemoveMessageHandler(sub model.Subscription, id uuid.UUID)
	AddConnectionStateHandler(h connection.StateHandler) uuid.UUID
	RemoveConnectionStateHandler(id uuid.UUID)
}

// Config configures the feeds.
type Config struct {
	Interval          time.Duration // Flush window
	MaxPoints         int           // Chart points kept per symbol
	MaxTrades         int           // Recent trades kept per price feed
	MaxCompareSymbols int           // Symbols a CompareFeed may track
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:          500 * time.Millisecond,
		MaxPoints:         500,
		MaxTrades:         500,
		MaxCompareSymbols: 5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MaxPoints <= 0 {
		c.MaxPoints = d.MaxPoints
	}
	if c.MaxTrades <= 0 {
		c.MaxTrades = d.MaxTrades
	}
	if c.MaxCompareSymbols <= 0 {
		c.MaxCompareSymbols = d.MaxCompareSymbols
	}
	return c
}

// Option configures a feed.
type Option func(*options)

type options struct {
	metrics  *metrics.Feeds
	onUpdate func()
}

// WithMetrics attaches flush counters.
func WithMetrics(f *metrics.Feeds) Option {
	return func(o *options) {
		o.metrics = f
	}
}

// WithOnUpdate registers a callback run after every flush that changed state.
func WithOnUpdate(fn func()) Option {
	return func(o *options) {
		o.onUpdate = fn
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) updated() {
	if o.onUpdate != nil {
		o.onUpdate()
	}
}
