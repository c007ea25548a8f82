package realtime

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/rickgao/stockstream/internal/model"
)

// ChartFeed keeps the live OHLCV series for one symbol from its "A"
// aggregate stream.
type ChartFeed struct {
	feed
	symbol  string
	cfg     Config
	batcher *Batcher[model.Point]

	mu     sync.RWMutex
	points []model.Point
}

// NewChartFeed creates a chart feed for symbol. Call Start to attach it.
func NewChartFeed(symbol string, stream Stream, cfg Config, logger *slog.Logger, opts ...Option) *ChartFeed {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	cfg = cfg.withDefaults()

	f := &ChartFeed{
		feed:   newFeed("chart", model.NewSubscription(model.EventAggregate, symbol), stream, logger, opts),
		symbol: symbol,
		cfg:    cfg,
	}
	f.batcher = NewBatcher(cfg.Interval, cfg.MaxPoints, f.apply)
	return f
}

// Symbol returns the tracked ticker.
func (f *ChartFeed) Symbol() string {
	return f.symbol
}

// Start subscribes to the symbol's aggregate stream.
func (f *ChartFeed) Start() error {
	return f.start(f.handle)
}

// Stop detaches the feed and discards pending points.
func (f *ChartFeed) Stop() {
	if f.stop() {
		f.batcher.Stop()
	}
}

// Seed replaces the series, typically with REST history, before or while
// live bars arrive.
func (f *ChartFeed) Seed(points []model.Point) {
	seeded := mergePoints(nil, points, f.cfg.MaxPoints)

	f.mu.Lock()
	f.points = seeded
	f.mu.Unlock()

	f.logger.Debug("chart seeded", "points", len(seeded))
	f.opts.updated()
}

// Points returns a copy of the current series, oldest first.
func (f *ChartFeed) Points() []model.Point {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.points)
}

// Flushes returns how many batched updates have been applied.
func (f *ChartFeed) Flushes() int64 {
	return f.batcher.Flushes()
}

func (f *ChartFeed) handle(msgs []model.Message) {
	points := make([]model.Point, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Aggregate == nil {
			continue
		}
		points = append(points, model.PointFromAggregate(msg.Aggregate))
	}
	f.batcher.Add(points...)
}

func (f *ChartFeed) apply(pending []model.Point) {
	f.mu.Lock()
	f.points = mergePoints(f.points, pending, f.cfg.MaxPoints)
	n := len(f.points)
	f.mu.Unlock()

	f.logger.Debug("chart flushed", "pending", len(pending), "points", n)
	f.flushed(len(pending))
}
