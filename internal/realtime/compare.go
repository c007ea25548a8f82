package realtime

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/rickgao/stockstream/internal/model"
)

type symbolPoint struct {
	symbol string
	point  model.Point
}

// CompareFeed tracks several symbols over one multi-symbol aggregate
// subscription and keeps their series aligned by fill-forward.
type CompareFeed struct {
	feed
	symbols []string
	cfg     Config
	batcher *Batcher[symbolPoint]

	mu   sync.RWMutex
	data map[string][]model.Point
}

// NewCompareFeed creates a comparison feed. Symbols are upper-cased and
// de-duplicated, keeping their order.
func NewCompareFeed(symbols []string, stream Stream, cfg Config, logger *slog.Logger, opts ...Option) (*CompareFeed, error) {
	cfg = cfg.withDefaults()

	var syms []string
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			return nil, ErrEmptySymbolName
		}
		if !slices.Contains(syms, s) {
			syms = append(syms, s)
		}
	}
	if len(syms) == 0 {
		return nil, ErrNoSymbols
	}
	if len(syms) > cfg.MaxCompareSymbols {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManySymbols, len(syms), cfg.MaxCompareSymbols)
	}

	data := make(map[string][]model.Point, len(syms))
	for _, s := range syms {
		data[s] = []model.Point{}
	}

	f := &CompareFeed{
		feed:    newFeed("compare", model.NewSubscription(model.EventAggregate, syms...), stream, logger, opts),
		symbols: syms,
		cfg:     cfg,
		data:    data,
	}
	// Pending is unbounded across symbols; apply caps each series after merging.
	f.batcher = NewBatcher(cfg.Interval, 0, f.apply)
	return f, nil
}

// Symbols returns the tracked tickers in subscription order.
func (f *CompareFeed) Symbols() []string {
	return slices.Clone(f.symbols)
}

// Start subscribes to the combined aggregate stream.
func (f *CompareFeed) Start() error {
	return f.start(f.handle)
}

// Stop detaches the feed and discards pending points.
func (f *CompareFeed) Stop() {
	if f.stop() {
		f.batcher.Stop()
	}
}

// Seed replaces the series of one tracked symbol with history.
func (f *CompareFeed) Seed(symbol string, points []model.Point) {
	symbol = strings.ToUpper(symbol)

	f.mu.Lock()
	if _, ok := f.data[symbol]; !ok {
		f.mu.Unlock()
		return
	}
	next := f.cloneLocked()
	next[symbol] = mergePoints(nil, points, f.cfg.MaxPoints)
	f.data = f.normalize(next)
	f.mu.Unlock()

	f.opts.updated()
}

// Data returns a copy of every tracked series.
func (f *CompareFeed) Data() map[string][]model.Point {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cloneLocked()
}

// Flushes returns how many batched updates have been applied.
func (f *CompareFeed) Flushes() int64 {
	return f.batcher.Flushes()
}

func (f *CompareFeed) handle(msgs []model.Message) {
	items := make([]symbolPoint, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Aggregate == nil {
			continue
		}
		items = append(items, symbolPoint{
			symbol: msg.Aggregate.Symbol,
			point:  model.PointFromAggregate(msg.Aggregate),
		})
	}
	f.batcher.Add(items...)
}

func (f *CompareFeed) apply(pending []symbolPoint) {
	bySymbol := make(map[string][]model.Point)
	for _, sp := range pending {
		bySymbol[sp.symbol] = append(bySymbol[sp.symbol], sp.point)
	}

	f.mu.Lock()
	next := f.cloneLocked()
	for sym, points := range bySymbol {
		existing, ok := next[sym]
		if !ok {
			continue
		}
		next[sym] = mergePoints(existing, points, f.cfg.MaxPoints)
	}
	f.data = f.normalize(next)
	f.mu.Unlock()

	f.logger.Debug("compare flushed", "points", len(pending), "symbols", len(bySymbol))
	f.flushed(len(pending))
}

// normalize fills forward, then re-applies the per-symbol cap. The
// truncated series stay aligned since each is a suffix of the same
// timestamp union.
func (f *CompareFeed) normalize(data map[string][]model.Point) map[string][]model.Point {
	out := Normalize(data)
	for sym, points := range out {
		out[sym] = truncate(points, f.cfg.MaxPoints)
	}
	return out
}

func (f *CompareFeed) cloneLocked() map[string][]model.Point {
	out := make(map[string][]model.Point, len(f.data))
	for sym, points := range f.data {
		out[sym] = slices.Clone(points)
	}
	return out
}
