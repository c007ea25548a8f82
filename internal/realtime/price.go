package realtime

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/rickgao/stockstream/internal/model"
)

// PriceFeed keeps the live price panel for one symbol from its "T" trade
// stream.
type PriceFeed struct {
	feed
	symbol  string
	cfg     Config
	batcher *Batcher[model.Trade]

	mu   sync.RWMutex
	data model.PriceData
}

// NewPriceFeed creates a price feed for symbol. Call Start to attach it.
func NewPriceFeed(symbol string, stream Stream, cfg Config, logger *slog.Logger, opts ...Option) *PriceFeed {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	cfg = cfg.withDefaults()

	f := &PriceFeed{
		feed:   newFeed("price", model.NewSubscription(model.EventTrade, symbol), stream, logger, opts),
		symbol: symbol,
		cfg:    cfg,
		data:   model.PriceData{Symbol: symbol, Trades: []model.TradeEntry{}},
	}
	// Every trade counts toward volume, so pending trades are never evicted.
	f.batcher = NewBatcher(cfg.Interval, 0, f.apply)
	return f
}

// Symbol returns the tracked ticker.
func (f *PriceFeed) Symbol() string {
	return f.symbol
}

// Start subscribes to the symbol's trade stream.
func (f *PriceFeed) Start() error {
	return f.start(f.handle)
}

// Stop detaches the feed and discards pending trades.
func (f *PriceFeed) Stop() {
	if f.stop() {
		f.batcher.Stop()
	}
}

// Seed replaces the panel with a REST snapshot. Live state newer than the
// snapshot wins for price and last update; trades are kept when the
// snapshot carries none.
func (f *PriceFeed) Seed(pd model.PriceData) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cur := f.data
	pd.Symbol = f.symbol
	if cur.LastUpdate > pd.LastUpdate {
		pd.Price = cur.Price
		pd.LastUpdate = cur.LastUpdate
	}
	if len(pd.Trades) == 0 {
		pd.Trades = cur.Trades
	} else {
		pd.Trades = truncateTrades(slices.Clone(pd.Trades), f.cfg.MaxTrades)
	}
	recomputeChange(&pd)

	f.data = pd
	f.opts.updated()
}

// Data returns a copy of the current panel.
func (f *PriceFeed) Data() model.PriceData {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := f.data
	out.Trades = slices.Clone(f.data.Trades)
	return out
}

// Flushes returns how many batched updates have been applied.
func (f *PriceFeed) Flushes() int64 {
	return f.batcher.Flushes()
}

func (f *PriceFeed) handle(msgs []model.Message) {
	trades := make([]model.Trade, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Trade != nil {
			trades = append(trades, *msg.Trade)
		}
	}
	f.batcher.Add(trades...)
}

// apply folds a batch of trades, oldest first, into the panel.
func (f *PriceFeed) apply(pending []model.Trade) {
	latest := pending[len(pending)-1]

	entries := make([]model.TradeEntry, 0, len(pending))
	var volume float64
	for i := len(pending) - 1; i >= 0; i-- {
		t := pending[i]
		entries = append(entries, model.TradeEntry{
			Price:      t.Price,
			Size:       t.Size,
			Timestamp:  t.Timestamp,
			Conditions: t.Conditions,
		})
		volume += t.Size
	}

	f.mu.Lock()
	d := &f.data
	d.Price = latest.Price
	d.Volume += volume
	d.LastUpdate = latest.Timestamp
	d.Trades = truncateTrades(append(entries, d.Trades...), f.cfg.MaxTrades)
	recomputeChange(d)
	price := d.Price
	f.mu.Unlock()

	f.logger.Debug("price flushed", "trades", len(pending), "price", price)
	f.flushed(len(pending))
}

func recomputeChange(d *model.PriceData) {
	if d.PreviousClose <= 0 {
		return
	}
	d.Change = d.Price - d.PreviousClose
	d.ChangePercent = d.Change / d.PreviousClose * 100
}

func truncateTrades(trades []model.TradeEntry, max int) []model.TradeEntry {
	if max > 0 && len(trades) > max {
		return trades[:max:max]
	}
	return trades
}
