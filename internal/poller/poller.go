package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/stockstream/internal/model"
)

// SymbolSource provides the symbols to poll.
type SymbolSource interface {
	Symbols() []string
}

// StaticSymbols is a fixed SymbolSource.
type StaticSymbols []string

func (s StaticSymbols) Symbols() []string { return s }

// PriceFetcher loads a price panel from REST. *api.Client implements it.
type PriceFetcher interface {
	GetPriceData(ctx context.Context, symbol string) (model.PriceData, error)
}

// PriceHandler receives fetched price panels.
type PriceHandler interface {
	HandlePrice(pd model.PriceData) error
}

// PriceHandlerFunc is a function adapter for PriceHandler.
type PriceHandlerFunc func(model.PriceData) error

func (f PriceHandlerFunc) HandlePrice(pd model.PriceData) error {
	return f(pd)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval
	Concurrency int           // Max concurrent symbols (default: 4)
	Timeout     time.Duration // Per-symbol timeout (default: 15s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Minute,
		Concurrency: 4,
		Timeout:     15 * time.Second,
	}
}

// Stats counts poll results over the poller's lifetime.
type Stats struct {
	Cycles  int64
	Fetched int64
	Errors  int64
}

// Poller periodically re-fetches price panels over REST so feeds recover
// from anything the stream missed.
type Poller struct {
	cfg     Config
	fetcher PriceFetcher
	symbols SymbolSource
	handler PriceHandler
	logger  *slog.Logger

	cycles  atomic.Int64
	fetched atomic.Int64
	errors  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, fetcher PriceFetcher, symbols SymbolSource, handler PriceHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:     cfg,
		fetcher: fetcher,
		symbols: symbols,
		handler: handler,
		logger:  logger.With("component", "poller"),
	}
}

// Start begins the polling loop. The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("price poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("price poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns lifetime counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Cycles:  p.cycles.Load(),
		Fetched: p.fetched.Load(),
		Errors:  p.errors.Load(),
	}
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.PollOnce(p.ctx)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(p.ctx)
		}
	}
}

// PollOnce fetches every symbol with bounded concurrency. A failing symbol
// is logged and does not stop the others.
func (p *Poller) PollOnce(ctx context.Context) {
	start := time.Now()

	symbols := p.symbols.Symbols()
	if len(symbols) == 0 {
		p.logger.Debug("no symbols to poll")
		return
	}

	var fetched, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, sym := range symbols {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := p.pollSymbol(gctx, sym); err != nil {
				if gctx.Err() == nil {
					p.logger.Warn("failed to poll symbol", "symbol", sym, "err", err)
				}
				failed.Add(1)
				return nil
			}
			fetched.Add(1)
			return nil
		})
	}
	g.Wait()

	p.cycles.Add(1)
	p.fetched.Add(fetched.Load())
	p.errors.Add(failed.Load())

	p.logger.Info("poll cycle complete",
		"symbols", len(symbols),
		"fetched", fetched.Load(),
		"errors", failed.Load(),
		"duration", time.Since(start),
	)
}

func (p *Poller) pollSymbol(ctx context.Context, symbol string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	pd, err := p.fetcher.GetPriceData(ctx, symbol)
	if err != nil {
		return err
	}

	if p.handler != nil {
		return p.handler.HandlePrice(pd)
	}
	return nil
}
