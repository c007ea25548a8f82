package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rickgao/stockstream/internal/api"
	"github.com/rickgao/stockstream/internal/connection"
	"github.com/rickgao/stockstream/internal/metrics"
	"github.com/rickgao/stockstream/internal/model"
	"github.com/rickgao/stockstream/internal/realtime"
)

// streamStatus is the part of the connection manager the HTTP surface reads.
type streamStatus interface {
	State() connection.State
	Desired() []model.Subscription
	Stats() connection.ManagerStats
}

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// feeds holds every realtime consumer of one instance.
type feeds struct {
	charts  map[string]*realtime.ChartFeed
	prices  map[string]*realtime.PriceFeed
	compare *realtime.CompareFeed
	symbols []string
}

func newFeeds(symbols, compare []string, stream realtime.Stream, cfg realtime.Config, m *metrics.Feeds, logger *slog.Logger) (*feeds, error) {
	f := &feeds{
		charts:  make(map[string]*realtime.ChartFeed, len(symbols)),
		prices:  make(map[string]*realtime.PriceFeed, len(symbols)),
		symbols: symbols,
	}
	for _, sym := range symbols {
		f.charts[sym] = realtime.NewChartFeed(sym, stream, cfg, logger, realtime.WithMetrics(m))
		f.prices[sym] = realtime.NewPriceFeed(sym, stream, cfg, logger, realtime.WithMetrics(m))
	}
	if len(compare) > 0 {
		c, err := realtime.NewCompareFeed(compare, stream, cfg, logger, realtime.WithMetrics(m))
		if err != nil {
			return nil, err
		}
		f.compare = c
	}
	return f, nil
}

func (f *feeds) start() error {
	for _, sym := range f.symbols {
		if err := f.charts[sym].Start(); err != nil {
			return err
		}
		if err := f.prices[sym].Start(); err != nil {
			return err
		}
	}
	if f.compare != nil {
		return f.compare.Start()
	}
	return nil
}

func (f *feeds) stop() {
	for _, sym := range f.symbols {
		f.charts[sym].Stop()
		f.prices[sym].Stop()
	}
	if f.compare != nil {
		f.compare.Stop()
	}
}

// HandlePrice lets the poller re-seed price feeds.
func (f *feeds) HandlePrice(pd model.PriceData) error {
	if p, ok := f.prices[pd.Symbol]; ok {
		p.Seed(pd)
	}
	return nil
}

// seed loads chart history and price panels over REST. Failures are logged
// per symbol; live data still flows into unseeded feeds.
func (f *feeds) seed(ctx context.Context, client *api.Client, logger *slog.Logger) {
	var wg sync.WaitGroup

	if len(f.symbols) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			history, err := client.GetMultipleAggregates(ctx, f.symbols, api.Timeframe1D)
			if err != nil {
				logger.Warn("chart seed failed", "error", err)
				return
			}
			for sym, points := range history {
				f.charts[sym].Seed(points)
			}
		}()
	}

	for _, sym := range f.symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pd, err := client.GetPriceData(ctx, sym)
			if err != nil {
				logger.Warn("price seed failed", "symbol", sym, "error", err)
				return
			}
			f.prices[sym].Seed(pd)
		}()
	}

	if f.compare != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			history, err := client.GetMultipleAggregates(ctx, f.compare.Symbols(), api.Timeframe1D)
			if err != nil {
				logger.Warn("compare seed failed", "error", err)
				return
			}
			for sym, points := range history {
				f.compare.Seed(sym, points)
			}
		}()
	}

	wg.Wait()
}
