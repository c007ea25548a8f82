package api

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

const snapshotPath = "/v2/snapshot/locale/us/markets/stocks/tickers"

// GetSnapshot fetches the current snapshot of one ticker.
func (c *Client) GetSnapshot(ctx context.Context, ticker string) (*TickerSnapshot, error) {
	var resp SnapshotResponse
	if err := c.get(ctx, snapshotPath+"/"+url.PathEscape(ticker), nil, &resp); err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", ticker, err)
	}
	if resp.Ticker == nil {
		return nil, fmt.Errorf("get snapshot %s: %w", ticker, ErrNoData)
	}
	return resp.Ticker, nil
}

// GetSnapshots fetches the snapshots of several tickers in one request.
func (c *Client) GetSnapshots(ctx context.Context, tickers []string) ([]TickerSnapshot, error) {
	query := url.Values{}
	query.Set("tickers", strings.Join(tickers, ","))

	var resp SnapshotsResponse
	if err := c.get(ctx, snapshotPath, query, &resp); err != nil {
		return nil, fmt.Errorf("get snapshots: %w", err)
	}
	return resp.Tickers, nil
}

// GetStocks builds summary rows for tickers, sorted by company name.
// Tickers without a day and previous-day bar are left out. The vendor has
// no batch reference lookup, so names are fetched one ticker at a time.
func (c *Client) GetStocks(ctx context.Context, tickers []string, limit int) ([]Stock, error) {
	var (
		mu    sync.Mutex
		names = make(map[string]string, len(tickers))
		snaps []TickerSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.GetSnapshots(gctx, tickers)
		snaps = s
		return err
	})
	for _, t := range tickers {
		g.Go(func() error {
			results, err := c.SearchTickers(gctx, SearchOptions{Ticker: t, Limit: 1})
			if err != nil {
				return err
			}
			if len(results) > 0 {
				mu.Lock()
				names[results[0].Ticker] = results[0].Name
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stocks := make([]Stock, 0, len(snaps))
	for i := range snaps {
		s := &snaps[i]
		if s.Day == nil || s.PrevDay == nil {
			continue
		}
		stocks = append(stocks, s.ToStock(names[s.Ticker]))
	}
	sort.SliceStable(stocks, func(i, j int) bool {
		return stocks[i].Name < stocks[j].Name
	})

	if limit > 0 && len(stocks) > limit {
		stocks = stocks[:limit]
	}
	return stocks, nil
}
