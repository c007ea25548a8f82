package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/stockstream/internal/model"
)

// RecentTradesLimit is how many trades seed a price panel.
const RecentTradesLimit = 30

// GetTrades fetches up to limit trades of ticker on the given day.
func (c *Client) GetTrades(ctx context.Context, ticker string, day time.Time, limit int) ([]APITrade, error) {
	query := url.Values{}
	query.Set("timestamp", day.Format(dateLayout))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp TradesResponse
	if err := c.get(ctx, "/v3/trades/"+url.PathEscape(ticker), query, &resp); err != nil {
		return nil, fmt.Errorf("get trades %s: %w", ticker, err)
	}
	return resp.Results, nil
}

// GetPriceData assembles the price panel of symbol from its snapshot and
// today's most recent trades, fetched concurrently.
func (c *Client) GetPriceData(ctx context.Context, symbol string) (model.PriceData, error) {
	var (
		snap   *TickerSnapshot
		trades []APITrade
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.GetSnapshot(gctx, symbol)
		snap = s
		return err
	})
	g.Go(func() error {
		t, err := c.GetTrades(gctx, symbol, time.Now(), RecentTradesLimit)
		trades = t
		return err
	})
	if err := g.Wait(); err != nil {
		return model.PriceData{}, err
	}

	pd, err := snap.ToPriceData(trades)
	if err != nil {
		return model.PriceData{}, fmt.Errorf("price data %s: %w", symbol, err)
	}
	pd.Symbol = symbol
	return pd, nil
}
