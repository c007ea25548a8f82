package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultSearchLimit bounds ticker search results.
const DefaultSearchLimit = 20

// GetTickerDetail fetches reference data for one ticker.
func (c *Client) GetTickerDetail(ctx context.Context, ticker string) (*TickerDetail, error) {
	var resp TickerDetailResponse
	if err := c.get(ctx, "/v3/reference/tickers/"+url.PathEscape(ticker), nil, &resp); err != nil {
		return nil, fmt.Errorf("get ticker detail %s: %w", ticker, err)
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("get ticker detail %s: %w", ticker, ErrNoData)
	}
	return resp.Results, nil
}

// SearchTickers searches active US common stocks.
func (c *Client) SearchTickers(ctx context.Context, opts SearchOptions) ([]TickerResult, error) {
	query := url.Values{}
	query.Set("active", "true")
	query.Set("market", "stocks")
	query.Set("type", "CS")

	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	if opts.Ticker != "" {
		query.Set("ticker", opts.Ticker)
	}
	if opts.Exchange != "" {
		query.Set("exchange", opts.Exchange)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	query.Set("limit", strconv.Itoa(limit))

	var resp TickersResponse
	if err := c.get(ctx, "/v3/reference/tickers", query, &resp); err != nil {
		return nil, fmt.Errorf("search tickers: %w", err)
	}
	if resp.Results == nil {
		return []TickerResult{}, nil
	}
	return resp.Results, nil
}
