package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/stockstream/internal/model"
)

// maxAggsPageSize is the largest page the vendor serves.
const maxAggsPageSize = 50000

// GetAggregates fetches the chart history of symbol for tf, oldest first.
func (c *Client) GetAggregates(ctx context.Context, symbol string, tf Timeframe) ([]model.Point, error) {
	r, err := tf.Range(time.Now())
	if err != nil {
		return nil, err
	}
	return c.ListAggregates(ctx, symbol, r)
}

// ListAggregates fetches every bar of symbol inside r, following pagination.
func (c *Client) ListAggregates(ctx context.Context, symbol string, r Range) ([]model.Point, error) {
	params := &models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: r.Multiplier,
		Timespan:   r.Timespan,
		From:       models.Millis(r.From),
		To:         models.Millis(r.To),
	}
	limit := maxAggsPageSize
	asc := models.Asc
	adjusted := true
	params.Limit = &limit
	params.Order = &asc
	params.Adjusted = &adjusted

	iter := c.sdk.ListAggs(ctx, params)
	points := []model.Point{}
	for iter.Next() {
		points = append(points, pointFromAgg(iter.Item()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list aggregates %s: %w", symbol, err)
	}

	c.logger.Debug("fetched aggregates",
		"symbol", symbol,
		"timespan", r.Timespan,
		"points", len(points),
	)
	return points, nil
}

// GetMultipleAggregates fetches the history of several symbols concurrently.
// Any failure fails the whole call.
func (c *Client) GetMultipleAggregates(ctx context.Context, symbols []string, tf Timeframe) (map[string][]model.Point, error) {
	r, err := tf.Range(time.Now())
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	out := make(map[string][]model.Point, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for _, sym := range symbols {
		g.Go(func() error {
			points, err := c.ListAggregates(gctx, sym, r)
			if err != nil {
				return err
			}
			mu.Lock()
			out[sym] = points
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
