package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Standard indicator parameters, computed on the close.
const (
	RSIPeriod          = 14
	SMAPeriod          = 20
	MACDShortWindow    = 12
	MACDLongWindow     = 26
	MACDSignalWindow   = 9
	IndicatorDataLimit = 200
)

// GetRSI fetches the relative strength index of symbol over tf.
func (c *Client) GetRSI(ctx context.Context, symbol string, tf Timeframe) ([]IndicatorValue, error) {
	query, err := indicatorQuery(tf)
	if err != nil {
		return nil, err
	}
	query.Set("window", strconv.Itoa(RSIPeriod))
	return getIndicator[IndicatorValue](ctx, c, "rsi", symbol, query)
}

// GetSMA fetches the simple moving average of symbol over tf.
func (c *Client) GetSMA(ctx context.Context, symbol string, tf Timeframe) ([]IndicatorValue, error) {
	query, err := indicatorQuery(tf)
	if err != nil {
		return nil, err
	}
	query.Set("window", strconv.Itoa(SMAPeriod))
	return getIndicator[IndicatorValue](ctx, c, "sma", symbol, query)
}

// GetMACD fetches the moving average convergence/divergence of symbol over tf.
func (c *Client) GetMACD(ctx context.Context, symbol string, tf Timeframe) ([]MACDValue, error) {
	query, err := indicatorQuery(tf)
	if err != nil {
		return nil, err
	}
	query.Set("short_window", strconv.Itoa(MACDShortWindow))
	query.Set("long_window", strconv.Itoa(MACDLongWindow))
	query.Set("signal_window", strconv.Itoa(MACDSignalWindow))
	return getIndicator[MACDValue](ctx, c, "macd", symbol, query)
}

func indicatorQuery(tf Timeframe) (url.Values, error) {
	r, err := tf.Range(time.Now())
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("timespan", string(r.Timespan))
	query.Set("timestamp.gte", r.FromDate())
	query.Set("timestamp.lte", r.ToDate())
	query.Set("series_type", "close")
	query.Set("order", "asc")
	query.Set("limit", strconv.Itoa(IndicatorDataLimit))
	return query, nil
}

func getIndicator[T any](ctx context.Context, c *Client, name, symbol string, query url.Values) ([]T, error) {
	var resp indicatorResponse[T]
	path := "/v1/indicators/" + name + "/" + url.PathEscape(symbol)
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("get %s %s: %w", name, symbol, err)
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("get %s %s: %w", name, symbol, ErrNoData)
	}
	return resp.Results.Values, nil
}
