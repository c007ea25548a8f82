package writer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/stockstream/internal/model"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     1000,
		FlushInterval: time.Second,
	}
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// batchSender is the part of pgxpool.Pool the writers use.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// TradeRecord is a live trade stamped with its local receive time.
type TradeRecord struct {
	Trade      model.Trade
	ReceivedAt time.Time
}

// BarRecord is a live bar stamped with its local receive time.
type BarRecord struct {
	Bar        model.Aggregate
	ReceivedAt time.Time
}

// tradeRow represents a row of the stock_trades table.
type tradeRow struct {
	Symbol     string
	Ts         time.Time
	TradeID    string
	ExchangeID int
	Price      float64
	Size       float64
	Conditions []int
	Tape       int
	Sequence   int64
	ReceivedAt time.Time
}

// barRow represents a row of the stock_bars table.
type barRow struct {
	Symbol     string
	Ts         time.Time
	EndTs      time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	VWAP       *float64
	ReceivedAt time.Time
}
