package writer

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/stockstream/internal/metrics"
	"github.com/rickgao/stockstream/internal/router"
)

// TradeWriter writes live trades to stock_trades.
type TradeWriter = BatchWriter[TradeRecord, tradeRow]

const insertTrade = `
	INSERT INTO stock_trades (symbol, ts, trade_id, exchange_id, price, size, conditions, tape, sequence, received_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (symbol, ts, exchange_id, trade_id) DO NOTHING
`

// NewTradeWriter creates a TradeWriter. db is usually a *pgxpool.Pool.
func NewTradeWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[TradeRecord],
	db batchSender,
	m *metrics.Writers,
	logger *slog.Logger,
) *TradeWriter {
	return newBatchWriter(cfg, "stock_trades", input, db, transformTrade, queueTrade, m, logger)
}

func transformTrade(rec TradeRecord) tradeRow {
	t := rec.Trade
	conditions := t.Conditions
	if conditions == nil {
		conditions = []int{}
	}
	return tradeRow{
		Symbol:     t.Symbol,
		Ts:         time.UnixMilli(t.Timestamp).UTC(),
		TradeID:    t.TradeID,
		ExchangeID: t.ExchangeID,
		Price:      t.Price,
		Size:       t.Size,
		Conditions: conditions,
		Tape:       t.Tape,
		Sequence:   t.Sequence,
		ReceivedAt: rec.ReceivedAt.UTC(),
	}
}

func queueTrade(b *pgx.Batch, r tradeRow) {
	b.Queue(insertTrade,
		r.Symbol, r.Ts, r.TradeID, r.ExchangeID, r.Price, r.Size,
		r.Conditions, r.Tape, r.Sequence, r.ReceivedAt,
	)
}
