package writer

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/stockstream/internal/metrics"
	"github.com/rickgao/stockstream/internal/router"
)

// BarWriter writes live bars to stock_bars.
type BarWriter = BatchWriter[BarRecord, barRow]

// A bar republished for the same start keeps the first copy.
const insertBar = `
	INSERT INTO stock_bars (symbol, ts, end_ts, open, high, low, close, volume, vwap, received_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (symbol, ts) DO NOTHING
`

// NewBarWriter creates a BarWriter. db is usually a *pgxpool.Pool.
func NewBarWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[BarRecord],
	db batchSender,
	m *metrics.Writers,
	logger *slog.Logger,
) *BarWriter {
	return newBatchWriter(cfg, "stock_bars", input, db, transformBar, queueBar, m, logger)
}

func transformBar(rec BarRecord) barRow {
	a := rec.Bar
	return barRow{
		Symbol:     a.Symbol,
		Ts:         time.UnixMilli(a.StartTimestamp).UTC(),
		EndTs:      time.UnixMilli(a.EndTimestamp).UTC(),
		Open:       a.Open,
		High:       a.High,
		Low:        a.Low,
		Close:      a.Close,
		Volume:     a.Volume,
		VWAP:       a.VWAP,
		ReceivedAt: rec.ReceivedAt.UTC(),
	}
}

func queueBar(b *pgx.Batch, r barRow) {
	b.Queue(insertBar,
		r.Symbol, r.Ts, r.EndTs, r.Open, r.High, r.Low, r.Close, r.Volume,
		r.VWAP, r.ReceivedAt,
	)
}
