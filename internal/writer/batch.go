package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/stockstream/internal/metrics"
	"github.com/rickgao/stockstream/internal/router"
)

// BatchWriter drains In values from a buffer, converts them to rows and
// inserts them with pgx batches. Inserts are append-only; duplicates are
// counted as conflicts.
type BatchWriter[In, Row any] struct {
	cfg     WriterConfig
	table   string
	logger  *slog.Logger
	metrics *metrics.Writers

	input     *router.GrowableBuffer[In]
	db        batchSender
	transform func(In) Row
	queue     func(*pgx.Batch, Row)

	// Batching
	batch       []Row
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats WriterMetrics
}

func newBatchWriter[In, Row any](
	cfg WriterConfig,
	table string,
	input *router.GrowableBuffer[In],
	db batchSender,
	transform func(In) Row,
	queue func(*pgx.Batch, Row),
	m *metrics.Writers,
	logger *slog.Logger,
) *BatchWriter[In, Row] {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultWriterConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultWriterConfig().FlushInterval
	}
	return &BatchWriter[In, Row]{
		cfg:       cfg,
		table:     table,
		logger:    logger.With("component", "writer", "table", table),
		metrics:   m,
		input:     input,
		db:        db,
		transform: transform,
		queue:     queue,
		batch:     make([]Row, 0, cfg.BatchSize),
	}
}

// Table returns the destination table.
func (w *BatchWriter[In, Row]) Table() string { return w.table }

// Start begins consuming records and writing to the database.
func (w *BatchWriter[In, Row]) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts the writer down, then writes whatever is still buffered
// using ctx.
func (w *BatchWriter[In, Row]) Stop(ctx context.Context) error {
	w.logger.Info("stopping writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("writer stop timed out")
	}

	// Final flush: the input is closed by its producer before Stop.
	for _, rec := range w.input.DrainTo(0) {
		w.add(rec)
	}
	w.flush(ctx)

	w.batchMu.Lock()
	lost := len(w.batch)
	w.batchMu.Unlock()
	if lost > 0 {
		w.logger.Error("writer stopped with unwritten rows", "count", lost)
		w.metrics.Error(w.table)
		return ctx.Err()
	}

	w.logger.Info("writer stopped")
	return nil
}

// Stats returns current metrics.
func (w *BatchWriter[In, Row]) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

// consumeLoop moves records from the input buffer into the batch.
func (w *BatchWriter[In, Row]) consumeLoop() {
	defer w.wg.Done()

	for {
		recs := w.input.DrainTo(w.cfg.BatchSize)
		if len(recs) == 0 {
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
				continue
			}
		}
		for _, rec := range recs {
			if w.add(rec) {
				w.flush(w.ctx)
			}
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *BatchWriter[In, Row]) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// add appends a record and reports whether the batch is full.
func (w *BatchWriter[In, Row]) add(rec In) bool {
	row := w.transform(rec)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

// flush writes the current batch to the database.
func (w *BatchWriter[In, Row]) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]Row, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil && ctx.Err() != nil {
		// Interrupted by shutdown: keep the rows for Stop's final flush.
		w.batchMu.Lock()
		w.batch = append(batch, w.batch...)
		w.batchMu.Unlock()
		w.logger.Debug("batch insert interrupted, rows kept", "count", len(batch))
		return
	}
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		w.metrics.Error(w.table)
		return
	}

	inserted := len(batch) - conflicts
	w.batchMu.Lock()
	w.stats.Inserts += int64(inserted)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++
	w.batchMu.Unlock()
	w.metrics.Rows(w.table, inserted, conflicts)

	w.logger.Debug("flushed rows",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert sends rows as one pgx.Batch. Statements use ON CONFLICT DO
// NOTHING, so a zero row count is a conflict.
func (w *BatchWriter[In, Row]) batchInsert(ctx context.Context, rows []Row) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		w.queue(batch, r)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
