package writer

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/stockstream/internal/model"
	"github.com/rickgao/stockstream/internal/router"
)

// Source is the part of the connection manager the recorder listens on.
type Source interface {
	AddMessageHandler(sub model.Subscription, h router.MessageHandler) uuid.UUID
	RemoveMessageHandler(sub model.Subscription, id uuid.UUID)
}

// RecorderStats counts what the recorder has queued.
type RecorderStats struct {
	Trades  int64
	Bars    int64
	Dropped int64 // records refused by a closed buffer
}

// Recorder subscribes to trades and bars of a symbol list and queues them
// for the writers.
type Recorder struct {
	source Source
	logger *slog.Logger

	tradeSub model.Subscription
	barSub   model.Subscription
	trades   *router.GrowableBuffer[TradeRecord]
	bars     *router.GrowableBuffer[BarRecord]

	mu      sync.Mutex
	tradeID uuid.UUID
	barID   uuid.UUID
	started bool

	nTrades  atomic.Int64
	nBars    atomic.Int64
	nDropped atomic.Int64

	now func() time.Time
}

// NewRecorder creates a recorder for symbols. Either buffer may be nil to
// skip that event type.
func NewRecorder(
	symbols []string,
	source Source,
	trades *router.GrowableBuffer[TradeRecord],
	bars *router.GrowableBuffer[BarRecord],
	logger *slog.Logger,
) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		source:   source,
		logger:   logger.With("component", "recorder"),
		tradeSub: model.NewSubscription(model.EventTrade, symbols...),
		barSub:   model.NewSubscription(model.EventAggregate, symbols...),
		trades:   trades,
		bars:     bars,
		now:      time.Now,
	}
}

// Start registers the listeners, which subscribes on the stream.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	if r.trades != nil && r.tradeSub != "" {
		r.tradeID = r.source.AddMessageHandler(r.tradeSub, r.handle)
	}
	if r.bars != nil && r.barSub != "" {
		r.barID = r.source.AddMessageHandler(r.barSub, r.handle)
	}
	r.logger.Info("recorder started", "trades", r.tradeSub, "bars", r.barSub)
}

// Stop removes the listeners and closes both buffers so the writers can
// drain them.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	r.started = false

	if r.tradeID != uuid.Nil {
		r.source.RemoveMessageHandler(r.tradeSub, r.tradeID)
		r.tradeID = uuid.Nil
	}
	if r.barID != uuid.Nil {
		r.source.RemoveMessageHandler(r.barSub, r.barID)
		r.barID = uuid.Nil
	}
	if r.trades != nil {
		r.trades.Close()
	}
	if r.bars != nil {
		r.bars.Close()
	}
	r.logger.Info("recorder stopped", "stats", r.Stats())
}

// Stats returns current counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Trades:  r.nTrades.Load(),
		Bars:    r.nBars.Load(),
		Dropped: r.nDropped.Load(),
	}
}

func (r *Recorder) handle(msgs []model.Message) {
	receivedAt := r.now()
	for _, msg := range msgs {
		switch {
		case msg.Event == model.EventTrade && msg.Trade != nil && r.trades != nil:
			if r.trades.Send(TradeRecord{Trade: *msg.Trade, ReceivedAt: receivedAt}) {
				r.nTrades.Add(1)
			} else {
				r.nDropped.Add(1)
			}
		case msg.Event == model.EventAggregate && msg.Aggregate != nil && r.bars != nil:
			if r.bars.Send(BarRecord{Bar: *msg.Aggregate, ReceivedAt: receivedAt}) {
				r.nBars.Add(1)
			} else {
				r.nDropped.Add(1)
			}
		}
	}
}
