package realtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/stockstream/internal/connection"
	"github.com/rickgao/stockstream/internal/model"
	"github.com/rickgao/stockstream/internal/router"
)

// feed holds the stream wiring shared by every realtime consumer.
type feed struct {
	kind   string
	sub    model.Subscription
	stream Stream
	logger *slog.Logger
	opts   options

	lifeMu    sync.Mutex
	started   bool
	stopped   bool
	handlerID uuid.UUID
	stateID   uuid.UUID

	stateMu sync.RWMutex
	state   connection.State
}

func newFeed(kind string, sub model.Subscription, stream Stream, logger *slog.Logger, opts []Option) feed {
	if logger == nil {
		logger = slog.Default()
	}
	return feed{
		kind:   kind,
		sub:    sub,
		stream: stream,
		logger: logger.With("component", kind+"_feed", "subscription", sub),
		opts:   buildOptions(opts),
		state:  connection.StateDisconnected,
	}
}

// start tracks connection state, then attaches h to the subscription.
func (f *feed) start(h router.MessageHandler) error {
	f.lifeMu.Lock()
	defer f.lifeMu.Unlock()
	if f.started {
		return ErrAlreadyStarted
	}
	f.started = true

	f.stateID = f.stream.AddConnectionStateHandler(f.setState)
	f.handlerID = f.stream.AddMessageHandler(f.sub, h)

	f.logger.Debug("feed started")
	return nil
}

// stop releases both handles. Safe to call more than once.
func (f *feed) stop() bool {
	f.lifeMu.Lock()
	defer f.lifeMu.Unlock()
	if !f.started || f.stopped {
		return false
	}
	f.stopped = true

	f.stream.RemoveMessageHandler(f.sub, f.handlerID)
	f.stream.RemoveConnectionStateHandler(f.stateID)

	f.logger.Debug("feed stopped")
	return true
}

func (f *feed) setState(s connection.State) {
	f.stateMu.Lock()
	f.state = s
	f.stateMu.Unlock()
}

// State returns the last connection state the feed observed.
func (f *feed) State() connection.State {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	return f.state
}

// Subscription returns the subscription the feed listens on.
func (f *feed) Subscription() model.Subscription {
	return f.sub
}

func (f *feed) flushed(items int) {
	f.opts.metrics.Flushed(f.kind, items)
	f.opts.updated()
}
