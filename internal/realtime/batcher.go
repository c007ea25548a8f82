package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/stockstream/internal/router"
)

// Batcher accumulates items and hands them to flush at most once per
// interval. The window opens on the first Add after a flush and closes
// interval later, so a burst produces a single flush at the window end.
//
// Pending items are held in a bounded buffer; once it is full the oldest
// pending item is evicted, since flush would truncate it anyway.
type Batcher[T any] struct {
	interval time.Duration
	flush    func([]T)
	pending  *router.GrowableBuffer[T]

	mu     sync.Mutex
	timer  *time.Timer
	closed bool

	// flushMu serializes flush calls across overlapping windows.
	flushMu sync.Mutex
	flushes atomic.Int64
}

// NewBatcher creates a Batcher holding at most limit pending items
// (0 = unbounded).
func NewBatcher[T any](interval time.Duration, limit int, flush func([]T)) *Batcher[T] {
	initial := 64
	if limit > 0 && limit < initial {
		initial = limit
	}
	return &Batcher[T]{
		interval: interval,
		flush:    flush,
		pending:  router.NewBoundedBuffer[T](initial, limit),
	}
}

// Add queues items and opens a flush window if none is open.
func (b *Batcher[T]) Add(items ...T) {
	if len(items) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for _, item := range items {
		b.pending.Send(item)
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.interval, b.fire)
	}
}

func (b *Batcher[T]) fire() {
	b.mu.Lock()
	b.timer = nil
	b.mu.Unlock()

	b.Flush()
}

// Flush hands everything pending to the flush func now.
func (b *Batcher[T]) Flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	items := b.pending.DrainTo(0)
	if len(items) == 0 {
		return
	}
	b.flushes.Add(1)
	b.flush(items)
}

// Flushes returns how many non-empty flushes have run.
func (b *Batcher[T]) Flushes() int64 {
	return b.flushes.Load()
}

// Pending returns the number of queued items.
func (b *Batcher[T]) Pending() int {
	return b.pending.Len()
}

// Dropped returns how many pending items were evicted by the limit.
func (b *Batcher[T]) Dropped() int64 {
	return b.pending.Stats().Dropped
}

// Stop cancels any open window and discards pending items.
func (b *Batcher[T]) Stop() {
	b.mu.Lock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.pending.Close()
	b.pending.DrainTo(0)
}
