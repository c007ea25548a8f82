package router

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rickgao/stockstream/internal/model"
)

// MessageHandler receives the messages of one inbound frame that match its
// subscription, in arrival order. The slice is shared between listeners of
// the same subscription and must not be modified.
type MessageHandler func(msgs []model.Message)

// RegistryStats contains runtime statistics.
type RegistryStats struct {
	Desired       int   // Subscriptions in the desired set
	Subscriptions int   // Subscriptions with at least one listener
	Listeners     int   // Registered listeners across all subscriptions
	Deliveries    int64 // Listener invocations
	HandlerPanics int64 // Listener invocations that panicked
}

type listener struct {
	id     uuid.UUID
	fn     MessageHandler
	active atomic.Bool
}

type listenerSet struct {
	pairs     []model.Pair
	listeners []*listener
}

// Registry tracks the subscriptions consumers want on the wire and the
// listeners attached to each, and fans decoded frames out to them.
//
// Desired and listener subscriptions are kept in insertion order so replay
// and dispatch are deterministic.
type Registry struct {
	logger *slog.Logger

	mu         sync.RWMutex
	desired    []model.Subscription
	desiredSet map[model.Subscription]struct{}
	sets       map[model.Subscription]*listenerSet
	order      []model.Subscription

	deliveries atomic.Int64
	panics     atomic.Int64
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:     logger,
		desiredSet: make(map[model.Subscription]struct{}),
		sets:       make(map[model.Subscription]*listenerSet),
	}
}

// Add inserts sub into the desired set. Returns true if it was not already present.
func (r *Registry) Add(sub model.Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(sub)
}

func (r *Registry) addLocked(sub model.Subscription) bool {
	if _, ok := r.desiredSet[sub]; ok {
		return false
	}
	r.desiredSet[sub] = struct{}{}
	r.desired = append(r.desired, sub)
	return true
}

// Remove deletes sub from the desired set. Returns true if it was present.
func (r *Registry) Remove(sub model.Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(sub)
}

func (r *Registry) removeLocked(sub model.Subscription) bool {
	if _, ok := r.desiredSet[sub]; !ok {
		return false
	}
	delete(r.desiredSet, sub)
	r.desired = removeSub(r.desired, sub)
	return true
}

// Has reports whether sub is in the desired set.
func (r *Registry) Has(sub model.Subscription) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.desiredSet[sub]
	return ok
}

// Desired returns a snapshot of the desired set in insertion order.
func (r *Registry) Desired() []model.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Subscription, len(r.desired))
	copy(out, r.desired)
	return out
}

// AddListener attaches fn to sub and marks sub as desired. It returns the
// handle used to remove the listener and whether sub became newly desired.
func (r *Registry) AddListener(sub model.Subscription, fn MessageHandler) (uuid.UUID, bool) {
	l := &listener{id: uuid.New(), fn: fn}
	l.active.Store(true)

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[sub]
	if !ok {
		set = &listenerSet{pairs: sub.Pairs()}
		r.sets[sub] = set
		r.order = append(r.order, sub)
	}
	set.listeners = append(set.listeners, l)

	return l.id, r.addLocked(sub)
}

// RemoveListener detaches the listener with the given handle. The listener
// receives nothing further, even from a dispatch already in progress. When
// the last listener of sub goes, sub leaves both the listener map and the
// desired set and last is true.
func (r *Registry) RemoveListener(sub model.Subscription, id uuid.UUID) (removed, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[sub]
	if !ok {
		return false, false
	}

	for i, l := range set.listeners {
		if l.id != id {
			continue
		}
		l.active.Store(false)
		set.listeners = append(set.listeners[:i:i], set.listeners[i+1:]...)
		removed = true
		break
	}
	if !removed {
		return false, false
	}

	if len(set.listeners) == 0 {
		delete(r.sets, sub)
		r.order = removeSub(r.order, sub)
		r.removeLocked(sub)
		last = true
	}
	return removed, last
}

// ListenerCount returns the number of listeners attached to sub.
func (r *Registry) ListenerCount(sub model.Subscription) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if set, ok := r.sets[sub]; ok {
		return len(set.listeners)
	}
	return 0
}

type dispatchTarget struct {
	sub       model.Subscription
	pairs     []model.Pair
	listeners []*listener
}

// Dispatch delivers msgs to every listener whose subscription matches at
// least one of them. Each listener is called once with the matching subset
// in arrival order. Status messages never match. Listeners are snapshotted
// before any is invoked so handlers may add or remove listeners freely.
// Returns the number of listener invocations.
func (r *Registry) Dispatch(msgs []model.Message) int {
	if len(msgs) == 0 {
		return 0
	}

	r.mu.RLock()
	targets := make([]dispatchTarget, 0, len(r.order))
	for _, sub := range r.order {
		set := r.sets[sub]
		targets = append(targets, dispatchTarget{
			sub:       sub,
			pairs:     set.pairs,
			listeners: append([]*listener(nil), set.listeners...),
		})
	}
	r.mu.RUnlock()

	delivered := 0
	for _, tgt := range targets {
		matched := matchPairs(tgt.pairs, msgs)
		if len(matched) == 0 {
			continue
		}
		for _, l := range tgt.listeners {
			if !l.active.Load() {
				continue
			}
			r.invoke(tgt.sub, l, matched)
			delivered++
		}
	}

	r.deliveries.Add(int64(delivered))
	return delivered
}

func (r *Registry) invoke(sub model.Subscription, l *listener, msgs []model.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.panics.Add(1)
			r.logger.Error("message handler panicked",
				"subscription", sub,
				"handler", l.id,
				"panic", rec,
			)
		}
	}()
	l.fn(msgs)
}

// Stats returns current statistics.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	listeners := 0
	for _, set := range r.sets {
		listeners += len(set.listeners)
	}
	stats := RegistryStats{
		Desired:       len(r.desired),
		Subscriptions: len(r.sets),
		Listeners:     listeners,
	}
	r.mu.RUnlock()

	stats.Deliveries = r.deliveries.Load()
	stats.HandlerPanics = r.panics.Load()
	return stats
}

func matchPairs(pairs []model.Pair, msgs []model.Message) []model.Message {
	var matched []model.Message
	for _, msg := range msgs {
		if msg.Event == model.EventStatus {
			continue
		}
		sym := msg.Symbol()
		for _, p := range pairs {
			if p.Event == msg.Event && p.Symbol == sym {
				matched = append(matched, msg)
				break
			}
		}
	}
	return matched
}

func removeSub(subs []model.Subscription, sub model.Subscription) []model.Subscription {
	for i, s := range subs {
		if s == sub {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}
