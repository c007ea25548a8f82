package router

import (
	"testing"

	"github.com/google/uuid"

	"github.com/rickgao/stockstream/internal/model"
)

func trade(sym string, seq int64) model.Message {
	return model.Message{Event: model.EventTrade, Trade: &model.Trade{Symbol: sym, Sequence: seq}}
}

func bar(sym string, start int64) model.Message {
	return model.Message{Event: model.EventAggregate, Aggregate: &model.Aggregate{Symbol: sym, StartTimestamp: start}}
}

func status(code model.StatusCode) model.Message {
	return model.Message{Event: model.EventStatus, Status: &model.Status{Status: code}}
}

// recorder collects every batch a listener receives.
type recorder struct {
	batches [][]model.Message
}

func (r *recorder) handle(msgs []model.Message) {
	r.batches = append(r.batches, msgs)
}

func (r *recorder) count() int {
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry(nil)

	if !r.Add("A.AAPL") {
		t.Error("first Add should report newly added")
	}
	if r.Add("A.AAPL") {
		t.Error("second Add should be idempotent")
	}
	r.Add("T.MSFT")

	got := r.Desired()
	if len(got) != 2 || got[0] != "A.AAPL" || got[1] != "T.MSFT" {
		t.Errorf("Desired() = %v, want [A.AAPL T.MSFT]", got)
	}

	if !r.Remove("A.AAPL") {
		t.Error("Remove should report present")
	}
	if r.Remove("A.AAPL") {
		t.Error("second Remove should be a no-op")
	}
	if r.Has("A.AAPL") {
		t.Error("A.AAPL still desired after Remove")
	}
}

func TestRegistry_RawStringIdentity(t *testing.T) {
	r := NewRegistry(nil)
	r.Add("A.AAPL,A.MSFT")
	r.Add("A.MSFT,A.AAPL")

	if len(r.Desired()) != 2 {
		t.Errorf("differently ordered subscriptions should be distinct, got %v", r.Desired())
	}
}

func TestRegistry_AddListenerMarksDesired(t *testing.T) {
	r := NewRegistry(nil)

	_, added := r.AddListener("A.AAPL", func([]model.Message) {})
	if !added {
		t.Error("first listener should make subscription newly desired")
	}
	_, added = r.AddListener("A.AAPL", func([]model.Message) {})
	if added {
		t.Error("second listener should not report newly desired")
	}
	if !r.Has("A.AAPL") {
		t.Error("subscription with listener must be desired")
	}
	if r.ListenerCount("A.AAPL") != 2 {
		t.Errorf("ListenerCount = %d, want 2", r.ListenerCount("A.AAPL"))
	}
}

func TestRegistry_RegisterThenUnregister(t *testing.T) {
	r := NewRegistry(nil)
	rec := &recorder{}

	id, _ := r.AddListener("A.AAPL", rec.handle)
	removed, last := r.RemoveListener("A.AAPL", id)
	if !removed || !last {
		t.Fatalf("RemoveListener = (%v, %v), want (true, true)", removed, last)
	}

	if r.Has("A.AAPL") {
		t.Error("subscription should leave the registry with its last listener")
	}
	if r.Dispatch([]model.Message{bar("AAPL", 1)}) != 0 {
		t.Error("no dispatch expected after unregister")
	}
	if len(rec.batches) != 0 {
		t.Errorf("listener invoked %d times after unregister", len(rec.batches))
	}
}

func TestRegistry_RemoveUnknownListener(t *testing.T) {
	r := NewRegistry(nil)
	r.AddListener("A.AAPL", func([]model.Message) {})

	if removed, _ := r.RemoveListener("A.AAPL", uuid.New()); removed {
		t.Error("removing an unknown handle should report false")
	}
	if removed, _ := r.RemoveListener("T.NOPE", uuid.New()); removed {
		t.Error("removing from an unknown subscription should report false")
	}
	if r.ListenerCount("A.AAPL") != 1 {
		t.Error("existing listener should be untouched")
	}
}

func TestRegistry_DispatchMatchesSubset(t *testing.T) {
	r := NewRegistry(nil)
	rec := &recorder{}
	r.AddListener("T.AAPL,A.MSFT", rec.handle)

	batch := []model.Message{
		trade("AAPL", 1),
		bar("AAPL", 1),
		status(model.StatusSuccess),
		bar("MSFT", 2),
		trade("MSFT", 2),
		trade("AAPL", 3),
	}
	if n := r.Dispatch(batch); n != 1 {
		t.Fatalf("Dispatch = %d invocations, want 1", n)
	}

	got := rec.batches[0]
	if len(got) != 3 {
		t.Fatalf("matched %d messages, want 3", len(got))
	}
	if got[0].Trade == nil || got[0].Trade.Sequence != 1 {
		t.Errorf("got[0] = %+v, want T.AAPL seq 1", got[0])
	}
	if got[1].Aggregate == nil || got[1].Aggregate.Symbol != "MSFT" {
		t.Errorf("got[1] = %+v, want A.MSFT", got[1])
	}
	if got[2].Trade == nil || got[2].Trade.Sequence != 3 {
		t.Errorf("got[2] = %+v, want T.AAPL seq 3", got[2])
	}
}

func TestRegistry_DispatchNoMatchNoCall(t *testing.T) {
	r := NewRegistry(nil)
	rec := &recorder{}
	r.AddListener("A.AAPL", rec.handle)

	r.Dispatch([]model.Message{trade("AAPL", 1), bar("MSFT", 1), status(model.StatusAuthSuccess)})
	if len(rec.batches) != 0 {
		t.Errorf("listener invoked with no matching messages")
	}
}

func TestRegistry_SharedSubscription(t *testing.T) {
	r := NewRegistry(nil)
	a, b := &recorder{}, &recorder{}
	idA, _ := r.AddListener("T.MSFT", a.handle)
	r.AddListener("T.MSFT", b.handle)

	r.Dispatch([]model.Message{trade("MSFT", 1)})
	if a.count() != 1 || b.count() != 1 {
		t.Fatalf("both listeners should receive, got %d and %d", a.count(), b.count())
	}

	removed, last := r.RemoveListener("T.MSFT", idA)
	if !removed || last {
		t.Fatalf("RemoveListener = (%v, %v), want (true, false)", removed, last)
	}
	if !r.Has("T.MSFT") {
		t.Error("subscription must stay desired while a listener remains")
	}

	r.Dispatch([]model.Message{trade("MSFT", 2)})
	if a.count() != 1 {
		t.Errorf("removed listener received %d messages, want 1", a.count())
	}
	if b.count() != 2 {
		t.Errorf("remaining listener received %d messages, want 2", b.count())
	}
}

func TestRegistry_SelfRemovalDuringDispatch(t *testing.T) {
	r := NewRegistry(nil)
	var secondID uuid.UUID
	second := &recorder{}

	r.AddListener("A.AAPL", func([]model.Message) {
		r.RemoveListener("A.AAPL", secondID)
	})
	secondID, _ = r.AddListener("A.AAPL", second.handle)

	r.Dispatch([]model.Message{bar("AAPL", 1)})
	if len(second.batches) != 0 {
		t.Error("listener removed mid-dispatch must not be invoked")
	}
}

func TestRegistry_AddDuringDispatch(t *testing.T) {
	r := NewRegistry(nil)
	late := &recorder{}
	added := false

	r.AddListener("A.AAPL", func([]model.Message) {
		if !added {
			added = true
			r.AddListener("A.AAPL", late.handle)
		}
	})

	r.Dispatch([]model.Message{bar("AAPL", 1)})
	if len(late.batches) != 0 {
		t.Error("listener added mid-dispatch should wait for the next frame")
	}
	r.Dispatch([]model.Message{bar("AAPL", 2)})
	if len(late.batches) != 1 {
		t.Errorf("late listener batches = %d, want 1", len(late.batches))
	}
}

func TestRegistry_PanickingHandlerContained(t *testing.T) {
	r := NewRegistry(nil)
	rec := &recorder{}

	r.AddListener("A.AAPL", func([]model.Message) { panic("boom") })
	r.AddListener("A.AAPL", rec.handle)

	if n := r.Dispatch([]model.Message{bar("AAPL", 1)}); n != 2 {
		t.Errorf("Dispatch = %d, want 2", n)
	}
	if len(rec.batches) != 1 {
		t.Error("listener after a panicking one should still run")
	}

	stats := r.Stats()
	if stats.HandlerPanics != 1 {
		t.Errorf("HandlerPanics = %d, want 1", stats.HandlerPanics)
	}
	if stats.Deliveries != 2 {
		t.Errorf("Deliveries = %d, want 2", stats.Deliveries)
	}
}

func TestRegistry_Stats(t *testing.T) {
	r := NewRegistry(nil)
	r.Add("T.AAPL")
	r.AddListener("A.AAPL", func([]model.Message) {})
	r.AddListener("A.AAPL", func([]model.Message) {})
	r.AddListener("A.MSFT", func([]model.Message) {})

	stats := r.Stats()
	if stats.Desired != 3 {
		t.Errorf("Desired = %d, want 3", stats.Desired)
	}
	if stats.Subscriptions != 2 {
		t.Errorf("Subscriptions = %d, want 2", stats.Subscriptions)
	}
	if stats.Listeners != 3 {
		t.Errorf("Listeners = %d, want 3", stats.Listeners)
	}
}
