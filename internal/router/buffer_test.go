package router

import (
	"sync"
	"testing"
)

func TestGrowableBuffer_SendDrain(t *testing.T) {
	buf := NewGrowableBuffer[int](10)

	for i := 0; i < 5; i++ {
		if !buf.Send(i) {
			t.Fatalf("Send(%d) returned false", i)
		}
	}

	if buf.Len() != 5 {
		t.Errorf("Len() = %d, want 5", buf.Len())
	}

	got := buf.DrainTo(0)
	if len(got) != 5 {
		t.Fatalf("DrainTo(0) returned %d items, want 5", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Errorf("item %d = %d, want %d", i, v, i)
		}
	}

	if buf.DrainTo(0) != nil {
		t.Error("DrainTo on empty buffer should return nil")
	}
}

func TestGrowableBuffer_DrainToMax(t *testing.T) {
	buf := NewGrowableBuffer[int](4)
	for i := 0; i < 10; i++ {
		buf.Send(i)
	}

	first := buf.DrainTo(3)
	if len(first) != 3 || first[0] != 0 || first[2] != 2 {
		t.Errorf("first drain = %v, want [0 1 2]", first)
	}
	if buf.Len() != 7 {
		t.Errorf("Len() = %d, want 7", buf.Len())
	}

	rest := buf.DrainTo(100)
	if len(rest) != 7 || rest[0] != 3 || rest[6] != 9 {
		t.Errorf("rest = %v, want [3..9]", rest)
	}
}

func TestGrowableBuffer_GrowAt70Percent(t *testing.T) {
	buf := NewGrowableBuffer[int](10)

	for i := 0; i < 7; i++ {
		buf.Send(i)
	}

	stats := buf.Stats()
	if stats.Capacity != 20 {
		t.Errorf("Capacity = %d, want 20", stats.Capacity)
	}
	if stats.ResizeCount != 1 {
		t.Errorf("ResizeCount = %d, want 1", stats.ResizeCount)
	}

	got := buf.DrainTo(0)
	for i, v := range got {
		if v != i {
			t.Errorf("item %d = %d after grow", i, v)
		}
	}
}

func TestGrowableBuffer_WrapAround(t *testing.T) {
	buf := NewGrowableBuffer[int](10)

	// Advance head so the next grow copies a wrapped ring.
	for i := 0; i < 5; i++ {
		buf.Send(i)
	}
	buf.DrainTo(4)
	for i := 5; i < 20; i++ {
		buf.Send(i)
	}

	got := buf.DrainTo(0)
	if len(got) != 16 {
		t.Fatalf("len = %d, want 16", len(got))
	}
	for i, v := range got {
		if v != i+4 {
			t.Fatalf("item %d = %d, want %d", i, v, i+4)
		}
	}
}

func TestBoundedBuffer_EvictsOldest(t *testing.T) {
	buf := NewBoundedBuffer[int](4, 500)

	for i := 0; i < 1200; i++ {
		buf.Send(i)
	}

	stats := buf.Stats()
	if stats.Count != 500 {
		t.Errorf("Count = %d, want 500", stats.Count)
	}
	if stats.Capacity != 500 {
		t.Errorf("Capacity = %d, want 500", stats.Capacity)
	}
	if stats.Dropped != 700 {
		t.Errorf("Dropped = %d, want 700", stats.Dropped)
	}

	got := buf.DrainTo(0)
	if got[0] != 700 || got[len(got)-1] != 1199 {
		t.Errorf("kept range [%d..%d], want [700..1199]", got[0], got[len(got)-1])
	}
}

func TestBoundedBuffer_InitialCapacityClamped(t *testing.T) {
	buf := NewBoundedBuffer[string](100, 3)
	if buf.Cap() != 3 {
		t.Errorf("Cap() = %d, want 3", buf.Cap())
	}
	for _, s := range []string{"a", "b", "c", "d"} {
		buf.Send(s)
	}
	got := buf.DrainTo(0)
	if len(got) != 3 || got[0] != "b" || got[2] != "d" {
		t.Errorf("got %v, want [b c d]", got)
	}
}

func TestGrowableBuffer_Close(t *testing.T) {
	buf := NewGrowableBuffer[int](10)
	buf.Send(1)
	buf.Close()

	if !buf.Closed() {
		t.Error("Closed() = false after Close")
	}
	if buf.Send(2) {
		t.Error("Send after Close should return false")
	}
	if got := buf.DrainTo(0); len(got) != 1 || got[0] != 1 {
		t.Errorf("remaining items = %v, want [1]", got)
	}
}

func TestGrowableBuffer_ConcurrentSend(t *testing.T) {
	buf := NewGrowableBuffer[int](8)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				buf.Send(i)
			}
		}()
	}

	drained := 0
	var mu sync.Mutex
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			n := len(buf.DrainTo(10))
			mu.Lock()
			drained += n
			mu.Unlock()
		}
	}()
	wg.Wait()

	drained += len(buf.DrainTo(0))
	if drained != 1000 {
		t.Errorf("drained %d items, want 1000", drained)
	}
	if stats := buf.Stats(); stats.TotalReceived != 1000 || stats.TotalSent != 1000 {
		t.Errorf("stats = %+v, want 1000 received and sent", stats)
	}
}

func TestNewGrowableBuffer_MinCapacity(t *testing.T) {
	buf := NewGrowableBuffer[int](0)
	if buf.Cap() < 1 {
		t.Errorf("Cap() = %d, want >= 1", buf.Cap())
	}
	buf.Send(42)
	if got := buf.DrainTo(0); len(got) != 1 || got[0] != 42 {
		t.Errorf("got %v, want [42]", got)
	}
}
