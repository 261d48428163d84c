package button

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	base time.Time
	off  atomic.Int64
}

func newFakeClock() *fakeClock {
	return &fakeClock{base: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.base.Add(time.Duration(c.off.Load())) }

func (c *fakeClock) Set(d time.Duration) { c.off.Store(int64(d)) }

func TestService_DebounceFromLastAcceptedEdge(t *testing.T) {
	clk := newFakeClock()
	s := New(&Options{Debounce: 500 * time.Millisecond, Now: clk.Now})

	steps := []struct {
		at      time.Duration
		consume bool
		want    bool
	}{
		{at: 0, want: true},                       // first edge accepted
		{at: 100 * time.Millisecond, want: false}, // pending and inside window
		{at: 150 * time.Millisecond, consume: true, want: true},
		{at: 200 * time.Millisecond, want: false}, // not pending, but 200ms after the accepted edge
		{at: 500 * time.Millisecond, want: false}, // exactly the window is not enough
		{at: 501 * time.Millisecond, want: true},
		{at: 600 * time.Millisecond, consume: true, want: true},
		{at: 700 * time.Millisecond, consume: true, want: false},
	}
	for i, st := range steps {
		clk.Set(st.at)
		var got bool
		if st.consume {
			got = s.Consume(Wake)
		} else {
			got = s.HandlePress(Wake)
		}
		if got != st.want {
			t.Fatalf("step %d at %v (consume=%v): got %v, want %v", i, st.at, st.consume, got, st.want)
		}
	}
}

func TestService_ConsumeIsSingleShot(t *testing.T) {
	s := New(nil)
	if s.Consume(Change) {
		t.Fatal("Consume on a fresh service returned true")
	}
	if !s.HandlePress(Change) {
		t.Fatal("first press dropped")
	}
	if !s.Pending(Change) {
		t.Fatal("Pending() = false after accepted press")
	}
	if !s.Consume(Change) {
		t.Fatal("Consume() = false with a pending press")
	}
	if s.Consume(Change) {
		t.Fatal("second Consume() returned true")
	}
}

func TestService_ButtonsAreIndependent(t *testing.T) {
	clk := newFakeClock()
	s := New(&Options{Now: clk.Now})

	if !s.HandlePress(Wake) {
		t.Fatal("wake press dropped")
	}
	clk.Set(10 * time.Millisecond)
	if !s.HandlePress(Change) {
		t.Fatal("change press dropped while wake pending")
	}
	if !s.Consume(Change) || s.Pending(Change) {
		t.Fatal("change not consumed")
	}
	if !s.Pending(Wake) {
		t.Fatal("consuming change cleared wake")
	}
}

func TestService_BurstCollapsesToOneEvent(t *testing.T) {
	clk := newFakeClock()
	s := New(&Options{Now: clk.Now})
	accepted := 0
	for i := 0; i < 50; i++ {
		clk.Set(time.Duration(i) * 2 * time.Second)
		if s.HandlePress(Change) {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted %d edges without a consume, want 1", accepted)
	}
}

func TestService_UnknownID(t *testing.T) {
	s := New(nil)
	if s.HandlePress(ID(7)) || s.Consume(ID(-1)) || s.Pending(ID(2)) {
		t.Fatal("unknown button IDs must be ignored")
	}
}

func TestParseID(t *testing.T) {
	tests := map[string]ID{"wake": Wake, "Change": Change, " mode ": Change}
	for in, want := range tests {
		got, err := ParseID(in)
		if err != nil || got != want {
			t.Errorf("ParseID(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseID("shutter"); err == nil {
		t.Error("ParseID(shutter) should fail")
	}
	if Wake.String() != "wake" || Change.String() != "change" {
		t.Errorf("String() = %q, %q", Wake, Change)
	}
}

// Every accepted edge must be consumed exactly once, no matter how edges
// and consumes interleave.
func TestService_ConcurrentEdgesAndConsumes(t *testing.T) {
	var tick atomic.Int64
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Second)
	}
	s := New(&Options{Debounce: time.Millisecond, Now: now})

	const producers, edges = 8, 2000
	var accepted atomic.Int64
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < edges; i++ {
				if s.HandlePress(Change) {
					accepted.Add(1)
				}
			}
		}()
	}

	finished := stop(&wg)
	done := make(chan struct{})
	var consumed int64
	go func() {
		defer close(done)
		for {
			if s.Consume(Change) {
				consumed++
				continue
			}
			select {
			case <-finished:
				if s.Consume(Change) {
					consumed++
				}
				return
			default:
			}
		}
	}()
	<-done

	if consumed != accepted.Load() {
		t.Fatalf("consumed %d presses, accepted %d", consumed, accepted.Load())
	}
	if consumed == 0 {
		t.Fatal("no presses went through")
	}
}

// stop returns a channel closed once wg is done.
func stop(wg *sync.WaitGroup) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	return ch
}
