// Package button turns raw edge notifications from two physical buttons into
// debounced, single-shot press events.
//
// Edges are delivered with HandlePress from any goroutine (the stand-in for
// interrupt context) and consumed with Consume from the main loop. Each
// button keeps its pending flag and last accepted time in one atomic word,
// so an edge and a consume can interleave at any point without a lock.
package button

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// ID names a logical button.
type ID int

const (
	// Wake shows the current schedule.
	Wake ID = iota
	// Change cycles the capture period.
	Change

	numButtons
)

// DefaultDebounce is the minimum spacing between two accepted edges.
const DefaultDebounce = 500 * time.Millisecond

func (id ID) String() string {
	switch id {
	case Wake:
		return "wake"
	case Change:
		return "change"
	}
	return fmt.Sprintf("button(%d)", int(id))
}

// ParseID maps "wake" and "change" to their IDs.
func ParseID(s string) (ID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wake":
		return Wake, nil
	case "change", "mode":
		return Change, nil
	}
	return 0, fmt.Errorf("button: unknown button %q", s)
}

// Options configures a Service.
type Options struct {
	// Debounce is the window measured from the last accepted edge. Zero
	// means DefaultDebounce.
	Debounce time.Duration
	// Now is the time source. Nil means time.Now.
	Now func() time.Time
}

// Bit layout of a button's state word. The remaining high bits hold the
// accepted-edge time in milliseconds since the service was created.
const (
	pendingBit  = 1 << 0
	acceptedBit = 1 << 1
	timeShift   = 2
)

// Service tracks the two buttons.
type Service struct {
	debounceMs int64
	now        func() time.Time
	epoch      time.Time
	state      [numButtons]atomic.Uint64
}

// New returns a Service with no pending presses.
func New(opts *Options) *Service {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Service{
		debounceMs: o.Debounce.Milliseconds(),
		now:        o.Now,
		epoch:      o.Now(),
	}
}

func (s *Service) millis() uint64 {
	d := s.now().Sub(s.epoch).Milliseconds()
	if d < 0 {
		return 0
	}
	return uint64(d)
}

// HandlePress records an edge on button id. The edge is accepted only when
// no press is pending and more than the debounce window has passed since the
// last accepted edge; otherwise it is dropped. It reports whether the edge
// was accepted. HandlePress never blocks.
func (s *Service) HandlePress(id ID) bool {
	if id < 0 || id >= numButtons {
		return false
	}
	t := s.millis()
	st := &s.state[id]
	for {
		old := st.Load()
		if old&pendingBit != 0 {
			return false
		}
		if old&acceptedBit != 0 {
			last := old >> timeShift
			if t < last || int64(t-last) <= s.debounceMs {
				return false
			}
		}
		if st.CompareAndSwap(old, t<<timeShift|acceptedBit|pendingBit) {
			return true
		}
	}
}

// Consume reports whether a press on id was pending and clears it.
func (s *Service) Consume(id ID) bool {
	if id < 0 || id >= numButtons {
		return false
	}
	st := &s.state[id]
	for {
		old := st.Load()
		if old&pendingBit == 0 {
			return false
		}
		if st.CompareAndSwap(old, old&^pendingBit) {
			return true
		}
	}
}

// Pending reports whether id has an unconsumed press, without clearing it.
func (s *Service) Pending(id ID) bool {
	if id < 0 || id >= numButtons {
		return false
	}
	return s.state[id].Load()&pendingBit != 0
}
