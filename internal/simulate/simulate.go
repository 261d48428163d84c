// Package simulate fast-forwards the capture schedule over a virtual clock.
//
// A run drives the real schedule engine and button service on an in-memory
// store, applying scripted button presses and restarts in time order. Every
// next-fire time the engine computes is checked against the cron expression
// of its period.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/shutterloop/shutterloop/internal/button"
	"github.com/shutterloop/shutterloop/internal/schedule"
	"github.com/shutterloop/shutterloop/pkg/eeprom"
)

// Kind classifies a simulation event.
type Kind int

const (
	// Fire is a due capture.
	Fire Kind = iota
	// Press is an accepted button edge.
	Press
	// PressIgnored is an edge dropped by debounce.
	PressIgnored
	// Restart rebuilds the engine from the store, as after a power cycle.
	Restart
)

func (k Kind) String() string {
	switch k {
	case Fire:
		return "fire"
	case Press:
		return "press"
	case PressIgnored:
		return "press-ignored"
	case Restart:
		return "restart"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ButtonPress is a scripted edge on a button.
type ButtonPress struct {
	At     time.Time
	Button button.ID
}

// Options configures a run.
type Options struct {
	// From is the virtual time the device boots at.
	From time.Time
	// For is the simulated horizon.
	For time.Duration
	// Schedule configures the engine.
	Schedule schedule.Options
	// Debounce is the button debounce window. Zero means
	// button.DefaultDebounce.
	Debounce time.Duration
	// Period, when set, is selected at boot as if chosen by the operator.
	Period *schedule.Period
	// Presses and Restarts are applied at their times, in script order for
	// equal times. Entries outside [From, From+For] are ignored.
	Presses  []ButtonPress
	Restarts []time.Time
	// Store holds the persisted schedule. Nil means a blank MemStore, as on
	// first boot.
	Store eeprom.Store
	// OnEvent is called for every event, in time order.
	OnEvent func(Event)
}

// Event is one step of the simulation.
type Event struct {
	At     time.Time
	Kind   Kind
	Button button.ID // Press and PressIgnored only
	Period schedule.Period
	// Next is the next-fire time the engine computed after the event.
	Next time.Time
	// Expected is the next tick of Period's cron expression after the
	// reference time Next was computed from. Zero for PressIgnored.
	Expected time.Time
}

// Mismatch reports whether the engine disagreed with the cron reference.
func (e Event) Mismatch() bool {
	return !e.Expected.IsZero() && !e.Expected.Equal(e.Next)
}

// Report summarizes a run.
type Report struct {
	Fires    int
	Presses  int
	Ignored  int
	Restarts int
	// Mismatches holds every event whose next-fire time disagreed with the
	// cron reference.
	Mismatches []Event
	// Final is the schedule at the end of the horizon.
	Final schedule.State
}

var ErrNoHorizon = errors.New("simulate: horizon must be positive")

type actionKind int

const (
	actPress actionKind = iota
	actRestart
)

type action struct {
	At     time.Time
	kind   actionKind
	button button.ID
	seq    int
}

type run struct {
	opts    Options
	store   eeprom.Store
	now     time.Time
	engine  *schedule.Engine
	buttons *button.Service
	report  Report
}

// Run simulates opts.For of operation starting at opts.From. It stops early
// with ctx's error if ctx is canceled.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.For <= 0 {
		return nil, ErrNoHorizon
	}
	r := &run{opts: opts, store: opts.Store, now: opts.From.UTC().Truncate(time.Second)}
	if r.store == nil {
		r.store = eeprom.NewMemStore(64)
	}
	end := r.now.Add(opts.For)

	script := &scriptHeap{}
	seq := 0
	for _, p := range opts.Presses {
		if !p.At.Before(r.now) {
			heapPush(script, action{At: p.At.UTC(), kind: actPress, button: p.Button, seq: seq})
		}
		seq++
	}
	for _, t := range opts.Restarts {
		if !t.Before(r.now) {
			heapPush(script, action{At: t.UTC(), kind: actRestart, seq: seq})
		}
		seq++
	}

	r.boot(false)
	if opts.Period != nil {
		r.engine.SetPeriodAndNextAfter(r.now, *opts.Period)
	}

	for i := 0; ; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fire := r.engine.Next()
		if fire.Before(r.now) {
			fire = r.now
		}
		// a capture due at the same instant as a scripted action goes first
		if script.Len() > 0 && (*script)[0].At.Before(fire) {
			a := heapPop(script)
			if a.At.After(end) {
				break
			}
			r.now = a.At
			r.apply(a)
			continue
		}
		if fire.After(end) {
			break
		}
		r.now = fire
		r.fire()
	}
	r.report.Final = r.engine.State()
	return &r.report, nil
}

func (r *run) boot(restart bool) {
	if r.buttons == nil || restart {
		debounce := r.opts.Debounce
		if debounce <= 0 {
			debounce = button.DefaultDebounce
		}
		r.buttons = button.New(&button.Options{
			Debounce: debounce,
			Now:      func() time.Time { return r.now },
		})
	}
	r.engine = schedule.New(r.store, r.opts.Schedule, r.now)
	if !restart {
		return
	}
	r.report.Restarts++
	ref := r.now
	if r.opts.Schedule.TrackLastPhoto {
		ref = r.engine.LastPhotoTime()
	}
	r.emit(Event{At: r.now, Kind: Restart}, ref)
}

func (r *run) apply(a action) {
	switch a.kind {
	case actRestart:
		r.boot(true)
	case actPress:
		if !r.buttons.HandlePress(a.button) {
			r.report.Ignored++
			r.emit(Event{At: r.now, Kind: PressIgnored, Button: a.button}, time.Time{})
			return
		}
		// The main loop consumes the edge in the same step.
		r.buttons.Consume(a.button)
		r.report.Presses++
		if a.button == button.Change {
			r.engine.CyclePeriodAndRescheduleAfter(r.now)
		}
		r.emit(Event{At: r.now, Kind: Press, Button: a.button}, r.now)
	}
}

func (r *run) fire() {
	r.report.Fires++
	r.engine.RecordLastPhoto(r.now)
	r.engine.AdvancePast(r.now)
	r.emit(Event{At: r.now, Kind: Fire}, r.now)
}

// emit fills in the schedule fields of e, cross-checks the next-fire time
// computed from ref, and hands e to the callback.
func (r *run) emit(e Event, ref time.Time) {
	e.Period = r.engine.Period()
	e.Next = r.engine.Next()
	if !ref.IsZero() {
		e.Expected = expectedNext(e.Period, r.opts.Schedule.DailyHourUTC, ref)
		if e.Mismatch() {
			r.report.Mismatches = append(r.report.Mismatches, e)
		}
	}
	if r.opts.OnEvent != nil {
		r.opts.OnEvent(e)
	}
}

// expectedNext is the first tick of p's cron expression strictly after ref.
// A zero time means gronx could not evaluate the expression. Every boundary
// is a whole minute, so ref is truncated to the minute before asking.
func expectedNext(p schedule.Period, dailyHour int, ref time.Time) time.Time {
	next, err := gronx.NextTickAfter(p.CronExpr(dailyHour), ref.UTC().Truncate(time.Minute), false)
	if err != nil {
		return time.Time{}
	}
	return next.UTC()
}
