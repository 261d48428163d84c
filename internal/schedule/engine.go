package schedule

import (
	"time"

	"github.com/shutterloop/shutterloop/pkg/eeprom"
)

// DefaultDailyHourUTC is the hour OneDay fires at: 16:00 US Eastern in winter.
const DefaultDailyHourUTC = 21

// Options configures an Engine.
type Options struct {
	Layout
	// DailyHourUTC is the hour of day, 0-23 UTC, at which OneDay fires.
	DailyHourUTC int
	// TrackLastPhoto persists the time of every capture and uses it as the
	// anchor after a restart.
	TrackLastPhoto bool
}

// DefaultOptions returns the options the device ships with.
func DefaultOptions() Options {
	return Options{
		Layout:         DefaultLayout(),
		DailyHourUTC:   DefaultDailyHourUTC,
		TrackLastPhoto: true,
	}
}

// State is a point-in-time copy of the engine's schedule.
type State struct {
	Period    Period
	Span      time.Duration
	Next      time.Time
	LastPhoto time.Time
}

// Engine is the capture schedule.
type Engine struct {
	store  eeprom.Store
	opts   Options
	period Period
	span   time.Duration
	next   time.Time
}

// New loads the schedule from store, initializing it with defaults when the
// magic byte is missing, and computes the first next-fire time. The anchor is
// the persisted last-photo time when opts.TrackLastPhoto is set, and initial
// otherwise.
func New(store eeprom.Store, opts Options, initial time.Time) *Engine {
	e := &Engine{store: store, opts: opts}
	rec := Initialize(store, opts.Layout)
	anchor := initial
	if opts.TrackLastPhoto {
		anchor = rec.LastPhotoTime()
	}
	e.SetPeriodAndNextAfter(anchor, rec.Period)
	return e
}

// IsTimeFor reports whether a capture is due at now. A sample equal to the
// next-fire time is due.
func (e *Engine) IsTimeFor(now time.Time) bool {
	return !wholeSecond(now).Before(e.next)
}

// SetPeriodAndNextAfter switches to p and schedules the first fire after
// now. The period is persisted before the fire time is computed.
func (e *Engine) SetPeriodAndNextAfter(now time.Time, p Period) {
	p = p.normalize()
	e.period = p
	storePeriod(e.store, e.opts.Layout, p)
	e.span = p.Span()
	e.AdvancePast(now)
}

// CyclePeriodAndRescheduleAfter moves to the next period in cycle order.
func (e *Engine) CyclePeriodAndRescheduleAfter(now time.Time) {
	e.SetPeriodAndNextAfter(now, e.period.Next())
}

// AdvancePast sets the next-fire time to the first period boundary strictly
// after now, however far in the past the previous one was.
func (e *Engine) AdvancePast(now time.Time) {
	e.next = stepPast(e.period.Anchor(now, e.opts.DailyHourUTC), e.span, now)
}

// RecordLastPhoto persists now as the time of the last capture. It does
// nothing unless last-photo tracking is enabled.
func (e *Engine) RecordLastPhoto(now time.Time) {
	if !e.opts.TrackLastPhoto {
		return
	}
	storeLastPhoto(e.store, e.opts.Layout, now)
}

// LastPhotoTime returns the persisted last-capture time, the Unix epoch if
// none was recorded.
func (e *Engine) LastPhotoTime() time.Time {
	return time.Unix(int64(eeprom.ReadWord32(e.store, e.opts.Base+offLastPhoto)), 0).UTC()
}

// Period returns the period in force.
func (e *Engine) Period() Period { return e.period }

// Span returns the duration of the current period.
func (e *Engine) Span() time.Duration { return e.span }

// Next returns the next fire time, always after the last time passed to
// AdvancePast or CyclePeriodAndRescheduleAfter.
func (e *Engine) Next() time.Time { return e.next }

// Options returns the options the engine was built with.
func (e *Engine) Options() Options { return e.opts }

// State returns a copy of the current schedule.
func (e *Engine) State() State {
	return State{
		Period:    e.period,
		Span:      e.span,
		Next:      e.next,
		LastPhoto: e.LastPhotoTime(),
	}
}
