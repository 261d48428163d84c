// Package controller runs the capture loop: it samples the clock, applies
// button presses to the schedule, and fires the camera when a capture is
// due.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shutterloop/shutterloop/common"
	"github.com/shutterloop/shutterloop/internal/button"
	"github.com/shutterloop/shutterloop/internal/hw"
	"github.com/shutterloop/shutterloop/internal/journal"
	"github.com/shutterloop/shutterloop/internal/policy"
	"github.com/shutterloop/shutterloop/internal/schedule"
	"github.com/shutterloop/shutterloop/pkg/eeprom"
	"github.com/shutterloop/shutterloop/pkg/logger"
)

type Clock interface {
	Now() time.Time
}

type Camera interface {
	Capture(ctx context.Context) error
}

// Sensors returns raw 10-bit ADC readings.
type Sensors interface {
	Light() (int, error)
	Battery() (int, error)
}

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type Display interface {
	ShowPeriod(p schedule.Period, next time.Time)
}

type Journal interface {
	Append(ctx context.Context, e journal.Entry) (journal.Entry, error)
}

// Policy may veto a capture the thresholds allowed. A non-empty reason
// skips it.
type Policy interface {
	Decide(r policy.Reading) (reason string, err error)
}

// Notifier delivers push notifications to connected clients.
type Notifier interface {
	Broadcast(method string, params any)
}

// Options configures a Controller. Camera is required. A zero
// DarkThreshold disables the darkness check.
type Options struct {
	Interval      time.Duration
	DarkThreshold int
	LowVolts      float64
	Divider       hw.Divider

	Clock    Clock
	Camera   Camera
	Sensors  Sensors
	Sleeper  Sleeper
	Display  Display
	Journal  Journal
	Notifier Notifier
	Policy   Policy
	Log      logger.Logger
}

// Outcome describes what happened at one due capture.
type Outcome struct {
	At       time.Time
	Kind     journal.Kind
	Period   schedule.Period
	Light    *int
	BatteryV *float64
	Detail   string
	Next     time.Time
}

// Status is a snapshot of the loop, safe to read from any goroutine.
type Status struct {
	schedule.State
	// Sampled is the clock reading of the iteration that produced the
	// snapshot.
	Sampled time.Time
	Last    *Outcome
}

// DueAt reports whether a capture is due at now.
func (s Status) DueAt(now time.Time) bool {
	return !now.Before(s.Next)
}

// Controller owns the schedule engine. Step and Run must be called from a
// single goroutine; Status and Buttons may be used from any.
type Controller struct {
	opts    Options
	engine  *schedule.Engine
	buttons *button.Service
	store   eeprom.Store

	status   atomic.Pointer[Status]
	last     *Outcome
	storeErr error
}

// New returns a controller driving engine. store is the engine's backing
// store, checked for write errors after each step.
func New(engine *schedule.Engine, buttons *button.Service, store eeprom.Store, opts Options) *Controller {
	if opts.Log == nil {
		opts.Log = logger.NewNopLogger()
	}
	if opts.Sleeper == nil {
		opts.Sleeper = hw.TimerSleeper{}
	}
	if opts.Clock == nil {
		opts.Clock = hw.SystemClock{}
	}
	c := &Controller{
		opts:    opts,
		engine:  engine,
		buttons: buttons,
		store:   store,
	}
	c.publish(opts.Clock.Now())
	return c
}

// Buttons returns the button service the loop consumes presses from.
func (c *Controller) Buttons() *button.Service {
	return c.buttons
}

// Status returns the snapshot published by the latest step.
func (c *Controller) Status() Status {
	return *c.status.Load()
}

// Run journals a start entry and then alternates Step and sleep until ctx
// is done. It returns nil on cancellation.
func (c *Controller) Run(ctx context.Context) error {
	now := sample(c.opts.Clock)
	st := c.engine.State()
	c.opts.Log.Info("started: period %s, next capture %s", st.Period, st.Next.Format(time.RFC3339))
	c.journal(ctx, journal.Entry{
		At:     now,
		Kind:   journal.KindStarted,
		Period: st.Period.String(),
		Detail: "next " + st.Next.Format(time.RFC3339),
	})
	for {
		c.Step(ctx)
		if err := c.opts.Sleeper.Sleep(ctx, c.opts.Interval); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Step runs one iteration of the loop and returns the outcome of the
// capture it fired, or nil if none was due.
func (c *Controller) Step(ctx context.Context) *Outcome {
	now := sample(c.opts.Clock)

	if c.buttons != nil && c.buttons.Consume(button.Wake) {
		c.show()
	}

	// a due capture fires before a change press reschedules past now
	var out *Outcome
	if c.engine.IsTimeFor(now) {
		out = c.capture(ctx, now)
		c.engine.AdvancePast(now)
		out.Next = c.engine.Next()
		c.last = out
		c.captured(ctx, out)
	}

	if c.buttons != nil && c.buttons.Consume(button.Change) {
		c.engine.CyclePeriodAndRescheduleAfter(now)
		c.periodChanged(ctx, now)
	}

	c.publish(now)
	c.checkStore()
	return out
}

func sample(clock Clock) time.Time {
	return clock.Now().UTC().Truncate(time.Second)
}

func (c *Controller) capture(ctx context.Context, now time.Time) *Outcome {
	out := &Outcome{At: now, Period: c.engine.Period()}

	if raw, ok := c.read("battery", c.sensor(Sensors.Battery)); ok {
		v := c.opts.Divider.Volts(raw)
		out.BatteryV = &v
		if v < c.opts.LowVolts {
			out.Kind = journal.KindSkippedBattery
			out.Detail = fmt.Sprintf("battery %.2fV below %.2fV", v, c.opts.LowVolts)
			return out
		}
	}
	if raw, ok := c.read("light", c.sensor(Sensors.Light)); ok {
		out.Light = &raw
		if c.opts.DarkThreshold > 0 && raw >= c.opts.DarkThreshold {
			out.Kind = journal.KindSkippedDark
			out.Detail = fmt.Sprintf("light %d at or above %d", raw, c.opts.DarkThreshold)
			return out
		}
	}

	if reason := c.vetoed(now, out); reason != "" {
		out.Kind = journal.KindSkippedPolicy
		out.Detail = reason
		return out
	}

	if err := c.opts.Camera.Capture(ctx); err != nil {
		out.Kind = journal.KindFailed
		out.Detail = err.Error()
		return out
	}
	out.Kind = journal.KindCaptured
	c.engine.RecordLastPhoto(now)
	return out
}

// vetoed asks the policy script about out. A failing script never blocks
// a capture.
func (c *Controller) vetoed(now time.Time, out *Outcome) string {
	if c.opts.Policy == nil {
		return ""
	}
	reason, err := c.opts.Policy.Decide(policy.Reading{
		At:       now,
		Period:   out.Period.String(),
		Light:    out.Light,
		BatteryV: out.BatteryV,
	})
	if err != nil {
		c.opts.Log.Warning("policy: %v", err)
		return ""
	}
	return reason
}

func (c *Controller) sensor(read func(Sensors) (int, error)) func() (int, error) {
	return func() (int, error) {
		if c.opts.Sensors == nil {
			return 0, hw.ErrNoSensor
		}
		return read(c.opts.Sensors)
	}
}

// read treats any sensor failure as an unknown reading, which never
// blocks a capture.
func (c *Controller) read(name string, fn func() (int, error)) (int, bool) {
	v, err := fn()
	if err != nil {
		if !errors.Is(err, hw.ErrNoSensor) {
			c.opts.Log.Warning("%s sensor: %v", name, err)
		}
		return 0, false
	}
	return v, true
}

func (c *Controller) show() {
	if c.opts.Display != nil {
		c.opts.Display.ShowPeriod(c.engine.Period(), c.engine.Next())
	}
}

func (c *Controller) periodChanged(ctx context.Context, now time.Time) {
	p, next := c.engine.Period(), c.engine.Next()
	c.opts.Log.Info("period changed to %s, next capture %s", p, next.Format(time.RFC3339))
	c.show()
	c.journal(ctx, journal.Entry{
		At:     now,
		Kind:   journal.KindPeriodChanged,
		Period: p.String(),
		Detail: "next " + next.Format(time.RFC3339),
	})
	c.notify(common.NotifyScheduleChanged, &common.ScheduleEvent{At: now, Period: p.String(), Next: next})
}

func (c *Controller) captured(ctx context.Context, out *Outcome) {
	switch out.Kind {
	case journal.KindCaptured:
		c.opts.Log.Info("captured (period %s), next %s", out.Period, out.Next.Format(time.RFC3339))
	case journal.KindFailed:
		c.opts.Log.Error("capture failed: %s", out.Detail)
	default:
		c.opts.Log.Info("capture skipped: %s", out.Detail)
	}
	c.journal(ctx, journal.Entry{
		At:       out.At,
		Kind:     out.Kind,
		Period:   out.Period.String(),
		Light:    out.Light,
		BatteryV: out.BatteryV,
		Detail:   out.Detail,
	})
	c.notify(common.NotifyCaptureFired, out.Event())
}

func (c *Controller) journal(ctx context.Context, e journal.Entry) {
	if c.opts.Journal == nil {
		return
	}
	if _, err := c.opts.Journal.Append(ctx, e); err != nil {
		c.opts.Log.Warning("journal: %v", err)
	}
}

func (c *Controller) notify(method string, params any) {
	if c.opts.Notifier != nil {
		c.opts.Notifier.Broadcast(method, params)
	}
}

func (c *Controller) publish(now time.Time) {
	c.status.Store(&Status{
		State:   c.engine.State(),
		Sampled: now,
		Last:    c.last,
	})
}

// checkStore logs each distinct sticky write error of a file-backed store
// once.
func (c *Controller) checkStore() {
	es, ok := c.store.(interface{ Err() error })
	if !ok {
		return
	}
	err := es.Err()
	if err != nil && err != c.storeErr {
		c.opts.Log.Warning("schedule store: %v", err)
	}
	c.storeErr = err
}

// Event converts o to its push notification payload.
func (o *Outcome) Event() *common.CaptureEvent {
	return &common.CaptureEvent{
		At:       o.At,
		Outcome:  string(o.Kind),
		Period:   o.Period.String(),
		Light:    o.Light,
		BatteryV: o.BatteryV,
		Detail:   o.Detail,
		Next:     o.Next,
	}
}
