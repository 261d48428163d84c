package controller

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
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

var t0 = time.Date(2024, 3, 1, 12, 34, 56, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeCamera struct {
	err   error
	calls int
}

func (c *fakeCamera) Capture(context.Context) error {
	c.calls++
	return c.err
}

type fakeSensors struct {
	light, battery       int
	lightErr, batteryErr error
}

func (s *fakeSensors) Light() (int, error)   { return s.light, s.lightErr }
func (s *fakeSensors) Battery() (int, error) { return s.battery, s.batteryErr }

type fakeJournal struct {
	entries []journal.Entry
}

func (j *fakeJournal) Append(_ context.Context, e journal.Entry) (journal.Entry, error) {
	j.entries = append(j.entries, e)
	return e, nil
}

func (j *fakeJournal) kinds() []journal.Kind {
	var out []journal.Kind
	for _, e := range j.entries {
		out = append(out, e.Kind)
	}
	return out
}

type notification struct {
	method string
	params any
}

type fakeNotifier struct {
	sent []notification
}

func (n *fakeNotifier) Broadcast(method string, params any) {
	n.sent = append(n.sent, notification{method, params})
}

type fakeDisplay struct {
	shown []schedule.Period
}

func (d *fakeDisplay) ShowPeriod(p schedule.Period, _ time.Time) {
	d.shown = append(d.shown, p)
}

// a 12.0V battery reading and a daylight reading
var okSensors = fakeSensors{light: 500, battery: 683}

type rig struct {
	c        *Controller
	clock    *fakeClock
	camera   *fakeCamera
	sensors  *fakeSensors
	journal  *fakeJournal
	notifier *fakeNotifier
	display  *fakeDisplay
	buttons  *button.Service
	store    *eeprom.MemStore
	log      *logger.MockLogger
}

func newRig(t *testing.T, opts schedule.Options) *rig {
	t.Helper()
	r := &rig{
		clock:    &fakeClock{now: t0},
		camera:   &fakeCamera{},
		sensors:  &fakeSensors{light: okSensors.light, battery: okSensors.battery},
		journal:  &fakeJournal{},
		notifier: &fakeNotifier{},
		display:  &fakeDisplay{},
		store:    eeprom.NewMemStore(64),
		log:      logger.NewMockLogger(),
	}
	r.buttons = button.New(&button.Options{Now: r.clock.Now})
	engine := schedule.New(r.store, opts, t0)
	r.c = New(engine, r.buttons, r.store, Options{
		Interval:      10 * time.Second,
		DarkThreshold: 950,
		LowVolts:      11.8,
		Divider:       hw.Divider{ARef: 4.984, Source: 838, Ground: 332, Adjust: 1.026},
		Clock:         r.clock,
		Camera:        r.camera,
		Sensors:       r.sensors,
		Display:       r.display,
		Journal:       r.journal,
		Notifier:      r.notifier,
		Log:           r.log,
	})
	return r
}

func untracked() schedule.Options {
	o := schedule.DefaultOptions()
	o.TrackLastPhoto = false
	return o
}

func TestStep_NotDue(t *testing.T) {
	r := newRig(t, untracked())
	if out := r.c.Step(context.Background()); out != nil {
		t.Fatalf("expected no capture, got %+v", out)
	}
	if r.camera.calls != 0 || len(r.journal.entries) != 0 {
		t.Error("nothing should happen before the next fire time")
	}
}

func TestStep_CapturesWhenDue(t *testing.T) {
	r := newRig(t, schedule.DefaultOptions())
	at := time.Date(2024, 3, 1, 12, 40, 0, 0, time.UTC)
	r.clock.Set(at.Add(300 * time.Millisecond))

	out := r.c.Step(context.Background())
	if out == nil || out.Kind != journal.KindCaptured {
		t.Fatalf("expected a capture, got %+v", out)
	}
	if r.camera.calls != 1 {
		t.Errorf("camera calls = %d, want 1", r.camera.calls)
	}
	if !out.At.Equal(at) {
		t.Errorf("At = %v, want whole-second %v", out.At, at)
	}
	if want := at.Add(10 * time.Minute); !out.Next.Equal(want) {
		t.Errorf("Next = %v, want %v", out.Next, want)
	}
	if out.Light == nil || *out.Light != 500 || out.BatteryV == nil {
		t.Errorf("sensor readings not recorded: %+v", out)
	}

	rec, ok := schedule.Load(r.store, schedule.DefaultLayout())
	if !ok || rec.LastPhoto != uint32(at.Unix()) {
		t.Errorf("last photo = %d, want %d", rec.LastPhoto, at.Unix())
	}
	if got := r.journal.kinds(); len(got) != 1 || got[0] != journal.KindCaptured {
		t.Errorf("journal = %v", got)
	}
	if len(r.notifier.sent) != 1 || r.notifier.sent[0].method != common.NotifyCaptureFired {
		t.Fatalf("notifications = %+v", r.notifier.sent)
	}
	ev := r.notifier.sent[0].params.(*common.CaptureEvent)
	if ev.Outcome != "captured" || ev.Period != "10m" {
		t.Errorf("event = %+v", ev)
	}
}

func TestStep_FirstBootFiresWhenTracking(t *testing.T) {
	r := newRig(t, schedule.DefaultOptions())
	out := r.c.Step(context.Background())
	if out == nil || out.Kind != journal.KindCaptured {
		t.Fatalf("expected an immediate capture on a blank store, got %+v", out)
	}
	if want := time.Date(2024, 3, 1, 12, 40, 0, 0, time.UTC); !out.Next.Equal(want) {
		t.Errorf("Next = %v, want %v", out.Next, want)
	}
}

func TestStep_ChangePress(t *testing.T) {
	r := newRig(t, untracked())
	r.buttons.HandlePress(button.Change)

	if out := r.c.Step(context.Background()); out != nil {
		t.Fatalf("cycling must not fire a capture, got %+v", out)
	}
	st := r.c.Status()
	if st.Period != schedule.OneHour {
		t.Fatalf("period = %v, want 1h", st.Period)
	}
	if want := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC); !st.Next.Equal(want) {
		t.Errorf("Next = %v, want %v", st.Next, want)
	}
	if rec, _ := schedule.Load(r.store, schedule.DefaultLayout()); rec.Period != schedule.OneHour {
		t.Errorf("persisted period = %v, want 1h", rec.Period)
	}
	if len(r.display.shown) != 1 || r.display.shown[0] != schedule.OneHour {
		t.Errorf("display = %v", r.display.shown)
	}
	if got := r.journal.kinds(); len(got) != 1 || got[0] != journal.KindPeriodChanged {
		t.Errorf("journal = %v", got)
	}
	if len(r.notifier.sent) != 1 || r.notifier.sent[0].method != common.NotifyScheduleChanged {
		t.Errorf("notifications = %+v", r.notifier.sent)
	}

	// consumed: the next step does not cycle again
	r.c.Step(context.Background())
	if r.c.Status().Period != schedule.OneHour {
		t.Error("a single press must cycle once")
	}
}

func TestStep_ChangePressWhenDue(t *testing.T) {
	r := newRig(t, schedule.DefaultOptions())
	at := time.Date(2024, 3, 1, 12, 40, 0, 0, time.UTC)
	r.clock.Set(at)
	r.buttons.HandlePress(button.Change)

	out := r.c.Step(context.Background())
	if out == nil || out.Kind != journal.KindCaptured {
		t.Fatalf("due capture was dropped by the press, got %+v", out)
	}
	if r.camera.calls != 1 {
		t.Errorf("camera calls = %d, want 1", r.camera.calls)
	}
	if want := []journal.Kind{journal.KindCaptured, journal.KindPeriodChanged}; !slices.Equal(r.journal.kinds(), want) {
		t.Errorf("journal = %v, want %v", r.journal.kinds(), want)
	}
	st := r.c.Status()
	if st.Period != schedule.OneHour {
		t.Errorf("period = %v, want 1h", st.Period)
	}
	if want := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC); !st.Next.Equal(want) {
		t.Errorf("Next = %v, want %v", st.Next, want)
	}
}

func TestStep_WakePressOnlyShows(t *testing.T) {
	r := newRig(t, untracked())
	r.buttons.HandlePress(button.Wake)
	r.c.Step(context.Background())
	if len(r.display.shown) != 1 || r.display.shown[0] != schedule.TenMinutes {
		t.Errorf("display = %v", r.display.shown)
	}
	if r.c.Status().Period != schedule.TenMinutes || len(r.journal.entries) != 0 {
		t.Error("wake must not change the schedule")
	}
}

func TestStep_Skips(t *testing.T) {
	due := time.Date(2024, 3, 1, 12, 40, 0, 0, time.UTC)
	tests := []struct {
		name    string
		sensors fakeSensors
		want    journal.Kind
	}{
		{"low battery", fakeSensors{light: 500, battery: 600}, journal.KindSkippedBattery},
		{"dark", fakeSensors{light: 980, battery: 683}, journal.KindSkippedDark},
		{"exactly dark", fakeSensors{light: 950, battery: 683}, journal.KindSkippedDark},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, untracked())
			*r.sensors = tt.sensors
			r.clock.Set(due)
			out := r.c.Step(context.Background())
			if out == nil || out.Kind != tt.want {
				t.Fatalf("outcome = %+v, want %s", out, tt.want)
			}
			if r.camera.calls != 0 {
				t.Error("camera must not fire when skipping")
			}
			if !r.c.Status().Next.After(due) {
				t.Error("a skipped capture must still advance the schedule")
			}
			if out.Detail == "" {
				t.Error("expected a reason in Detail")
			}
		})
	}
}

func TestStep_SensorErrorsDoNotBlock(t *testing.T) {
	r := newRig(t, untracked())
	r.sensors.lightErr = errors.New("i2c timeout")
	r.sensors.batteryErr = hw.ErrNoSensor
	r.clock.Set(time.Date(2024, 3, 1, 12, 40, 0, 0, time.UTC))

	out := r.c.Step(context.Background())
	if out == nil || out.Kind != journal.KindCaptured {
		t.Fatalf("outcome = %+v, want captured", out)
	}
	if out.Light != nil || out.BatteryV != nil {
		t.Errorf("failed readings should be unknown, got %+v", out)
	}
	w := r.log.Warnings()
	if len(w) != 1 || !strings.Contains(w[0], "light sensor") {
		t.Errorf("warnings = %q, want only the light sensor failure", w)
	}
}

func TestStep_CameraFailure(t *testing.T) {
	r := newRig(t, schedule.DefaultOptions())
	r.camera.err = errors.New("gphoto2: no camera found")
	due := time.Date(2024, 3, 1, 12, 40, 0, 0, time.UTC)
	r.clock.Set(due)

	out := r.c.Step(context.Background())
	if out == nil || out.Kind != journal.KindFailed || !strings.Contains(out.Detail, "no camera") {
		t.Fatalf("outcome = %+v", out)
	}
	if rec, _ := schedule.Load(r.store, schedule.DefaultLayout()); rec.LastPhoto != 0 {
		t.Errorf("a failed capture must not be recorded, last photo = %d", rec.LastPhoto)
	}
	if !r.c.Status().Next.After(due) {
		t.Error("schedule must advance after a failure")
	}
	if len(r.log.Errors()) != 1 {
		t.Errorf("errors = %q", r.log.Errors())
	}
}

func TestStatus(t *testing.T) {
	r := newRig(t, untracked())
	st := r.c.Status()
	if st.Period != schedule.TenMinutes || !st.Sampled.Equal(t0) || st.Last != nil {
		t.Fatalf("initial status = %+v", st)
	}
	if st.DueAt(t0) {
		t.Error("not due at t0")
	}
	if !st.DueAt(st.Next) {
		t.Error("due exactly at Next")
	}

	r.clock.Set(st.Next)
	r.c.Step(context.Background())
	st = r.c.Status()
	if st.Last == nil || st.Last.Kind != journal.KindCaptured {
		t.Errorf("Last = %+v", st.Last)
	}
}

type failingStore struct {
	*eeprom.MemStore
	err error
}

func (s *failingStore) Err() error { return s.err }

func TestStep_StoreErrorLoggedOnce(t *testing.T) {
	store := &failingStore{MemStore: eeprom.NewMemStore(64)}
	m := logger.NewMockLogger()
	engine := schedule.New(store, untracked(), t0)
	c := New(engine, nil, store, Options{Clock: &fakeClock{now: t0}, Camera: &fakeCamera{}, Log: m})

	c.Step(context.Background())
	store.err = errors.New("eeprom: write /var/lib/shutterloop/eeprom.img: read-only file system")
	c.Step(context.Background())
	c.Step(context.Background())
	if n := len(m.Warnings()); n != 1 {
		t.Fatalf("expected one warning, got %q", m.Warnings())
	}
}

// stepSleeper moves the clock forward on every sleep and cancels after n
// sleeps.
type stepSleeper struct {
	clock  *fakeClock
	step   time.Duration
	n      int
	cancel context.CancelFunc
}

func (s *stepSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	s.n--
	if s.n <= 0 {
		s.cancel()
		return ctx.Err()
	}
	s.clock.Set(s.clock.Now().Add(s.step))
	return nil
}

func TestRun(t *testing.T) {
	r := newRig(t, untracked())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.c.opts.Sleeper = &stepSleeper{clock: r.clock, step: time.Minute, n: 60, cancel: cancel}

	if err := r.c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 60 steps from 12:34:56 to 13:33:56 cross six ten-minute boundaries
	if r.camera.calls != 6 {
		t.Errorf("camera calls = %d, want 6", r.camera.calls)
	}
	kinds := r.journal.kinds()
	if len(kinds) == 0 || kinds[0] != journal.KindStarted {
		t.Errorf("journal should start with %q, got %v", journal.KindStarted, kinds)
	}
}

type fakePolicy struct {
	reason string
	err    error
	seen   []policy.Reading
}

func (p *fakePolicy) Decide(r policy.Reading) (string, error) {
	p.seen = append(p.seen, r)
	return p.reason, p.err
}

func TestStep_PolicyVeto(t *testing.T) {
	r := newRig(t, untracked())
	p := &fakePolicy{reason: "outside daylight window"}
	r.c.opts.Policy = p
	due := time.Date(2024, 3, 1, 12, 40, 0, 0, time.UTC)
	r.clock.Set(due)

	out := r.c.Step(context.Background())
	if out == nil || out.Kind != journal.KindSkippedPolicy || out.Detail != p.reason {
		t.Fatalf("outcome = %+v", out)
	}
	if r.camera.calls != 0 {
		t.Error("camera must not fire when vetoed")
	}
	if len(p.seen) != 1 || !p.seen[0].At.Equal(due) || p.seen[0].Light == nil || *p.seen[0].Light != 500 {
		t.Errorf("policy saw %+v", p.seen)
	}
	if !r.c.Status().Next.After(due) {
		t.Error("a vetoed capture must still advance the schedule")
	}
}

func TestStep_PolicyErrorDoesNotBlock(t *testing.T) {
	r := newRig(t, untracked())
	r.c.opts.Policy = &fakePolicy{err: errors.New("ReferenceError: x is not defined")}
	r.clock.Set(time.Date(2024, 3, 1, 12, 40, 0, 0, time.UTC))

	out := r.c.Step(context.Background())
	if out == nil || out.Kind != journal.KindCaptured {
		t.Fatalf("outcome = %+v, want captured", out)
	}
	if w := r.log.Warnings(); len(w) != 1 || !strings.Contains(w[0], "policy") {
		t.Errorf("warnings = %q", w)
	}
}

func TestStep_PolicyNotAskedWhenThresholdsSkip(t *testing.T) {
	r := newRig(t, untracked())
	p := &fakePolicy{}
	r.c.opts.Policy = p
	r.sensors.light = 990
	r.clock.Set(time.Date(2024, 3, 1, 12, 40, 0, 0, time.UTC))

	if out := r.c.Step(context.Background()); out == nil || out.Kind != journal.KindSkippedDark {
		t.Fatalf("outcome = %+v", out)
	}
	if len(p.seen) != 0 {
		t.Error("policy consulted after a threshold skip")
	}
}
