package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Period is a capture cadence. The set is closed and cyclically ordered.
type Period uint8

const (
	OneMinute Period = iota
	TenMinutes
	OneHour
	OneDay

	numPeriods
)

// DefaultPeriod is used on first boot and whenever persisted state is untrusted.
const DefaultPeriod = TenMinutes

// ErrUnknownPeriod is returned by ParsePeriod for unrecognized names.
var ErrUnknownPeriod = errors.New("schedule: unknown period")

// Periods lists every period in cycle order.
func Periods() []Period {
	return []Period{OneMinute, TenMinutes, OneHour, OneDay}
}

// Valid reports whether p is one of the defined periods.
func (p Period) Valid() bool {
	return p < numPeriods
}

// normalize maps out-of-range values onto DefaultPeriod.
func (p Period) normalize() Period {
	if !p.Valid() {
		return DefaultPeriod
	}
	return p
}

func (p Period) String() string {
	switch p {
	case OneMinute:
		return "1m"
	case TenMinutes:
		return "10m"
	case OneHour:
		return "1h"
	case OneDay:
		return "1d"
	}
	return fmt.Sprintf("Period(%d)", uint8(p))
}

// ParsePeriod accepts the short form produced by String ("1m", "10m", "1h",
// "1d") and a few long aliases.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1m", "minute", "one-minute":
		return OneMinute, nil
	case "10m", "ten-minutes":
		return TenMinutes, nil
	case "1h", "hour", "one-hour":
		return OneHour, nil
	case "1d", "24h", "day", "one-day":
		return OneDay, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// Next returns the period after p, wrapping from OneDay to OneMinute.
func (p Period) Next() Period {
	return (p.normalize() + 1) % numPeriods
}

// Span is the time between two fires at period p.
func (p Period) Span() time.Duration {
	switch p.normalize() {
	case OneMinute:
		return time.Minute
	case OneHour:
		return time.Hour
	case OneDay:
		return 24 * time.Hour
	default:
		return 10 * time.Minute
	}
}

// Anchor aligns t to the boundary implied by p. The result is in UTC with
// whole-second resolution. For every period but OneDay it is at or before
// t; for OneDay it is t's date at dailyHour:00 UTC, which is later than t
// when t's time of day is before dailyHour.
func (p Period) Anchor(t time.Time, dailyHour int) time.Time {
	t = wholeSecond(t)
	y, mo, d := t.Date()
	h, mi, _ := t.Clock()
	switch p.normalize() {
	case OneMinute:
		return time.Date(y, mo, d, h, mi, 0, 0, time.UTC)
	case OneHour:
		return time.Date(y, mo, d, h, 0, 0, 0, time.UTC)
	case OneDay:
		return time.Date(y, mo, d, dailyHour, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, mo, d, h, mi-mi%10, 0, 0, time.UTC)
	}
}

// NextAfter returns the first boundary of p strictly after now.
func (p Period) NextAfter(now time.Time, dailyHour int) time.Time {
	return stepPast(p.Anchor(now, dailyHour), p.Span(), now)
}

// stepPast adds span to anchor until the result is strictly after now.
func stepPast(anchor time.Time, span time.Duration, now time.Time) time.Time {
	now = wholeSecond(now)
	for !anchor.After(now) {
		anchor = anchor.Add(span)
	}
	return anchor
}

// CronExpr returns the five-field cron expression that fires on the same
// boundaries as p.
func (p Period) CronExpr(dailyHour int) string {
	switch p.normalize() {
	case OneMinute:
		return "* * * * *"
	case OneHour:
		return "0 * * * *"
	case OneDay:
		return fmt.Sprintf("0 %d * * *", dailyHour)
	default:
		return "*/10 * * * *"
	}
}

func wholeSecond(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
