// Package schedule decides when the next capture is due.
//
// An Engine holds the current capture Period and an absolute next-fire time.
// The next-fire time is always recomputed from a wall-clock sample: the
// sample is aligned down to a boundary implied by the period (minute,
// ten-minute bucket, hour, or a fixed UTC hour of the day) and the period's
// span is added until the result is strictly after the sample. Missed cycles
// are never replayed, so the schedule heals itself after power loss or a
// clock step.
//
// The chosen period, and optionally the time of the last capture, live in an
// eeprom.Store behind a one-byte schema magic. A store whose magic does not
// match is treated as blank and rewritten with defaults, magic last.
//
// An Engine is owned by a single goroutine and is not safe for concurrent
// use.
package schedule
