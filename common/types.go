package common

import "time"

type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"build_type,omitempty"`
}

type StatusResponse struct {
	Period      string        `json:"period"`
	SpanSeconds int64         `json:"span_seconds"`
	Next        time.Time     `json:"next"`
	LastPhoto   *time.Time    `json:"last_photo,omitempty"`
	Due         bool          `json:"due"`
	Now         time.Time     `json:"now"`
	Last        *CaptureEvent `json:"last,omitempty"`
}

type PressParams struct {
	Button string `json:"button"`
}

type PressResponse struct {
	Accepted bool `json:"accepted"`
}

type JournalParams struct {
	Limit int `json:"limit,omitempty"`
}

type JournalEntry struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"`
	Period   string    `json:"period"`
	Light    *int      `json:"light,omitempty"`
	BatteryV *float64  `json:"battery_v,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

type JournalResponse struct {
	Entries []JournalEntry `json:"entries"`
}

// ScheduleEvent is the payload of schedule.changed.
type ScheduleEvent struct {
	At     time.Time `json:"at"`
	Period string    `json:"period"`
	Next   time.Time `json:"next"`
}

// CaptureEvent is the payload of capture.fired.
type CaptureEvent struct {
	At       time.Time `json:"at"`
	Outcome  string    `json:"outcome"`
	Period   string    `json:"period"`
	Light    *int      `json:"light,omitempty"`
	BatteryV *float64  `json:"battery_v,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Next     time.Time `json:"next"`
}
