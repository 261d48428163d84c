package common

// JSON-RPC method names.
const (
	MethodGetVersion     = "system.getVersion"
	MethodScheduleStatus = "schedule.status"
	MethodButtonPress    = "button.press"
	MethodJournalRecent  = "journal.recent"
)

// Push notification names, sent to WebSocket clients only.
const (
	NotifyScheduleChanged = "schedule.changed"
	NotifyCaptureFired    = "capture.fired"
)

