package hw

import (
	"time"

	"github.com/shutterloop/shutterloop/internal/schedule"
	"github.com/shutterloop/shutterloop/pkg/logger"
)

// LogDisplay shows the selected period on the log in place of a front-panel
// digit.
type LogDisplay struct {
	Log logger.Logger
}

func (d LogDisplay) ShowPeriod(p schedule.Period, next time.Time) {
	d.Log.Info("display: [%d] period %s, next capture %s", Digit(p), p, next.UTC().Format(time.RFC3339))
}

// Digit is the single digit used to show p on the front panel, 1 for the
// shortest period.
func Digit(p schedule.Period) int {
	return int(p) + 1
}
