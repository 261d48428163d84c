package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVHeader is the first row ExportCSV writes.
var CSVHeader = []string{"Date", "Kind", "Period", "Light", "Battery V", "Detail"}

// ExportCSV writes every entry, oldest first, to w with dates rendered in
// loc. Unknown sensor values are left empty. It returns the number of
// entries written.
func (j *Journal) ExportCSV(ctx context.Context, w io.Writer, loc *time.Location) (int, error) {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, fmt.Errorf("journal: export: %w", err)
	}
	n := 0
	err := j.Each(ctx, func(e Entry) error {
		n++
		return cw.Write(csvRecord(e, loc))
	})
	if err != nil {
		return n, fmt.Errorf("journal: export: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("journal: export: %w", err)
	}
	return n, nil
}

func csvRecord(e Entry, loc *time.Location) []string {
	light, battery := "", ""
	if e.Light != nil {
		light = strconv.Itoa(*e.Light)
	}
	if e.BatteryV != nil {
		battery = strconv.FormatFloat(*e.BatteryV, 'f', 2, 64)
	}
	return []string{
		e.At.In(loc).Format("2006-01-02T15:04:05"),
		string(e.Kind),
		e.Period,
		light,
		battery,
		e.Detail,
	}
}
