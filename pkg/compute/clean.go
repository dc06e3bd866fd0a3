package compute

import (
	"math"
	"strings"
	"time"

	"github.com/fitpoint/fitpoint/pkg/types"
)

// Accepted timestamp layouts: month/day/2-digit-year, 12-hour clock, AM/PM.
// Seconds are optional. Input is upper-cased before parsing so "am" and "AM"
// are both accepted.
const (
	TimeLayout        = "1/2/06 3:04:05 PM"
	TimeLayoutMinutes = "1/2/06 3:04 PM"
)

var timeLayouts = []string{TimeLayout, TimeLayoutMinutes}

// Series is an ordered run of samples, indexed 0..n-1.
type Series []types.Sample

// CleanResult is the output of Clean: the usable series plus how many rows
// were filtered out and why.
type CleanResult struct {
	Series          Series
	DroppedTime     int // rows whose timestamp did not parse
	DroppedPressure int // rows with a missing or non-finite pressure
}

// Dropped returns the total number of rows excluded from the series.
func (c CleanResult) Dropped() int { return c.DroppedTime + c.DroppedPressure }

// ParseTime parses a FIT table timestamp such as "10/27/24 8:00:05 am".
func ParseTime(text string) (time.Time, bool) {
	s := strings.ToUpper(strings.Join(strings.Fields(text), " "))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTime renders t in the table timestamp format, e.g. "10/27/24 8:00:05 AM".
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// Clean converts raw table rows into a Series.
//
// Rows with an unparsable timestamp or an unusable pressure are dropped and
// counted. Surviving rows keep their input order; rows that are duplicated or
// out of order in time are passed through as-is and left for Derive to
// reject. Zero usable rows yields an empty Series, not an error.
func Clean(rows []types.RawRow) CleanResult {
	out := CleanResult{Series: make(Series, 0, len(rows))}
	for _, row := range rows {
		t, ok := ParseTime(row.Time)
		if !ok {
			out.DroppedTime++
			continue
		}
		if row.Pressure == nil || math.IsNaN(*row.Pressure) || math.IsInf(*row.Pressure, 0) {
			out.DroppedPressure++
			continue
		}
		s := types.Sample{Time: t, Pressure: *row.Pressure}
		if row.Strokes != nil {
			v := *row.Strokes
			s.Strokes = &v
		}
		out.Series = append(out.Series, s)
	}
	return out
}
