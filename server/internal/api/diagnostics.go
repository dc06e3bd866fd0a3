package api

import (
	"errors"
	"fmt"

	"github.com/fitpoint/fitpoint/pkg/compute"
)

// DiagnosticHint is one human-readable note about a session's analysis.
// The UI shows these as chips next to the chart; Detail is the full
// explanation shown on click.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short chip label.
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional number tied to the hint, e.g. a row count.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives hints from an analysis.
// Hints are ordered: critical first, then warnings, then info.
func computeDiagnostics(a *compute.Analysis) []DiagnosticHint {
	var critical, warning, info []DiagnosticHint

	// Series state
	switch a.Status {
	case compute.StatusInvalid:
		detail := "Two or more rows share the same timestamp, so pressure cannot be " +
			"differentiated over time. Remove or correct the duplicate rows. " +
			"The FIT pressure from the last good table is kept until then."
		if a.Err != nil && !errors.Is(a.Err, compute.ErrZeroTimeDelta) {
			detail = fmt.Sprintf("The pressure series could not be differentiated: %v.", a.Err)
		}
		critical = append(critical, DiagnosticHint{
			Key:    "duplicate_timestamps",
			Level:  "critical",
			Title:  "Duplicate timestamps",
			Detail: detail,
		})
	case compute.StatusInsufficient:
		n := float64(len(a.Clean.Series))
		info = append(info, DiagnosticHint{
			Key:   "warming_up",
			Level: "info",
			Title: "Need more readings",
			Detail: "At least two valid readings are needed before derivatives " +
				"and the inflection point can be computed. Keep entering pressures.",
			Value: &n,
		})
	}

	if !timeOrdered(a.Clean.Series) {
		warning = append(warning, DiagnosticHint{
			Key:   "time_order",
			Level: "warning",
			Title: "Rows out of order",
			Detail: "Timestamps go backwards somewhere in the table. Rows are analysed " +
				"in the order entered, so derivatives around that point are unreliable. " +
				"Sort the table by time.",
		})
	}

	// Cleaning
	if n := a.Clean.Dropped(); n > 0 {
		v := float64(n)
		warning = append(warning, DiagnosticHint{
			Key:   "dropped_rows",
			Level: "warning",
			Title: fmt.Sprintf("%d rows ignored", n),
			Detail: fmt.Sprintf(
				"%d rows had a timestamp that could not be read and %d had no usable pressure. "+
					"Times must look like 10/27/24 8:00:05 AM. Ignored rows are not part of the curve.",
				a.Clean.DroppedTime, a.Clean.DroppedPressure,
			),
			Value: &v,
		})
	}

	// Inflection
	if a.Inflection.Found {
		p := a.Inflection.Pressure
		info = append(info, DiagnosticHint{
			Key:   "inflection",
			Level: "ok",
			Title: "Inflection found",
			Detail: fmt.Sprintf("The pressure curve starts to bend over at %s, %s psi. "+
				"This is taken as the FIT pressure.",
				compute.FormatTime(a.Inflection.Time), a.FitPressureText()),
			Value: &p,
		})
		if last := a.Derived.Len() - 1; a.Inflection.Index == 0 || a.Inflection.Index == last {
			warning = append(warning, DiagnosticHint{
				Key:   "boundary_inflection",
				Level: "warning",
				Title: "Low-confidence point",
				Detail: "The inflection was found at the first or last reading, where the " +
					"second derivative is a one-sided estimate. Confirm it against the chart " +
					"or take more readings.",
			})
		}
	} else if a.Status == compute.StatusOK {
		title, detail := "No inflection yet", "The second derivative has not turned negative. "+
			"Keep pumping and recording until the curve bends over."
		if a.FitPressureKnown {
			title = "Using earlier FIT pressure"
			detail = fmt.Sprintf("The current table has no inflection. The FIT pressure of %s psi "+
				"found earlier in this session is still used.", a.FitPressureText())
		}
		info = append(info, DiagnosticHint{Key: "no_inflection", Level: "info", Title: title, Detail: detail})
	}

	// EMW
	switch a.EMW.Kind {
	case compute.EMWIncomplete:
		info = append(info, DiagnosticHint{
			Key:    "emw_incomplete",
			Level:  "info",
			Title:  "EMW needs inputs",
			Detail: compute.IncompleteText + ". Both TVD and mud weight are required, and a FIT pressure must be known.",
		})
	case compute.EMWInvalid:
		detail := compute.InvalidText + "."
		if errors.Is(a.EMW.Err, compute.ErrZeroTVD) {
			detail = "TVD is zero, which would divide by zero. Enter the true vertical depth in feet."
		} else if a.EMW.Err != nil {
			detail = fmt.Sprintf("%s: %v.", compute.InvalidText, a.EMW.Err)
		}
		warning = append(warning, DiagnosticHint{
			Key:    "emw_invalid",
			Level:  "warning",
			Title:  "Check well inputs",
			Detail: detail,
		})
	}

	hints := make([]DiagnosticHint, 0, len(critical)+len(warning)+len(info))
	hints = append(hints, critical...)
	hints = append(hints, warning...)
	hints = append(hints, info...)
	return hints
}

func timeOrdered(s compute.Series) bool {
	for i := 1; i < len(s); i++ {
		if s[i].Time.Before(s[i-1].Time) {
			return false
		}
	}
	return true
}
