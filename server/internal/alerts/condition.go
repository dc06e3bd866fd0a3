package alerts

import (
	"strconv"
	"strings"

	"github.com/fitpoint/fitpoint/pkg/compute"
)

// evalCondition evaluates a rule condition string against an analysis.
//
// Supported expressions (field operator value):
//
//	fit_emw > 16
//	fit_pressure >= 1500
//	dropped_rows > 0
//	samples < 10
//	status == invalid
//	inflection == found
//	emw == incomplete
//
// Numeric fields with no current value never fire: fit_emw needs a computed
// EMW and fit_pressure a retained FIT pressure.
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, a *compute.Analysis) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	switch field {
	case "status":
		return compareString(a.Status, op, rhs), 0
	case "emw":
		return compareString(string(a.EMW.Kind), op, rhs), 0
	case "inflection":
		state := "none"
		if a.Inflection.Found {
			state = "found"
		}
		return compareString(state, op, rhs), 0
	}

	v, ok := numericField(field, a)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the analysis. ok is false
// for unknown fields and for fields that currently have no value.
func numericField(field string, a *compute.Analysis) (float64, bool) {
	switch field {
	case "fit_emw":
		if a.EMW.Kind != compute.EMWValue {
			return 0, false
		}
		return a.EMW.Value, true
	case "fit_pressure":
		return a.FitPressure, a.FitPressureKnown
	case "dropped_rows":
		return float64(a.Clean.Dropped()), true
	case "samples":
		return float64(len(a.Clean.Series)), true
	default:
		return 0, false
	}
}

func compareString(v, op, want string) bool {
	switch op {
	case "==":
		return v == want
	case "!=":
		return v != want
	default:
		return false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
