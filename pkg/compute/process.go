package compute

import (
	"errors"
	"strconv"

	"github.com/fitpoint/fitpoint/pkg/types"
)

// Status constants describing whether a series could be analysed.
const (
	StatusOK           = "ok"
	StatusInsufficient = "insufficient" // fewer than two usable samples
	StatusInvalid      = "invalid"      // numeric hazard, e.g. duplicate timestamps
)

// Analysis is the full result of one pipeline run over a table.
type Analysis struct {
	Status string
	Err    error // non-nil only when Status is StatusInvalid

	Clean      CleanResult
	Derived    DerivedSeries
	Inflection Inflection

	// FitPressure is the retained FIT pressure after this run. It can come
	// from an earlier run when this one found no inflection.
	FitPressure      float64
	FitPressureKnown bool

	EMW    EMWResult
	Bounds ChartBounds
}

// Process runs the whole pipeline: Clean, Derive, Detect and CalculateEMW.
//
// Every condition is folded into the returned Analysis; Process never returns
// an error. When Derive reports a numeric hazard the series is marked
// invalid, no inflection is reported and st keeps its previous value. The EMW
// is still evaluated against whatever FIT pressure st holds. st must not be
// nil.
func Process(rows []types.RawRow, well types.WellInputs, st *FitState) *Analysis {
	if st == nil {
		panic("compute: Process called with nil FitState")
	}

	out := &Analysis{Clean: Clean(rows)}

	derived, err := Derive(out.Clean.Series)
	switch {
	case err != nil:
		out.Status = StatusInvalid
		out.Err = err
		out.Derived = DerivedSeries{Samples: out.Clean.Series}
	case !derived.HasDerivatives():
		out.Status = StatusInsufficient
		out.Derived = derived
	default:
		out.Status = StatusOK
		out.Derived = derived
		out.Inflection = Detect(derived, st)
	}

	out.FitPressure, out.FitPressureKnown = st.Pressure()
	out.EMW = CalculateEMW(st, well)
	out.Bounds = Bounds(out.Derived)
	return out
}

// FitPressureText renders the retained FIT pressure the same way
// FitState.Display does.
func (a *Analysis) FitPressureText() string {
	if !a.FitPressureKnown {
		return NoInflectionText
	}
	return strconv.FormatFloat(a.FitPressure, 'f', -1, 64)
}

// IsNumericHazard reports whether err came from a zero time step.
func IsNumericHazard(err error) bool {
	return errors.Is(err, ErrZeroTimeDelta)
}
