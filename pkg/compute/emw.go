package compute

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fitpoint/fitpoint/pkg/types"
)

// PressureGradientFactor converts mud weight in ppg to a pressure gradient in
// psi/ft. It is part of the EMW formula and must not change.
const PressureGradientFactor = 0.052

// User-facing texts for the non-value EMW outcomes.
const (
	IncompleteText = "Enter all values to calculate FIT EMW"
	InvalidText    = "Calculation error - check input values"
)

var (
	// ErrInvalidInput marks a well input that is not a finite number.
	ErrInvalidInput = errors.New("compute: well input is not a finite number")

	// ErrZeroTVD marks a true vertical depth of zero, which would divide by zero.
	ErrZeroTVD = errors.New("compute: true vertical depth must not be zero")
)

// EMWKind tags the outcome of CalculateEMW.
type EMWKind string

const (
	EMWValue      EMWKind = "value"
	EMWIncomplete EMWKind = "incomplete"
	EMWInvalid    EMWKind = "invalid"
)

// EMWResult is the tagged outcome of the FIT equivalent mud weight formula.
// Value holds the full-precision result and is only set for EMWValue; Err is
// only set for EMWInvalid.
type EMWResult struct {
	Kind  EMWKind
	Value float64
	Err   error
}

// Rounded returns Value rounded to two decimals, for display.
func (r EMWResult) Rounded() float64 {
	return math.Round(r.Value*100) / 100
}

// Message returns the text shown in the FIT EMW field.
func (r EMWResult) Message() string {
	switch r.Kind {
	case EMWValue:
		return fmt.Sprintf("%.2f", r.Value)
	case EMWInvalid:
		return InvalidText
	default:
		return IncompleteText
	}
}

// CalculateEMW computes mud_weight + fit_pressure / (0.052 × tvd).
//
// Well inputs are parsed first: text that is not a finite number is Invalid.
// If the FIT pressure is unknown or either input is blank the result is
// Incomplete. A TVD of zero is Invalid. st must not be nil.
func CalculateEMW(st *FitState, in types.WellInputs) EMWResult {
	if st == nil {
		panic("compute: CalculateEMW called with nil FitState")
	}

	mw, mwOK, err := parseWellField("mud weight", in.MudWeight)
	if err != nil {
		return EMWResult{Kind: EMWInvalid, Err: err}
	}
	tvd, tvdOK, err := parseWellField("tvd", in.TVD)
	if err != nil {
		return EMWResult{Kind: EMWInvalid, Err: err}
	}

	fit, fitOK := st.Pressure()
	if !fitOK || !mwOK || !tvdOK {
		return EMWResult{Kind: EMWIncomplete}
	}
	if tvd == 0 {
		return EMWResult{Kind: EMWInvalid, Err: ErrZeroTVD}
	}

	return EMWResult{Kind: EMWValue, Value: mw + fit/(PressureGradientFactor*tvd)}
}

// parseWellField parses one well input. A blank field is reported as absent
// with a nil error.
func parseWellField(name, text string) (float64, bool, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s %q", ErrInvalidInput, name, text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("%w: %s %q", ErrInvalidInput, name, text)
	}
	return v, true, nil
}
