package types

import "time"

// RawRow is one row of the FIT data table exactly as the operator entered or
// pasted it. Time is unparsed text; Pressure and Strokes are nil when the cell
// is empty or was not a number.
type RawRow struct {
	Time     string   `json:"time"`
	Pressure *float64 `json:"pressure"`
	Strokes  *float64 `json:"strokes,omitempty"`
}

// Sample is a cleaned reading: a parsed timestamp and a finite pressure.
// Strokes is carried through untouched when present.
type Sample struct {
	Time     time.Time `json:"time"`
	Pressure float64   `json:"pressure"`
	Strokes  *float64  `json:"strokes,omitempty"`
}

// WellInputs holds the two well scalars as raw text fields. An empty or
// whitespace-only field means the value has not been entered yet.
type WellInputs struct {
	TVD       string `json:"tvd"`
	MudWeight string `json:"mud_weight"`
}

// Float returns a pointer to v. Handy when building RawRow literals.
func Float(v float64) *float64 { return &v }
