package compute

import (
	"strconv"
	"time"
)

// NoInflectionText is shown in place of a FIT pressure until one is found.
const NoInflectionText = "No inflection point detected"

// Inflection is the outcome of Detect. Found is false for NotFound; the
// remaining fields are only meaningful when Found is true.
type Inflection struct {
	Found    bool      `json:"found"`
	Index    int       `json:"index"`
	Time     time.Time `json:"time"`
	Pressure float64   `json:"pressure"`
}

// FitState holds the last FIT pressure found for one session.
//
// The zero value means no inflection has been found yet. It is only written
// by Detect on a Found result and is never cleared, so the pressure survives
// later edits that no longer produce an inflection. FitState does no locking;
// callers serialise pipeline runs that share a state.
type FitState struct {
	pressure float64
	known    bool
}

// Pressure returns the retained FIT pressure and whether one has been found.
func (s *FitState) Pressure() (float64, bool) {
	return s.pressure, s.known
}

// Record stores p as the current FIT pressure.
func (s *FitState) Record(p float64) {
	s.pressure = p
	s.known = true
}

// Display renders the retained pressure for a read-only text field.
func (s *FitState) Display() string {
	if !s.known {
		return NoInflectionText
	}
	return strconv.FormatFloat(s.pressure, 'f', -1, 64)
}

// Detect scans d in time order and returns the first sample whose second
// derivative is strictly negative.
//
// There is no smoothing or look-ahead: one negative value is enough. A series
// without derivatives (fewer than two samples) is NotFound. On Found the
// pressure is recorded in st; on NotFound st is left untouched. st may be nil
// when the caller does not track state.
func Detect(d DerivedSeries, st *FitState) Inflection {
	if !d.HasDerivatives() {
		return Inflection{}
	}
	for i, v := range d.Second {
		if v < 0 {
			smp := d.Samples[i]
			if st != nil {
				st.Record(smp.Pressure)
			}
			return Inflection{
				Found:    true,
				Index:    i,
				Time:     smp.Time,
				Pressure: smp.Pressure,
			}
		}
	}
	return Inflection{}
}
