// Package compute derives the FIT inflection point and equivalent mud weight
// from an operator-edited pressure table.
//
// The pipeline runs strictly forward and every stage is a pure function of
// its input:
//
//	Clean(rows)            raw table rows → time-ordered Series (bad rows dropped)
//	Derive(series)         Series → DerivedSeries (dP/dt and d²P/dt² by gradient)
//	Detect(derived, st)    first negative second derivative → Inflection
//	CalculateEMW(st, well) FIT pressure + TVD + mud weight → EMWResult
//
// Process runs all four and folds every outcome into an Analysis.
//
// The only mutable state is FitState, the last FIT pressure found. It is
// owned by the caller (one per session) and passed in by pointer. Detect
// writes it on a Found result and never clears it, so the value survives
// edits that remove the inflecting rows.
//
// Numeric hazards are reported, not propagated: a zero time step under a
// gradient denominator yields ErrZeroTimeDelta and the series is marked
// invalid instead of letting NaN or Inf reach the caller.
package compute
