package compute

import (
	"errors"
	"fmt"
)

// ErrZeroTimeDelta is returned by Derive when a gradient denominator would be
// zero, which happens when two samples share a timestamp. The series cannot
// be differentiated until the operator fixes the table.
var ErrZeroTimeDelta = errors.New("compute: zero elapsed-time delta between samples")

// DerivedSeries is a Series extended with elapsed time and the first and
// second derivatives of pressure with respect to elapsed seconds, aligned
// index-for-index with Samples.
//
// Elapsed, First and Second are nil when the series has fewer than two
// samples. Second is the gradient of First, so its first and last entries are
// one-sided estimates of an already approximate signal and carry low
// confidence.
type DerivedSeries struct {
	Samples Series
	Elapsed []float64
	First   []float64
	Second  []float64
}

// Len returns the number of samples.
func (d DerivedSeries) Len() int { return len(d.Samples) }

// HasDerivatives reports whether derivative values were computed.
func (d DerivedSeries) HasDerivatives() bool { return d.First != nil && d.Second != nil }

// Derive computes dP/dt and d²P/dt² for s.
//
// With fewer than two samples it returns s unchanged with no derivative data
// and a nil error. Duplicate timestamps yield ErrZeroTimeDelta.
func Derive(s Series) (DerivedSeries, error) {
	out := DerivedSeries{Samples: s}
	if len(s) < 2 {
		return out, nil
	}

	t0 := s[0].Time
	elapsed := make([]float64, len(s))
	pressure := make([]float64, len(s))
	for i, smp := range s {
		elapsed[i] = smp.Time.Sub(t0).Seconds()
		pressure[i] = smp.Pressure
	}

	first, err := Gradient(pressure, elapsed)
	if err != nil {
		return out, err
	}
	second, err := Gradient(first, elapsed)
	if err != nil {
		return out, err
	}

	out.Elapsed = elapsed
	out.First = first
	out.Second = second
	return out, nil
}

// Gradient returns the numerical derivative of y with respect to x on a
// possibly non-uniform grid.
//
// Interior points use the second-order central difference weighted by the
// spacing on each side:
//
//	g[i] = -hr/(hl(hl+hr))·y[i-1] + (hr-hl)/(hl·hr)·y[i] + hl/(hr(hl+hr))·y[i+1]
//
// where hl = x[i]-x[i-1] and hr = x[i+1]-x[i]. The two end points use
// one-sided first differences with their single neighbour.
//
// y and x must have equal length of at least 2. Any zero denominator returns
// ErrZeroTimeDelta.
func Gradient(y, x []float64) ([]float64, error) {
	n := len(y)
	if n != len(x) {
		return nil, fmt.Errorf("compute: gradient length mismatch: %d values, %d points", n, len(x))
	}
	if n < 2 {
		return nil, fmt.Errorf("compute: gradient needs at least 2 points, got %d", n)
	}

	g := make([]float64, n)

	h0 := x[1] - x[0]
	hn := x[n-1] - x[n-2]
	if h0 == 0 {
		return nil, fmt.Errorf("%w at index 1", ErrZeroTimeDelta)
	}
	if hn == 0 {
		return nil, fmt.Errorf("%w at index %d", ErrZeroTimeDelta, n-1)
	}
	g[0] = (y[1] - y[0]) / h0
	g[n-1] = (y[n-1] - y[n-2]) / hn

	for i := 1; i < n-1; i++ {
		hl := x[i] - x[i-1]
		hr := x[i+1] - x[i]
		if hl == 0 || hr == 0 || hl+hr == 0 {
			return nil, fmt.Errorf("%w at index %d", ErrZeroTimeDelta, i)
		}
		a := -hr / (hl * (hl + hr))
		b := (hr - hl) / (hl * hr)
		c := hl / (hr * (hl + hr))
		g[i] = a*y[i-1] + b*y[i] + c*y[i+1]
	}
	return g, nil
}
