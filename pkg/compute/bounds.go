package compute

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Axis padding and fallback ranges for chart bounds.
const (
	axisPadding        = 20.0
	defaultPressureMin = 0.0
	defaultPressureMax = 100.0
	derivativeFloor    = -25.0
	derivativeCeil     = 25.0
)

// ChartBounds are suggested y-axis ranges for plotting pressure and its
// derivatives. Rendering is left to the caller.
type ChartBounds struct {
	PressureMin   float64 `json:"pressure_min"`
	PressureMax   float64 `json:"pressure_max"`
	DerivativeMin float64 `json:"derivative_min"`
	DerivativeMax float64 `json:"derivative_max"`
}

// Bounds pads the observed pressure range by 20 on each side, falling back to
// [0, 100] with no data. The derivative range covers both derivative curves
// padded by 20 and always includes [-25, 25].
func Bounds(d DerivedSeries) ChartBounds {
	b := ChartBounds{
		PressureMin:   defaultPressureMin,
		PressureMax:   defaultPressureMax,
		DerivativeMin: derivativeFloor,
		DerivativeMax: derivativeCeil,
	}

	if len(d.Samples) > 0 {
		p := make([]float64, len(d.Samples))
		for i, s := range d.Samples {
			p[i] = s.Pressure
		}
		b.PressureMin = floats.Min(p) - axisPadding
		b.PressureMax = floats.Max(p) + axisPadding
	}

	if d.HasDerivatives() {
		all := make([]float64, 0, len(d.First)+len(d.Second))
		all = append(all, d.First...)
		all = append(all, d.Second...)
		b.DerivativeMin = math.Min(floats.Min(all)-axisPadding, derivativeFloor)
		b.DerivativeMax = math.Max(floats.Max(all)+axisPadding, derivativeCeil)
	}
	return b
}
