package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBounds_Empty(t *testing.T) {
	got := Bounds(DerivedSeries{})
	assert.Equal(t, ChartBounds{PressureMin: 0, PressureMax: 100, DerivativeMin: -25, DerivativeMax: 25}, got)
}

func TestBounds_SmallDerivativesClampToDefault(t *testing.T) {
	d := derived(t, []float64{0, 60, 120, 180, 240}, []float64{0, 100, 250, 350, 400})
	got := Bounds(d)

	assert.Equal(t, -20.0, got.PressureMin)
	assert.Equal(t, 420.0, got.PressureMax)
	assert.Equal(t, -25.0, got.DerivativeMin)
	assert.Equal(t, 25.0, got.DerivativeMax)
}

func TestBounds_LargeDerivativesPadded(t *testing.T) {
	d := derived(t, []float64{0, 1, 2}, []float64{0, 100, 100})
	// First = [100, 50, 0], Second = [-50, -50, -50].
	got := Bounds(d)

	assert.InDelta(t, -70.0, got.DerivativeMin, 1e-9)
	assert.InDelta(t, 120.0, got.DerivativeMax, 1e-9)
}

func TestBounds_SingleSample(t *testing.T) {
	d := derived(t, []float64{0}, []float64{50})
	got := Bounds(d)
	assert.Equal(t, 30.0, got.PressureMin)
	assert.Equal(t, 70.0, got.PressureMax)
	assert.Equal(t, -25.0, got.DerivativeMin)
}
