package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitpoint/fitpoint/pkg/types"
)

func fitRows() []types.RawRow {
	return []types.RawRow{
		row("10/27/24 8:00 AM", 0),
		row("10/27/24 8:01 AM", 100),
		row("10/27/24 8:02 AM", 250),
		row("10/27/24 8:03 AM", 350),
		row("10/27/24 8:04 AM", 400),
	}
}

func TestProcess_OK(t *testing.T) {
	var st FitState
	a := Process(fitRows(), types.WellInputs{TVD: "10000", MudWeight: "10"}, &st)

	assert.Equal(t, StatusOK, a.Status)
	assert.NoError(t, a.Err)
	require.True(t, a.Inflection.Found)
	assert.Equal(t, 250.0, a.FitPressure)
	assert.True(t, a.FitPressureKnown)
	assert.Equal(t, EMWValue, a.EMW.Kind)
	assert.InDelta(t, 10+250/(0.052*10000), a.EMW.Value, 1e-12)
	assert.Equal(t, 420.0, a.Bounds.PressureMax)
}

func TestProcess_Idempotent(t *testing.T) {
	var st FitState
	well := types.WellInputs{TVD: "10000", MudWeight: "10"}
	a := Process(fitRows(), well, &st)
	b := Process(fitRows(), well, &st)
	assert.Equal(t, a, b)
}

func TestProcess_Insufficient(t *testing.T) {
	var st FitState
	a := Process([]types.RawRow{row("10/27/24 8:00 AM", 5)}, types.WellInputs{}, &st)
	assert.Equal(t, StatusInsufficient, a.Status)
	assert.False(t, a.Inflection.Found)
	assert.Equal(t, EMWIncomplete, a.EMW.Kind)
}

func TestProcess_InvalidKeepsStickyPressure(t *testing.T) {
	var st FitState
	well := types.WellInputs{TVD: "10000", MudWeight: "10"}
	Process(fitRows(), well, &st)

	rows := append(fitRows(), row("10/27/24 8:04 AM", 10))
	a := Process(rows, well, &st)

	assert.Equal(t, StatusInvalid, a.Status)
	assert.True(t, IsNumericHazard(a.Err))
	assert.False(t, a.Inflection.Found)
	assert.Equal(t, 250.0, a.FitPressure)
	assert.Equal(t, EMWValue, a.EMW.Kind)
	assert.Nil(t, a.Derived.First)
	assert.Len(t, a.Derived.Samples, 6)
}

func TestProcess_NoInflectionRetainsEarlier(t *testing.T) {
	var st FitState
	well := types.WellInputs{TVD: "5000", MudWeight: "9"}
	Process(fitRows(), well, &st)

	convex := []types.RawRow{
		row("10/27/24 9:00 AM", 0),
		row("10/27/24 9:01 AM", 10),
		row("10/27/24 9:02 AM", 40),
	}
	a := Process(convex, well, &st)
	assert.Equal(t, StatusOK, a.Status)
	assert.False(t, a.Inflection.Found)
	assert.Equal(t, 250.0, a.FitPressure)
}

func TestProcess_NilStatePanics(t *testing.T) {
	assert.Panics(t, func() { Process(nil, types.WellInputs{}, nil) })
}

func TestAnalysis_FitPressureText(t *testing.T) {
	var st FitState
	a := Process(nil, types.WellInputs{}, &st)
	assert.Equal(t, NoInflectionText, a.FitPressureText())

	a = Process(fitRows(), types.WellInputs{}, &st)
	assert.Equal(t, st.Display(), a.FitPressureText())
	assert.Equal(t, "250", a.FitPressureText())
}
