package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fitpoint/fitpoint/pkg/types"
)

func stateWith(p float64) *FitState {
	st := &FitState{}
	st.Record(p)
	return st
}

func TestCalculateEMW_Value(t *testing.T) {
	got := CalculateEMW(stateWith(500), types.WellInputs{TVD: "10000", MudWeight: "10"})

	assert.Equal(t, EMWValue, got.Kind)
	assert.InDelta(t, 10.961538461538462, got.Value, 1e-12)
	assert.Equal(t, 10.96, got.Rounded())
	assert.Equal(t, "10.96", got.Message())
	assert.NoError(t, got.Err)
}

func TestCalculateEMW_Outcomes(t *testing.T) {
	tests := []struct {
		name  string
		st    *FitState
		in    types.WellInputs
		kind  EMWKind
		isErr error
	}{
		{"no fit pressure", &FitState{}, types.WellInputs{TVD: "10000", MudWeight: "10"}, EMWIncomplete, nil},
		{"blank tvd", stateWith(500), types.WellInputs{MudWeight: "10"}, EMWIncomplete, nil},
		{"blank mud weight", stateWith(500), types.WellInputs{TVD: "10000", MudWeight: "  "}, EMWIncomplete, nil},
		{"zero tvd", stateWith(500), types.WellInputs{TVD: "0", MudWeight: "10"}, EMWInvalid, ErrZeroTVD},
		{"text tvd", stateWith(500), types.WellInputs{TVD: "abc", MudWeight: "10"}, EMWInvalid, ErrInvalidInput},
		{"nan mud weight", stateWith(500), types.WellInputs{TVD: "10000", MudWeight: "NaN"}, EMWInvalid, ErrInvalidInput},
		{"inf tvd", stateWith(500), types.WellInputs{TVD: "+Inf", MudWeight: "10"}, EMWInvalid, ErrInvalidInput},
		// Unparsable input wins over a missing FIT pressure.
		{"bad input without fit", &FitState{}, types.WellInputs{TVD: "x", MudWeight: "10"}, EMWInvalid, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateEMW(tt.st, tt.in)
			assert.Equal(t, tt.kind, got.Kind)
			if tt.isErr != nil {
				assert.ErrorIs(t, got.Err, tt.isErr)
			}
		})
	}
}

func TestCalculateEMW_Messages(t *testing.T) {
	assert.Equal(t, IncompleteText, CalculateEMW(&FitState{}, types.WellInputs{}).Message())
	assert.Equal(t, InvalidText, CalculateEMW(stateWith(1), types.WellInputs{TVD: "0", MudWeight: "9"}).Message())
}

func TestCalculateEMW_NegativeInputsAllowed(t *testing.T) {
	got := CalculateEMW(stateWith(-52), types.WellInputs{TVD: "-100", MudWeight: "1"})
	assert.Equal(t, EMWValue, got.Kind)
	assert.InDelta(t, 11.0, got.Value, 1e-12)
}

func TestCalculateEMW_NilStatePanics(t *testing.T) {
	assert.Panics(t, func() { CalculateEMW(nil, types.WellInputs{}) })
}
