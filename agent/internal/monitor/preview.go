package monitor

import (
	"sync"

	"github.com/fitpoint/fitpoint/pkg/compute"
	"github.com/fitpoint/fitpoint/pkg/types"
)

// defaultPreviewRows bounds a Preview built without an explicit limit.
const defaultPreviewRows = 10000

// Preview holds the most recent rows the agent has read and the FIT state
// derived from them. It mirrors what the server computes for the same rows.
// Dropping old rows does not lose a FIT pressure already found, since the
// state is retained across runs.
type Preview struct {
	mu    sync.Mutex
	rows  []types.RawRow
	limit int
	well  types.WellInputs
	state compute.FitState
}

// NewPreview returns a Preview that evaluates the EMW against well and keeps
// at most limit rows. A limit of zero or less uses defaultPreviewRows.
func NewPreview(well types.WellInputs, limit int) *Preview {
	if limit <= 0 {
		limit = defaultPreviewRows
	}
	return &Preview{well: well, limit: limit}
}

// Add appends rows and reruns the pipeline. changed is true when the
// retained FIT pressure moved to a new value.
func (p *Preview) Add(rows []types.RawRow) (a *compute.Analysis, changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	before, known := p.state.Pressure()
	p.rows = append(p.rows, rows...)
	if over := len(p.rows) - p.limit; over > 0 {
		p.rows = append([]types.RawRow(nil), p.rows[over:]...)
	}
	a = compute.Process(p.rows, p.well, &p.state)
	changed = a.FitPressureKnown && (!known || a.FitPressure != before)
	return a, changed
}

// Len returns the number of rows held.
func (p *Preview) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rows)
}
