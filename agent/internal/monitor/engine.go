package monitor

import (
	"sync"
	"time"

	"github.com/fitpoint/fitpoint/pkg/types"
)

// uptimeWindow is the number of recent scrape outcomes tracked for uptime %.
const uptimeWindow = 20

// Feed states.
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateDown     = "down"
	StateUnknown  = "unknown"
)

// Thresholds that map uptime to a feed state.
const (
	ThresholdHealthy  = 85.0
	ThresholdDegraded = 60.0
)

// Result is the health snapshot of one feed after a scrape.
type Result struct {
	SourceID  string
	Timestamp time.Time
	State     string
	UptimePct float64

	NewRows   int       // rows returned by this scrape
	TotalRows int       // rows returned since the agent started
	LastRow   time.Time // when the feed last produced a row; zero if never

	// ErrorMessage is non-empty when the scrape failed.
	ErrorMessage string
}

// Engine keeps per-source scrape history.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	states map[string]*sourceState
}

// NewEngine returns a ready-to-use Engine.
func NewEngine() *Engine {
	return &Engine{states: make(map[string]*sourceState)}
}

// Process records one scrape of sourceID. now is passed explicitly so tests
// control the clock.
func (e *Engine) Process(sourceID string, rows []types.RawRow, err error, now time.Time) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(sourceID)
	st.recordScrape(err == nil)
	if err == nil && len(rows) > 0 {
		st.total += len(rows)
		st.lastRow = now
	}

	out := &Result{
		SourceID:  sourceID,
		Timestamp: now,
		UptimePct: st.uptimePct(),
		NewRows:   len(rows),
		TotalRows: st.total,
		LastRow:   st.lastRow,
	}
	if err != nil {
		out.ErrorMessage = err.Error()
		out.NewRows = 0
	}
	out.State = stateFromUptime(out.UptimePct)
	return out
}

// States returns the current state of every feed seen so far.
func (e *Engine) States() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.states))
	for id, st := range e.states {
		out[id] = stateFromUptime(st.uptimePct())
	}
	return out
}

type sourceState struct {
	history []bool // scrape outcomes, newest last
	total   int
	lastRow time.Time
}

func (e *Engine) stateFor(id string) *sourceState {
	if st, ok := e.states[id]; ok {
		return st
	}
	st := &sourceState{}
	e.states[id] = st
	return st
}

func (st *sourceState) recordScrape(success bool) {
	if len(st.history) >= uptimeWindow {
		st.history = st.history[1:]
	}
	st.history = append(st.history, success)
}

// uptimePct returns -1 before the first scrape.
func (st *sourceState) uptimePct() float64 {
	if len(st.history) == 0 {
		return -1
	}
	var ok int
	for _, s := range st.history {
		if s {
			ok++
		}
	}
	return float64(ok) / float64(len(st.history)) * 100
}

func stateFromUptime(pct float64) string {
	switch {
	case pct < 0:
		return StateUnknown
	case pct >= ThresholdHealthy:
		return StateHealthy
	case pct >= ThresholdDegraded:
		return StateDegraded
	default:
		return StateDown
	}
}
