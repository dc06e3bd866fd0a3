package api

import (
	"github.com/fitpoint/fitpoint/pkg/compute"
	"github.com/fitpoint/fitpoint/pkg/types"
	"github.com/fitpoint/fitpoint/server/internal/session"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"`
	SessionCount int    `json:"session_count"`
	AlertCount   int    `json:"alert_count"`
}

// CreateSessionRequest is the optional body of POST /api/v1/sessions.
type CreateSessionRequest struct {
	Name string            `json:"name"`
	Rows []types.RawRow    `json:"rows,omitempty"`
	Well *types.WellInputs `json:"well,omitempty"`
}

// RowsRequest is the body of PUT and POST /api/v1/sessions/{id}/rows.
type RowsRequest struct {
	Rows []types.RawRow `json:"rows"`
}

// SessionResponse is one session in the list, or a single session with its
// table when Rows is set.
type SessionResponse struct {
	session.Info
	Table []types.RawRow `json:"table,omitempty"`
}

// VersionResponse acknowledges an edit.
type VersionResponse struct {
	ID      string `json:"id"`
	Version uint64 `json:"version"`
}

// SampleResponse is one cleaned sample with its derivatives. Derivative
// fields are null when the series is too short or invalid.
type SampleResponse struct {
	Time     string   `json:"time"`
	Elapsed  *float64 `json:"elapsed_s"`
	Pressure float64  `json:"pressure"`
	Strokes  *float64 `json:"strokes,omitempty"`
	First    *float64 `json:"dp_dt"`
	Second   *float64 `json:"d2p_dt2"`
}

// InflectionResponse locates the inflection point found in this run.
type InflectionResponse struct {
	Index    int     `json:"index"`
	Time     string  `json:"time"`
	Pressure float64 `json:"pressure"`
}

// EMWResponse is the tagged EMW outcome. Value and Rounded are only set for
// kind "value".
type EMWResponse struct {
	Kind    compute.EMWKind `json:"kind"`
	Value   *float64        `json:"value,omitempty"`
	Rounded *float64        `json:"rounded,omitempty"`
	Message string          `json:"message"`
	Error   string          `json:"error,omitempty"`
}

// DroppedResponse counts rows excluded by the cleaner.
type DroppedResponse struct {
	Time     int `json:"time"`
	Pressure int `json:"pressure"`
}

// AnalysisResponse is the payload for GET /api/v1/sessions/{id}/analysis and
// the data of every WebSocket message.
type AnalysisResponse struct {
	SessionID       string              `json:"session_id"`
	Version         uint64              `json:"version"`
	Status          string              `json:"status"`
	Error           string              `json:"error,omitempty"`
	Samples         []SampleResponse    `json:"samples"`
	Dropped         DroppedResponse     `json:"dropped"`
	Inflection      *InflectionResponse `json:"inflection"`
	FitPressure     *float64            `json:"fit_pressure"`
	FitPressureText string              `json:"fit_pressure_text"`
	EMW             EMWResponse         `json:"emw"`
	Bounds          compute.ChartBounds `json:"bounds"`
	Diagnostics     []DiagnosticHint    `json:"diagnostics"`
	GeneratedAt     string              `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
