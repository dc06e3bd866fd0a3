package api

import (
	"time"

	"github.com/fitpoint/fitpoint/pkg/compute"
	"github.com/fitpoint/fitpoint/server/internal/session"
)

// BuildAnalysis returns the current analysis of a session in its JSON form.
// The pipeline only reruns if the session changed since the last call.
func BuildAnalysis(st *session.Store, id string) (AnalysisResponse, error) {
	a, version, err := st.Analysis(id)
	if err != nil {
		return AnalysisResponse{}, err
	}
	return toAnalysisResponse(id, version, a), nil
}

func toAnalysisResponse(id string, version uint64, a *compute.Analysis) AnalysisResponse {
	d := a.Derived
	samples := make([]SampleResponse, 0, d.Len())
	for i, s := range d.Samples {
		sr := SampleResponse{
			Time:     compute.FormatTime(s.Time),
			Pressure: s.Pressure,
			Strokes:  s.Strokes,
		}
		if d.HasDerivatives() {
			sr.Elapsed = ptr(d.Elapsed[i])
			sr.First = ptr(d.First[i])
			sr.Second = ptr(d.Second[i])
		}
		samples = append(samples, sr)
	}

	resp := AnalysisResponse{
		SessionID:       id,
		Version:         version,
		Status:          a.Status,
		Samples:         samples,
		Dropped:         DroppedResponse{Time: a.Clean.DroppedTime, Pressure: a.Clean.DroppedPressure},
		FitPressureText: a.FitPressureText(),
		EMW:             toEMWResponse(a.EMW),
		Bounds:          a.Bounds,
		Diagnostics:     computeDiagnostics(a),
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	if a.Err != nil {
		resp.Error = a.Err.Error()
	}
	if a.Inflection.Found {
		resp.Inflection = &InflectionResponse{
			Index:    a.Inflection.Index,
			Time:     compute.FormatTime(a.Inflection.Time),
			Pressure: a.Inflection.Pressure,
		}
	}
	if a.FitPressureKnown {
		resp.FitPressure = ptr(a.FitPressure)
	}
	return resp
}

func toEMWResponse(r compute.EMWResult) EMWResponse {
	out := EMWResponse{Kind: r.Kind, Message: r.Message()}
	if r.Kind == compute.EMWValue {
		out.Value = ptr(r.Value)
		out.Rounded = ptr(r.Rounded())
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

func ptr(v float64) *float64 { return &v }
