package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fitpoint/fitpoint/pkg/table"
	"github.com/fitpoint/fitpoint/pkg/types"
	"github.com/fitpoint/fitpoint/server/internal/alerts"
	"github.com/fitpoint/fitpoint/server/internal/auth"
	"github.com/fitpoint/fitpoint/server/internal/config"
	"github.com/fitpoint/fitpoint/server/internal/metrics"
	"github.com/fitpoint/fitpoint/server/internal/session"
)

// maxBodyBytes caps request bodies; a FIT table is a few hundred rows.
const maxBodyBytes = 8 << 20

// Options wires the handler to the rest of the server. Sessions is required;
// everything else may be nil or zero.
type Options struct {
	Sessions  *session.Store
	Alerts    *alerts.Engine
	Metrics   *metrics.Metrics
	Auth      *auth.Verifier
	RateLimit config.RateLimitConfig

	// Stream, when set, is mounted at /ws/sessions/{id}.
	Stream http.Handler
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	sessions *session.Store
	alerts   *alerts.Engine
	metrics  *metrics.Metrics
	limiter  *clientLimiter
	router   *mux.Router
}

// New creates a Handler and registers all routes.
func New(opts Options) http.Handler {
	h := &Handler{
		sessions: opts.Sessions,
		alerts:   opts.Alerts,
		metrics:  opts.Metrics,
		router:   mux.NewRouter(),
	}
	if opts.RateLimit.Enabled() {
		h.limiter = newClientLimiter(opts.RateLimit.RPS, opts.RateLimit.Burst)
	}
	verifier := opts.Auth
	if verifier == nil {
		verifier = auth.NewVerifier("none", "", "")
	}

	r := h.router
	r.HandleFunc("/api/v1/health", h.health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(h.instrument, h.rateLimit, verifier.Middleware)
	v1.HandleFunc("/sessions", h.createSession).Methods(http.MethodPost)
	v1.HandleFunc("/sessions", h.listSessions).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}", h.getSession).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}", h.deleteSession).Methods(http.MethodDelete)
	v1.HandleFunc("/sessions/{id}/rows", h.replaceRows).Methods(http.MethodPut)
	v1.HandleFunc("/sessions/{id}/rows", h.appendRows).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/csv", h.replaceCSV).Methods(http.MethodPut)
	v1.HandleFunc("/sessions/{id}/well", h.setWell).Methods(http.MethodPut)
	v1.HandleFunc("/sessions/{id}/analysis", h.analysis).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}/export.csv", h.export).Methods(http.MethodGet)
	v1.HandleFunc("/alerts", h.listAlerts).Methods(http.MethodGet)

	if opts.Stream != nil {
		ws := r.PathPrefix("/ws").Subrouter()
		ws.Use(h.rateLimit, verifier.Middleware)
		ws.Handle("/sessions/{id}", opts.Stream).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", SessionCount: h.sessions.Count()}
	if h.alerts != nil {
		resp.AlertCount = h.alerts.FiringCount()
	}
	jsonResp(w, http.StatusOK, resp)
}

// createSession handles POST /api/v1/sessions. The body is optional.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	info := h.sessions.Create(req.Name)
	if len(req.Rows) > 0 {
		h.sessions.ReplaceRows(info.ID, req.Rows) //nolint:errcheck
	}
	if req.Well != nil {
		h.sessions.SetWell(info.ID, *req.Well) //nolint:errcheck
	}
	if len(req.Rows) > 0 || req.Well != nil {
		info, _ = h.sessions.Get(info.ID)
	}

	slog.Info("api: session created", "session", info.ID, "name", info.Name)
	jsonResp(w, http.StatusCreated, SessionResponse{Info: info})
}

// listSessions handles GET /api/v1/sessions.
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	infos := h.sessions.List()
	out := make([]SessionResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, SessionResponse{Info: info})
	}
	jsonResp(w, http.StatusOK, out)
}

// getSession handles GET /api/v1/sessions/{id}, including the raw table.
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	info, err := h.sessions.Get(id)
	if err != nil {
		sessionErr(w, err)
		return
	}
	rows, err := h.sessions.Rows(id)
	if err != nil {
		sessionErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, SessionResponse{Info: info, Table: rows})
}

// deleteSession handles DELETE /api/v1/sessions/{id}.
func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.sessions.Delete(id); err != nil {
		sessionErr(w, err)
		return
	}
	slog.Info("api: session deleted", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

// replaceRows handles PUT /api/v1/sessions/{id}/rows.
func (h *Handler) replaceRows(w http.ResponseWriter, r *http.Request) {
	h.editRows(w, r, h.sessions.ReplaceRows)
}

// appendRows handles POST /api/v1/sessions/{id}/rows.
func (h *Handler) appendRows(w http.ResponseWriter, r *http.Request) {
	h.editRows(w, r, h.sessions.AppendRows)
}

func (h *Handler) editRows(w http.ResponseWriter, r *http.Request, apply func(string, []types.RawRow) (uint64, error)) {
	id := mux.Vars(r)["id"]
	var req RowsRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := apply(id, req.Rows)
	if err != nil {
		sessionErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, VersionResponse{ID: id, Version: v})
}

// replaceCSV handles PUT /api/v1/sessions/{id}/csv.
func (h *Handler) replaceCSV(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rows, err := table.ReadCSV(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.sessions.ReplaceRows(id, rows)
	if err != nil {
		sessionErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, VersionResponse{ID: id, Version: v})
}

// setWell handles PUT /api/v1/sessions/{id}/well. Values are kept as text;
// validation happens in the EMW calculation.
func (h *Handler) setWell(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var well types.WellInputs
	if err := decodeBody(w, r, &well, false); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.sessions.SetWell(id, well)
	if err != nil {
		sessionErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, VersionResponse{ID: id, Version: v})
}

// analysis handles GET /api/v1/sessions/{id}/analysis.
func (h *Handler) analysis(w http.ResponseWriter, r *http.Request) {
	resp, err := BuildAnalysis(h.sessions, mux.Vars(r)["id"])
	if err != nil {
		sessionErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, resp)
}

// export handles GET /api/v1/sessions/{id}/export.csv.
func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a, _, err := h.sessions.Analysis(id)
	if err != nil {
		sessionErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="fit-%s.csv"`, id))
	if err := table.WriteDerivedCSV(w, a.Derived); err != nil {
		slog.Warn("api: csv export failed", "session", id, "err", err)
	}
}

// listAlerts handles GET /api/v1/alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// --- middleware -------------------------------------------------------------

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	if h.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		h.metrics.APIRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.code)).Inc()
	})
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	if h.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.allow(remoteHost(r)) {
			if h.metrics != nil {
				h.metrics.RateLimited.Inc()
			}
			w.Header().Set("Retry-After", "1")
			jsonErr(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- helpers ----------------------------------------------------------------

// decodeBody reads a JSON body into v. With optional set, an empty body is
// accepted and leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func sessionErr(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "session not found")
		return
	}
	jsonErr(w, http.StatusInternalServerError, err.Error())
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
