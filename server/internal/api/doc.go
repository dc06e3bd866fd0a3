// Package api implements the HTTP REST API for fitpoint-server.
//
// New(opts) returns an http.Handler that serves:
//
//	GET    /api/v1/health                   - liveness, session and alert counts
//	POST   /api/v1/sessions                 - create a session
//	GET    /api/v1/sessions                 - list sessions
//	GET    /api/v1/sessions/{id}            - session with its raw table
//	DELETE /api/v1/sessions/{id}            - drop a session
//	PUT    /api/v1/sessions/{id}/rows       - replace the table (JSON rows)
//	POST   /api/v1/sessions/{id}/rows       - append rows
//	PUT    /api/v1/sessions/{id}/csv        - replace the table from a CSV body
//	PUT    /api/v1/sessions/{id}/well       - set TVD and mud weight text
//	GET    /api/v1/sessions/{id}/analysis   - derived series, inflection, EMW, hints
//	GET    /api/v1/sessions/{id}/export.csv - derived series as CSV
//	GET    /api/v1/alerts                   - firing and recently resolved alerts
//	GET    /ws/sessions/{id}                - live analysis stream (when configured)
//
// Everything except health sits behind the API-key middleware and the
// per-client rate limiter. Errors are JSON bodies of the form {"error": "..."}.
package api
