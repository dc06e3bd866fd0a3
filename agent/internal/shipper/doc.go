// Package shipper posts rows read by the scrapers to a fitpoint-server
// session over HTTP (POST /api/v1/sessions/{id}/rows).
//
// Ship is non-blocking and keeps at most buffer_size rows, evicting the
// oldest. Run flushes on every ship_interval and falls back to truncated
// exponential backoff (1s to 60s, ±25% jitter) after a transient failure.
// Requests pass through a gobreaker circuit breaker that opens after five
// consecutive transient failures. Responses 400, 401, 403 and 404 are
// permanent: the batch is logged and discarded.
//
// When no session_id is configured the shipper creates a session on the
// first flush and keeps posting to it.
package shipper
