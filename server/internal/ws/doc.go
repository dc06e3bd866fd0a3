// Package ws streams session analyses to WebSocket clients.
//
// A client connects to /ws/sessions/{id} and subscribes to that one session.
// It receives the current analysis immediately, again after every edit to the
// session, and on a periodic refresh tick (default 5s). When the session is
// deleted or evicted the client gets a final "closed" event and the
// connection is closed.
//
// Message format sent to clients:
//
//	{
//	  "event": "analysis",
//	  "data":  { /* same schema as GET /api/v1/sessions/{id}/analysis */ }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level.
package ws
