// Package auth checks API keys on both server listeners.
//
// Middleware wraps the REST API and WebSocket routes; APIKeyInterceptor guards
// the gRPC health service. Both share a Verifier. When the mode is not
// "apikey" or no key is configured, every request passes through, which is
// the usual setup on a rig-site laptop. A wrong or absent key yields 401 over
// HTTP and codes.Unauthenticated over gRPC.
package auth
