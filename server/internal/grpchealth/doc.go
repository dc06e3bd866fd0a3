// Package grpchealth serves the standard grpc.health.v1 service for load
// balancers and orchestrators, plus server reflection for grpcurl.
//
// Two service names are reported: "" for the process as a whole and
// ServiceSessions for the session store. Both go NOT_SERVING on Shutdown so
// in-flight probes see the server draining. Authentication is enforced by the
// API-key interceptor installed on the grpc.Server (see package auth).
package grpchealth
