package grpchealth

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceSessions is the health service name for the session store.
const ServiceSessions = "fitpoint.v1.Sessions"

// Reporter owns the health server.
type Reporter struct {
	srv *health.Server
}

// New creates a Reporter with every service marked SERVING.
func New() *Reporter {
	r := &Reporter{srv: health.NewServer()}
	r.srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	r.srv.SetServingStatus(ServiceSessions, healthpb.HealthCheckResponse_SERVING)
	return r
}

// Register installs the health and reflection services on s.
func (r *Reporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, r.srv)
	reflection.Register(s)
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (r *Reporter) Shutdown() {
	r.srv.Shutdown()
}
