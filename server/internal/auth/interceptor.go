package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// APIKeyInterceptor enforces v on unary calls. Calls pass through when v is
// not enabled.
func APIKeyInterceptor(v *Verifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := v.authorize(ctx); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// APIKeyStreamInterceptor is the streaming counterpart of APIKeyInterceptor,
// covering health Watch and server reflection.
func APIKeyStreamInterceptor(v *Verifier) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := v.authorize(ss.Context()); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

// authorize checks the key carried in incoming gRPC metadata.
func (v *Verifier) authorize(ctx context.Context) error {
	if !v.Enabled() {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get(v.Header())
	if len(vals) == 0 || !v.Check(vals[0]) {
		return status.Error(codes.Unauthenticated, "invalid api key")
	}
	return nil
}
