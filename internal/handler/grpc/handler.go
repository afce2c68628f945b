package grpc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/TomasB/georesolve/internal/resolver"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Resolver resolves textual IP addresses.
type Resolver interface {
	Resolve(ipText string) (resolver.Location, error)
}

// Handler implements the gRPC Resolver service.
type Handler struct {
	resolver Resolver
}

// NewHandler creates a new gRPC handler with the given Resolver.
func NewHandler(r Resolver) *Handler {
	return &Handler{resolver: r}
}

// Resolve returns the location of the requested IP address.
func (h *Handler) Resolve(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "ip is required")
	}

	loc, err := h.resolver.Resolve(req.GetValue())
	switch {
	case errors.Is(err, resolver.ErrInvalidAddress):
		return nil, status.Error(codes.InvalidArgument, "invalid IP address")
	case errors.Is(err, resolver.ErrIncompleteRecord):
		slog.Error("resolve failed", "ip", req.GetValue(), "error", err)
		return nil, status.Error(codes.Internal, "incomplete location record")
	case err != nil:
		slog.Error("resolve failed", "ip", req.GetValue(), "error", err)
		return nil, status.Error(codes.Internal, "lookup failed")
	}

	if !loc.Found() {
		return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"country":      structpb.NewStringValue(loc.Country),
		"country_code": structpb.NewStringValue(loc.CountryCode),
		"continent":    structpb.NewStringValue(loc.Continent),
	}}, nil
}

// NewServer builds a gRPC server exposing the Resolver service and the
// standard health service.
func NewServer(h *Handler, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	RegisterResolverServer(srv, h)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(resolverServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}
