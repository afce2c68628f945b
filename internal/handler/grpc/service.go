package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ResolveMethod is the full gRPC method name of Resolve.
const ResolveMethod = "/georesolve.v1.Resolver/Resolve"

// ResolverServer is the server API for the georesolve.v1.Resolver service.
// Requests carry the IP address as a StringValue; responses are a Struct
// with country, country_code and continent, or no fields when unknown.
type ResolverServer interface {
	Resolve(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterResolverServer registers srv on s.
func RegisterResolverServer(s grpc.ServiceRegistrar, srv ResolverServer) {
	s.RegisterService(&resolverServiceDesc, srv)
}

var resolverServiceDesc = grpc.ServiceDesc{
	ServiceName: "georesolve.v1.Resolver",
	HandlerType: (*ResolverServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Resolve",
			Handler:    resolveHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "georesolve/v1/resolver.proto",
}

func resolveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ResolverServer).Resolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ResolveMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ResolverServer).Resolve(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ResolverClient calls the georesolve.v1.Resolver service.
type ResolverClient struct {
	cc grpc.ClientConnInterface
}

// NewResolverClient creates a client on top of cc.
func NewResolverClient(cc grpc.ClientConnInterface) *ResolverClient {
	return &ResolverClient{cc: cc}
}

// Resolve looks up ip on the remote service.
func (c *ResolverClient) Resolve(ctx context.Context, ip string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ResolveMethod, wrapperspb.String(ip), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
