package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The Scoring service carries JSON-shaped messages as google.protobuf.Struct:
//
//	rpc Predict(Struct{records: [object...]}) returns (Struct{
//	    predictions: [number|null...], probabilities: [number|null...],
//	    errors: [{row, field, kind, value, msg}...], version: number})
const (
	ServiceName   = "titanic.v1.Scoring"
	predictMethod = "/" + ServiceName + "/Predict"
)

// ScoringServer is the server API for the Scoring service.
type ScoringServer interface {
	Predict(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterScoringServer registers srv on s.
func RegisterScoringServer(s grpc.ServiceRegistrar, srv ScoringServer) {
	s.RegisterService(&scoringServiceDesc, srv)
}

func predictHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServer).Predict(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: predictMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScoringServer).Predict(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var scoringServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Predict",
			Handler:    predictHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "titanic/v1/scoring.proto",
}

// ScoringClient is the client API for the Scoring service.
type ScoringClient interface {
	Predict(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type scoringClient struct {
	cc grpc.ClientConnInterface
}

func NewScoringClient(cc grpc.ClientConnInterface) ScoringClient {
	return &scoringClient{cc}
}

func (c *scoringClient) Predict(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, predictMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
