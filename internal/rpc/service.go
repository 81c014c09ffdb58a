// Package rpc exposes the dispatcher as the memora.native.v1.NativeBridge gRPC
// service. The request is a Struct {method, arguments} and the reply a Value.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rbright/memora-native/internal/bridge"
	"github.com/rbright/memora-native/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName      = "memora.native.v1.NativeBridge"
	invokeFullMethod = "/" + ServiceName + "/Invoke"

	fieldMethod    = "method"
	fieldArguments = "arguments"
)

// NativeBridgeServer is the server side of the service.
type NativeBridgeServer interface {
	Invoke(context.Context, *structpb.Struct) (*structpb.Value, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NativeBridgeServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Invoke",
		Handler:    invokeHandler,
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "memora/native/v1/bridge.proto",
}

func invokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NativeBridgeServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: invokeFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NativeBridgeServer).Invoke(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Register attaches inv to s as the NativeBridge service.
func Register(s grpc.ServiceRegistrar, inv bridge.Invoker, logger *slog.Logger) {
	s.RegisterService(&serviceDesc, &server{inv: inv, logger: logging.OrDiscard(logger)})
}

type server struct {
	inv    bridge.Invoker
	logger *slog.Logger
}

func (s *server) Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	methodValue, ok := req.GetFields()[fieldMethod]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "request is missing the method field")
	}
	method, ok := methodValue.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "method must be a string")
	}

	var arguments json.RawMessage
	if argValue, ok := req.GetFields()[fieldArguments]; ok {
		encoded, err := protojson.Marshal(argValue)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "encode arguments: %v", err)
		}
		arguments = encoded
	}

	result, err := s.inv.Invoke(ctx, method.StringValue, arguments)
	if err != nil {
		if errors.Is(err, bridge.ErrNotImplemented) {
			return nil, status.Error(codes.Unimplemented, err.Error())
		}
		s.logger.Error("grpc invoke failed", "method", method.StringValue, "error", err.Error())
		return nil, status.Error(codes.Internal, err.Error())
	}

	value, err := toValue(result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return value, nil
}

// toValue converts a dispatcher result into a protobuf Value via its JSON form.
func toValue(result any) (*structpb.Value, error) {
	switch v := result.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case bridge.DeviceState:
		return structpb.NewValue(v.AsMap())
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	value := new(structpb.Value)
	if err := protojson.Unmarshal(encoded, value); err != nil {
		return nil, fmt.Errorf("decode %s: %w", encoded, err)
	}
	return value, nil
}
