package server

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages on the wire are google.protobuf.Struct values. Their fields are the
// JSON names of the Go request and response types.

// DecodeStruct fills dst from msg using dst's JSON tags.
func DecodeStruct(msg *structpb.Struct, dst any) error {
	raw, err := protojson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal struct: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

// EncodeStruct converts src into a Struct through its JSON form.
func EncodeStruct(src any) (*structpb.Struct, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("unmarshal struct: %w", err)
	}
	return out, nil
}

func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// Unary describes a unary method implemented by call on the service
// implementation S.
func Unary[S, Req, Resp any](service, name string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}

			handler := func(ctx context.Context, msg any) (any, error) {
				req := new(Req)
				if err := DecodeStruct(msg.(*structpb.Struct), req); err != nil {
					return nil, status.Error(codes.InvalidArgument, err.Error())
				}
				resp, err := call(srv.(S), ctx, req)
				if err != nil {
					return nil, err
				}
				return EncodeStruct(resp)
			}

			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(service, name)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Sender is the typed server side of a server-streaming call.
type Sender[T any] interface {
	Send(*T) error
	Context() context.Context
}

type structSender[T any] struct {
	stream grpc.ServerStream
}

func (s structSender[T]) Send(msg *T) error {
	out, err := EncodeStruct(msg)
	if err != nil {
		return err
	}
	return s.stream.SendMsg(out)
}

func (s structSender[T]) Context() context.Context { return s.stream.Context() }

// ServerStream describes a server-streaming method: one request, many
// responses.
func ServerStream[S, Req, Resp any](name string, call func(S, *Req, Sender[Resp]) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    name,
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(structpb.Struct)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			req := new(Req)
			if err := DecodeStruct(in, req); err != nil {
				return status.Error(codes.InvalidArgument, err.Error())
			}
			return call(srv.(S), req, structSender[Resp]{stream: stream})
		},
	}
}
