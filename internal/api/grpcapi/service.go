// Package grpcapi exposes book commands and queries over gRPC. Messages are
// google.protobuf.Struct values carrying the same JSON shapes as the HTTP API.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "matching.v1.BooksService"

const (
	cancelOrderMethod     = "/" + ServiceName + "/CancelOrder"
	cancelMassQuoteMethod = "/" + ServiceName + "/CancelMassQuote"
	getBookMethod         = "/" + ServiceName + "/GetBook"
)

// BooksServer is the server API of the books service
type BooksServer interface {
	CancelOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelMassQuote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterBooksServer registers srv on s
func RegisterBooksServer(s grpc.ServiceRegistrar, srv BooksServer) {
	s.RegisterService(&BooksServiceDesc, srv)
}

func unaryHandler(method string, call func(BooksServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BooksServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BooksServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BooksServiceDesc describes the books service
var BooksServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BooksServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CancelOrder",
			Handler:    unaryHandler(cancelOrderMethod, BooksServer.CancelOrder),
		},
		{
			MethodName: "CancelMassQuote",
			Handler:    unaryHandler(cancelMassQuoteMethod, BooksServer.CancelMassQuote),
		},
		{
			MethodName: "GetBook",
			Handler:    unaryHandler(getBookMethod, BooksServer.GetBook),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "matching/v1/books.proto",
}

// BooksClient is the client API of the books service
type BooksClient struct {
	cc grpc.ClientConnInterface
}

func NewBooksClient(cc grpc.ClientConnInterface) *BooksClient {
	return &BooksClient{cc: cc}
}

func (c *BooksClient) CancelOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, cancelOrderMethod, in, opts...)
}

func (c *BooksClient) CancelMassQuote(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, cancelMassQuoteMethod, in, opts...)
}

func (c *BooksClient) GetBook(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, getBookMethod, in, opts...)
}

func (c *BooksClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
