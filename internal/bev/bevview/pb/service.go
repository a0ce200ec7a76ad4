package pb

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName              = "bevview.BevView"
	streamCanvasesFullMethod = "/bevview.BevView/StreamCanvases"
)

// BevViewServer is the server API for the BevView service.
type BevViewServer interface {
	StreamCanvases(*StreamRequest, BevView_StreamCanvasesServer) error
}

// BevView_ServiceDesc is the grpc.ServiceDesc for the BevView service.
var BevView_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BevViewServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamCanvases",
			Handler:       streamCanvasesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "bevview.proto",
}

// RegisterBevViewServer registers the service implementation with a gRPC
// server.
func RegisterBevViewServer(s grpc.ServiceRegistrar, srv BevViewServer) {
	s.RegisterService(&BevView_ServiceDesc, srv)
}

type BevView_StreamCanvasesServer interface {
	Send(*CanvasFrame) error
	grpc.ServerStream
}

type bevViewStreamCanvasesServer struct {
	grpc.ServerStream
}

func (x *bevViewStreamCanvasesServer) Send(m *CanvasFrame) error {
	return x.ServerStream.SendMsg(m)
}

func streamCanvasesHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(StreamRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(BevViewServer).StreamCanvases(m, &bevViewStreamCanvasesServer{stream})
}

// BevViewClient is the client API for the BevView service.
type BevViewClient interface {
	StreamCanvases(ctx context.Context, in *StreamRequest, opts ...grpc.CallOption) (BevView_StreamCanvasesClient, error)
}

type bevViewClient struct {
	cc grpc.ClientConnInterface
}

// NewBevViewClient builds a client on an existing connection. The bevwire
// content-subtype is applied automatically.
func NewBevViewClient(cc grpc.ClientConnInterface) BevViewClient {
	return &bevViewClient{cc}
}

func (c *bevViewClient) StreamCanvases(ctx context.Context, in *StreamRequest, opts ...grpc.CallOption) (BevView_StreamCanvasesClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &BevView_ServiceDesc.Streams[0], streamCanvasesFullMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &bevViewStreamCanvasesClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type BevView_StreamCanvasesClient interface {
	Recv() (*CanvasFrame, error)
	grpc.ClientStream
}

type bevViewStreamCanvasesClient struct {
	grpc.ClientStream
}

func (x *bevViewStreamCanvasesClient) Recv() (*CanvasFrame, error) {
	m := new(CanvasFrame)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
