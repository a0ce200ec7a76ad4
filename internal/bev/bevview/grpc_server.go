package bevview

import (
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/banshee-data/bev.report/internal/bev/bevview/pb"
	"github.com/banshee-data/bev.report/internal/monitoring"
)

// Ensure Server implements the gRPC interface.
var _ pb.BevViewServer = (*Server)(nil)

// Server implements the BevView gRPC service.
type Server struct {
	publisher *Publisher
}

// NewServer creates a new gRPC server backed by the publisher.
func NewServer(publisher *Publisher) *Server {
	return &Server{publisher: publisher}
}

// StreamCanvases registers the client with the publisher and forwards
// composite frames until the client disconnects.
func (s *Server) StreamCanvases(req *pb.StreamRequest, stream pb.BevView_StreamCanvasesServer) error {
	clientID := fmt.Sprintf("grpc-%d", time.Now().UnixNano())
	if req.ClientName != "" {
		clientID = fmt.Sprintf("%s-%d", req.ClientName, time.Now().UnixNano())
	}
	monitoring.Logf("[BevView] StreamCanvases started: client=%s", clientID)

	client := s.publisher.addClient(clientID)
	if client == nil {
		return status.Errorf(codes.ResourceExhausted, "client limit reached (%d)", s.publisher.config.MaxClients)
	}
	defer s.publisher.removeClient(clientID)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-client.frameCh:
			if err := stream.Send(frame); err != nil {
				monitoring.Logf("[BevView] Send error for %s: %v", clientID, err)
				return err
			}
		}
	}
}

// RegisterService registers the gRPC service with the server.
func RegisterService(grpcServer *grpc.Server, server *Server) {
	pb.RegisterBevViewServer(grpcServer, server)
}
