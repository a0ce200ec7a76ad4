package bevview

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/banshee-data/bev.report/internal/bev"
	"github.com/banshee-data/bev.report/internal/bev/bevview/pb"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ListenAddr != "localhost:50051" {
		t.Errorf("expected ListenAddr=localhost:50051, got %s", cfg.ListenAddr)
	}
	if cfg.MaxClients != 5 {
		t.Errorf("expected MaxClients=5, got %d", cfg.MaxClients)
	}
}

func TestPublisher_Stats_NotRunning(t *testing.T) {
	pub := NewPublisher(DefaultConfig())
	stats := pub.Stats()
	if stats.Running {
		t.Error("expected Running=false before Start")
	}
	if stats.FrameCount != 0 {
		t.Errorf("expected FrameCount=0, got %d", stats.FrameCount)
	}
}

func TestPublisher_PublishBeforeStartIsNoop(t *testing.T) {
	pub := NewPublisher(DefaultConfig())
	pub.Publish(testFrame("f1"))
	if got := pub.Stats().FrameCount; got != 0 {
		t.Errorf("FrameCount = %d, want 0", got)
	}
}

func TestPublisher_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	pub := NewPublisher(cfg)

	if err := pub.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !pub.Stats().Running {
		t.Error("expected Running=true after Start")
	}
	if pub.Addr() == nil {
		t.Error("expected bound address after Start")
	}

	pub.Stop()
	if pub.Stats().Running {
		t.Error("expected Running=false after Stop")
	}
}

func TestFrameToProto(t *testing.T) {
	frame := testFrame("bundle-1")
	frame.Canvas.SetBGR(1, 0, 10, 20, 30)

	pbFrame := FrameToProto(frame)
	if pbFrame.BundleId != "bundle-1" || pbFrame.Width != 4 || pbFrame.Height != 2 {
		t.Errorf("header mismatch: %+v", pbFrame)
	}
	if pbFrame.ViewsUsed != 2 || pbFrame.ViewsIn != 3 {
		t.Errorf("view counts = (%d, %d), want (2, 3)", pbFrame.ViewsUsed, pbFrame.ViewsIn)
	}
	if pbFrame.PixelsBgr[3] != 10 || pbFrame.PixelsBgr[4] != 20 || pbFrame.PixelsBgr[5] != 30 {
		t.Errorf("pixel bytes = %v", pbFrame.PixelsBgr[3:6])
	}
}

func TestStreamCanvasesEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	pub := NewPublisher(cfg)
	if err := pub.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer pub.Stop()
	RegisterService(pub.GRPCServer(), NewServer(pub))

	conn, err := grpc.NewClient(pub.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := pb.NewBevViewClient(conn).StreamCanvases(ctx, &pb.StreamRequest{ClientName: "test"})
	if err != nil {
		t.Fatalf("StreamCanvases: %v", err)
	}

	// Client registration happens when the server handles the stream, so
	// publish until the first frame arrives.
	publishDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-publishDone:
				return
			case <-ticker.C:
				pub.Publish(testFrame("bundle-e2e"))
			}
		}
	}()
	defer close(publishDone)

	frame, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if frame.BundleId != "bundle-e2e" {
		t.Errorf("bundle id = %q", frame.BundleId)
	}
	if frame.Width != 4 || frame.Height != 2 || len(frame.PixelsBgr) != 4*2*3 {
		t.Errorf("canvas geometry mismatch: %dx%d, %d bytes", frame.Width, frame.Height, len(frame.PixelsBgr))
	}
}

func testFrame(id string) *bev.CompositeFrame {
	return &bev.CompositeFrame{
		BundleID:  id,
		At:        time.Unix(1700000000, 0),
		Canvas:    bev.NewImage(4, 2),
		ViewsUsed: 2,
		ViewsIn:   3,
	}
}
