// Package bevview provides gRPC streaming of composited bird's-eye-view
// canvases to viewer clients.
package bevview

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"

	"github.com/banshee-data/bev.report/internal/bev"
	"github.com/banshee-data/bev.report/internal/bev/bevview/pb"
	"github.com/banshee-data/bev.report/internal/monitoring"
)

// Config holds configuration for the bevview gRPC server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "localhost:50051")
	ListenAddr string

	// MaxClients is the maximum number of concurrent streaming clients
	MaxClients int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "localhost:50051",
		MaxClients: 5,
	}
}

// clientStream represents a connected streaming client.
type clientStream struct {
	id      string
	frameCh chan *pb.CanvasFrame
	doneCh  chan struct{}
}

// Publisher manages the gRPC server and canvas streaming. Frames are
// broadcast to every connected client; a slow client drops frames rather
// than backpressuring the pipeline.
type Publisher struct {
	config   Config
	server   *grpc.Server
	listener net.Listener

	frameChan chan *pb.CanvasFrame
	clients   map[string]*clientStream
	clientsMu sync.RWMutex

	frameCount    atomic.Uint64
	clientCount   atomic.Int32
	droppedFrames atomic.Uint64

	lastStatsMu    sync.Mutex
	lastStatsTime  time.Time
	lastFrameCount uint64

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPublisher creates a new Publisher with the given configuration.
func NewPublisher(cfg Config) *Publisher {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = 5
	}
	return &Publisher{
		config:    cfg,
		frameChan: make(chan *pb.CanvasFrame, 100),
		clients:   make(map[string]*clientStream),
		stopCh:    make(chan struct{}),
	}
}

// Start starts the gRPC server.
func (p *Publisher) Start() error {
	if p.running.Load() {
		return fmt.Errorf("publisher already running")
	}

	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	p.listener = lis

	// A full-resolution canvas can exceed the 4MB gRPC default.
	const maxMsgSize = 16 * 1024 * 1024
	p.server = grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)
	// Service registration is done by the caller via RegisterService.

	p.running.Store(true)

	p.wg.Add(1)
	go p.broadcastLoop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		monitoring.Logf("[BevView] gRPC server listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			monitoring.Logf("[BevView] gRPC server error: %v", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (p *Publisher) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Stop gracefully stops the gRPC server.
func (p *Publisher) Stop() {
	if !p.running.Load() {
		return
	}
	p.running.Store(false)
	close(p.stopCh)

	if p.server != nil {
		p.server.GracefulStop()
	}
	if p.listener != nil {
		p.listener.Close()
	}

	p.wg.Wait()
	monitoring.Logf("[BevView] gRPC server stopped")
}

// Publish sends a composite frame to all connected clients. Never blocks;
// the frame is dropped when the broadcast queue is full.
func (p *Publisher) Publish(frame *bev.CompositeFrame) {
	if !p.running.Load() || frame == nil {
		return
	}

	pbFrame := FrameToProto(frame)
	queueDepth := len(p.frameChan)

	select {
	case p.frameChan <- pbFrame:
		count := p.frameCount.Add(1)
		p.logPeriodicStats(count, queueDepth)
	default:
		dropped := p.droppedFrames.Add(1)
		monitoring.Logf("[BevView] DROPPED frame %s (total dropped: %d), channel full",
			frame.BundleID, dropped)
	}
}

// logPeriodicStats logs throughput every 5 seconds.
func (p *Publisher) logPeriodicStats(frameCount uint64, queueDepth int) {
	p.lastStatsMu.Lock()
	defer p.lastStatsMu.Unlock()

	now := time.Now()
	if p.lastStatsTime.IsZero() {
		p.lastStatsTime = now
		p.lastFrameCount = frameCount
		return
	}

	elapsed := now.Sub(p.lastStatsTime)
	if elapsed >= 5*time.Second {
		framesInInterval := frameCount - p.lastFrameCount
		fps := float64(framesInInterval) / elapsed.Seconds()
		monitoring.Logf("[BevView] Stats: fps=%.1f frames=%d dropped=%d clients=%d queue=%d/100",
			fps, framesInInterval, p.droppedFrames.Load(), p.clientCount.Load(), queueDepth)
		p.lastStatsTime = now
		p.lastFrameCount = frameCount
	}
}

// broadcastLoop distributes frames to all connected clients.
func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case frame := <-p.frameChan:
			p.clientsMu.RLock()
			for _, client := range p.clients {
				select {
				case client.frameCh <- frame:
				default:
					// Client is slow, drop frame for this client.
					p.droppedFrames.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

// addClient registers a new streaming client. Returns nil when the client
// limit is reached.
func (p *Publisher) addClient(id string) *clientStream {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()

	if len(p.clients) >= p.config.MaxClients {
		return nil
	}

	client := &clientStream{
		id:      id,
		frameCh: make(chan *pb.CanvasFrame, 10),
		doneCh:  make(chan struct{}),
	}
	p.clients[id] = client
	count := p.clientCount.Add(1)
	monitoring.Logf("[BevView] Client connected: %s (total: %d)", id, count)
	return client
}

// removeClient unregisters a streaming client.
func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	client, ok := p.clients[id]
	if ok {
		close(client.doneCh)
		delete(p.clients, id)
	}
	p.clientsMu.Unlock()

	if ok {
		count := p.clientCount.Add(-1)
		monitoring.Logf("[BevView] Client disconnected: %s (remaining: %d)", id, count)
	}
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		FrameCount:    p.frameCount.Load(),
		ClientCount:   p.clientCount.Load(),
		DroppedFrames: p.droppedFrames.Load(),
		Running:       p.running.Load(),
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	FrameCount    uint64
	ClientCount   int32
	DroppedFrames uint64
	Running       bool
}

// GRPCServer returns the underlying gRPC server for service registration.
func (p *Publisher) GRPCServer() *grpc.Server {
	return p.server
}

// FrameToProto converts a composite frame to its wire form. The pixel
// buffer is repacked tightly when the canvas carries row padding.
func FrameToProto(frame *bev.CompositeFrame) *pb.CanvasFrame {
	canvas := frame.Canvas
	pixels := canvas.Pix
	if canvas.Stride != canvas.Width*3 {
		pixels = canvas.Clone().Pix
	}
	return &pb.CanvasFrame{
		BundleId:       frame.BundleID,
		StampUnixNanos: frame.At.UnixNano(),
		Width:          int32(canvas.Width),
		Height:         int32(canvas.Height),
		PixelsBgr:      pixels,
		ViewsUsed:      int32(frame.ViewsUsed),
		ViewsIn:        int32(frame.ViewsIn),
	}
}
