package network

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"net"
	"time"

	"github.com/banshee-data/bev.report/internal/bev"
	"github.com/banshee-data/bev.report/internal/monitoring"
)

// Sink receives decoded camera messages. *bev.Synchronizer satisfies it.
type Sink interface {
	PushImage(camera string, img bev.StampedImage)
	PushInfo(camera string, info bev.CameraInfo)
}

// PacketStatsInterface tracks ingest counters for the listener.
type PacketStatsInterface interface {
	AddPacket(bytes int)
	AddDecodeError()
	LogStats()
}

// noopStats is a safe default when no stats collector is provided.
type noopStats struct{}

func (noopStats) AddPacket(bytes int) {}
func (noopStats) AddDecodeError()     {}
func (noopStats) LogStats()           {}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Stats       PacketStatsInterface
	Sink        Sink
}

// UDPListener receives camera packets from UDP, decodes them, and pushes
// them into the synchronizer sink.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	conn        *net.UDPConn
	stats       PacketStatsInterface
	sink        Sink
}

// NewUDPListener creates a new UDP listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	stats := config.Stats
	if stats == nil {
		stats = noopStats{}
	}
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		stats:       stats,
		sink:        config.Sink,
	}
}

// Start begins listening for UDP packets and processing them. It blocks
// until the context is cancelled.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.conn = conn
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("Warning: failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}

	monitoring.Logf("UDP listener started on %s with receive buffer %d bytes", l.address, l.rcvBuf)

	go l.startStatsLogging(ctx)

	// Camera frames arrive as single datagrams; size for the UDP maximum.
	buffer := make([]byte, 65536)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("UDP listener stopping due to context cancellation")
			return ctx.Err()
		default:
			// Set read deadline to allow checking context cancellation.
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, remote, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				monitoring.Logf("UDP read error: %v", err)
				continue
			}

			if err := l.handlePacket(buffer[:n]); err != nil {
				l.stats.AddDecodeError()
				monitoring.Logf("Error handling packet from %v: %v", remote, err)
			}
		}
	}
}

// startStatsLogging periodically logs ingest statistics. An initial report
// fires shortly after startup to avoid a long silence on first run.
func (l *UDPListener) startStatsLogging(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		l.stats.LogStats()
	}

	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}

// handlePacket decodes a single datagram and forwards it to the sink.
func (l *UDPListener) handlePacket(data []byte) error {
	l.stats.AddPacket(len(data))

	pkt, err := DecodePacket(data)
	if err != nil {
		return err
	}
	return DeliverPacket(l.sink, pkt)
}

// DeliverPacket decodes a packet's payload and pushes it into the sink.
// Shared by the live listener and the pcap replay reader.
func DeliverPacket(sink Sink, pkt *Packet) error {
	switch pkt.Type {
	case PacketImage:
		img, err := jpeg.Decode(bytes.NewReader(pkt.JPEG))
		if err != nil {
			return fmt.Errorf("decode image from %s: %w", pkt.Camera, err)
		}
		sink.PushImage(pkt.Camera, bev.StampedImage{
			Frame: pkt.Frame,
			At:    pkt.At,
			Image: bev.FromImage(img),
		})
	case PacketInfo:
		sink.PushInfo(pkt.Camera, bev.CameraInfo{
			Frame: pkt.Frame,
			At:    pkt.At,
			K:     pkt.K,
		})
	default:
		return fmt.Errorf("%w: %d", ErrBadType, pkt.Type)
	}
	return nil
}

// Close closes the UDP listener and releases resources.
func (l *UDPListener) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}
