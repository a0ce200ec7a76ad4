package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/bev.report/internal/monitoring"
)

// ReplayConfig controls pcap replay.
type ReplayConfig struct {
	Path     string
	UDPPort  int  // only datagrams to this destination port are replayed
	Realtime bool // pace delivery by capture timestamps instead of replaying as fast as possible
	Stats    PacketStatsInterface
	Sink     Sink
}

// ReadPCAPFile replays recorded camera packets from a pcap file into the
// sink, reproducing the live UDP ingest path offline.
func ReadPCAPFile(ctx context.Context, cfg ReplayConfig) error {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return fmt.Errorf("open pcap file: %w", err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("read pcap header %s: %w", cfg.Path, err)
	}

	stats := cfg.Stats
	if stats == nil {
		stats = noopStats{}
	}

	packetCount := 0
	delivered := 0
	startTime := time.Now()
	var prevCapture time.Time

	for {
		if ctx.Err() != nil {
			monitoring.Logf("PCAP reader stopping due to context cancellation (processed %d packets)", packetCount)
			return ctx.Err()
		}

		data, ci, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			elapsed := time.Since(startTime)
			monitoring.Logf("PCAP replay complete: %d packets read, %d delivered in %v", packetCount, delivered, elapsed)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read pcap packet: %w", err)
		}
		packetCount++

		payload, ok := udpPayload(data, r.LinkType(), cfg.UDPPort)
		if !ok {
			continue
		}

		if cfg.Realtime {
			if !prevCapture.IsZero() {
				if gap := ci.Timestamp.Sub(prevCapture); gap > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(gap):
					}
				}
			}
			prevCapture = ci.Timestamp
		}

		stats.AddPacket(len(payload))
		pkt, err := DecodePacket(payload)
		if err != nil {
			stats.AddDecodeError()
			monitoring.Logf("Error decoding pcap packet %d: %v", packetCount, err)
			continue
		}
		if err := DeliverPacket(cfg.Sink, pkt); err != nil {
			stats.AddDecodeError()
			monitoring.Logf("Error handling pcap packet %d: %v", packetCount, err)
			continue
		}
		delivered++

		if packetCount%10000 == 0 {
			elapsed := time.Since(startTime)
			monitoring.Logf("PCAP progress: %d packets processed in %v (%.0f pkt/s)",
				packetCount, elapsed, float64(packetCount)/elapsed.Seconds())
		}
	}
}

// udpPayload extracts a UDP payload addressed to the given port, or reports
// false for anything else in the capture.
func udpPayload(data []byte, linkType layers.LinkType, port int) ([]byte, bool) {
	packet := gopacket.NewPacket(data, linkType, gopacket.Default)
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil, false
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok {
		return nil, false
	}
	if port > 0 && int(udp.DstPort) != port {
		return nil, false
	}
	if len(udp.Payload) == 0 {
		return nil, false
	}
	return udp.Payload, true
}
