package network

import (
	"sync"

	"github.com/banshee-data/bev.report/internal/monitoring"
)

// IngestStats counts datagrams seen by the listener. Safe for concurrent use.
type IngestStats struct {
	mu           sync.Mutex
	packets      int64
	bytes        int64
	decodeErrors int64

	// values at the previous LogStats call, for interval rates
	lastPackets int64
	lastBytes   int64
}

func NewIngestStats() *IngestStats {
	return &IngestStats{}
}

func (s *IngestStats) AddPacket(n int) {
	s.mu.Lock()
	s.packets++
	s.bytes += int64(n)
	s.mu.Unlock()
}

func (s *IngestStats) AddDecodeError() {
	s.mu.Lock()
	s.decodeErrors++
	s.mu.Unlock()
}

// LogStats reports totals and the delta since the previous report.
func (s *IngestStats) LogStats() {
	s.mu.Lock()
	intervalPackets := s.packets - s.lastPackets
	intervalBytes := s.bytes - s.lastBytes
	s.lastPackets = s.packets
	s.lastBytes = s.bytes
	packets, bytes, decodeErrors := s.packets, s.bytes, s.decodeErrors
	s.mu.Unlock()

	monitoring.Logf("Ingest stats: %d packets (%d bytes) total, %d/%d this interval, %d decode errors",
		packets, bytes, intervalPackets, intervalBytes, decodeErrors)
}

// Snapshot returns current totals for the monitoring API.
func (s *IngestStats) Snapshot() (packets, bytes, decodeErrors int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packets, s.bytes, s.decodeErrors
}
