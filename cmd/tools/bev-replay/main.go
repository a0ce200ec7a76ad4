// Command bev-replay runs the composition pipeline offline over a pcap
// capture and writes each composited canvas as a PNG.
//
// It reads camera packets from the capture file, synchronizes and warps
// them exactly like the live service, and saves the canvases to an output
// directory instead of publishing them. Useful for regression-checking a
// calibration change against a recorded drive.
//
// Usage:
//
//	go run ./cmd/tools/bev-replay -config bev.json -db bev_data.db -pcap drive.pcap [flags]
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/bev.report/internal/bev"
	"github.com/banshee-data/bev.report/internal/bev/network"
	"github.com/banshee-data/bev.report/internal/db"
)

var (
	configPath = flag.String("config", "bev.json", "Path to the JSON service configuration")
	dbFile     = flag.String("db", "bev_data.db", "Path to the SQLite database file")
	pcapFile   = flag.String("pcap", "", "Path to the pcap capture to replay")
	udpPort    = flag.Int("udp-port", 5600, "UDP destination port of camera packets in the capture")
	outputDir  = flag.String("out", "canvases", "Directory to write canvas PNGs into")
	maxFrames  = flag.Int("max-frames", 0, "Stop after this many composited frames (0 = no limit)")
)

func main() {
	flag.Parse()

	if *pcapFile == "" {
		log.Fatal("-pcap is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	cfg, err := bev.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.MigrateUp(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	tf := bev.NewTFBuffer(100, 100*time.Millisecond)
	seeded, err := store.SeedTransforms(tf)
	if err != nil {
		log.Fatalf("Failed to seed static transforms: %v", err)
	}
	if seeded == 0 {
		log.Fatal("No static transforms in database; every view would drop. Run cmd/tools/bev-calibrate first.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frameCount := 0
	stats := bev.NewStats()
	pipeline := bev.NewPipeline(cfg.Pipeline(), tf, stats, nil)

	syncCfg := cfg.Sync()
	syncCfg.OnBundle = func(bundle *bev.FrameBundle) {
		frame := pipeline.ProcessBundle(bundle)
		name := filepath.Join(*outputDir, fmt.Sprintf("canvas_%06d_%s.png", frameCount, frame.BundleID))
		if err := writePNG(name, frame.Canvas); err != nil {
			log.Printf("Failed to write %s: %v", name, err)
			return
		}
		frameCount++
		if frameCount%50 == 0 {
			log.Printf("Composited %d frames", frameCount)
		}
		if *maxFrames > 0 && frameCount >= *maxFrames {
			cancel()
		}
	}
	synchronizer, err := bev.NewSynchronizer(syncCfg)
	if err != nil {
		log.Fatalf("Failed to start synchronizer: %v", err)
	}

	ingest := network.NewIngestStats()
	err = network.ReadPCAPFile(ctx, network.ReplayConfig{
		Path:    *pcapFile,
		UDPPort: *udpPort,
		Stats:   ingest,
		Sink:    synchronizer,
	})
	if err != nil && err != context.Canceled {
		log.Fatalf("Replay failed: %v", err)
	}
	synchronizer.Close()

	packets, bytes, decodeErrors := ingest.Snapshot()
	log.Printf("Replay done: %d packets (%d bytes, %d decode errors), %d canvases written to %s",
		packets, bytes, decodeErrors, frameCount, *outputDir)
}

func writePNG(path string, canvas *bev.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, canvas.ToRGBA())
}
