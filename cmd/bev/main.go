// Command bev runs the bird's-eye-view composition service.
//
// It listens for camera image and calibration packets on UDP, synchronizes
// them into per-frame bundles, warps each view onto a shared ground-plane
// canvas, and publishes the composited canvases over gRPC. A monitoring
// HTTP server exposes pipeline counters, the frame log, and the latest
// canvas as PNG.
//
// Usage:
//
//	go run ./cmd/bev -config bev.json [flags]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/bev.report/internal/api"
	"github.com/banshee-data/bev.report/internal/bev"
	"github.com/banshee-data/bev.report/internal/bev/bevview"
	"github.com/banshee-data/bev.report/internal/bev/network"
	"github.com/banshee-data/bev.report/internal/db"
	"github.com/banshee-data/bev.report/internal/version"
)

var (
	configPath  = flag.String("config", "bev.json", "Path to the JSON service configuration")
	listen      = flag.String("listen", ":8080", "HTTP listen address for the monitoring API")
	udpPort     = flag.Int("udp-port", 5600, "UDP port to listen for camera packets")
	udpAddress  = flag.String("udp-addr", "", "UDP bind address (default: listen on all interfaces)")
	rcvBuf      = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes (default 4MB)")
	logInterval = flag.Int("log-interval", 2, "Statistics logging interval in seconds")
	grpcListen  = flag.String("grpc-listen", "localhost:50051", "gRPC listen address for canvas streaming")
	maxClients  = flag.Int("grpc-max-clients", 5, "Maximum concurrent gRPC streaming clients")
	dbFile      = flag.String("db", "bev_data.db", "Path to the SQLite database file")
	replayFile  = flag.String("replay", "", "Replay camera packets from a pcap file instead of listening on UDP")
	realtime    = flag.Bool("realtime", false, "Pace pcap replay by original capture timestamps")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}

	log.Printf("bev %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg, err := bev.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Loaded configuration: %d cameras, %dx%d canvas at %.1f px/m",
		len(cfg.Cameras()), cfg.OutputWidth, cfg.OutputHeight, cfg.PixelsPerMeter)

	store, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.MigrateUp(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Camera mounts come from the static_transforms table. A camera whose
	// mount is missing has its views dropped per frame, so an empty table
	// is worth a loud warning up front.
	tf := bev.NewTFBuffer(100, 100*time.Millisecond)
	seeded, err := store.SeedTransforms(tf)
	if err != nil {
		log.Fatalf("Failed to seed static transforms: %v", err)
	}
	if seeded == 0 {
		log.Printf("Warning: no static transforms in database; all views will drop until transforms arrive")
	} else {
		log.Printf("Seeded %d static transforms from database", seeded)
	}

	publisher := bevview.NewPublisher(bevview.Config{
		ListenAddr: *grpcListen,
		MaxClients: *maxClients,
	})
	if err := publisher.Start(); err != nil {
		log.Fatalf("Failed to start canvas publisher: %v", err)
	}
	bevview.RegisterService(publisher.GRPCServer(), bevview.NewServer(publisher))
	defer publisher.Stop()

	stats := bev.NewStats()
	ingest := network.NewIngestStats()
	pipeline := bev.NewPipeline(cfg.Pipeline(), tf, stats, nil)
	monitor := api.NewServer(pipeline, ingest, publisher, store, cfg)

	syncCfg := cfg.Sync()
	syncCfg.OnBundle = func(bundle *bev.FrameBundle) {
		start := time.Now()
		frame := pipeline.ProcessBundle(bundle)
		micros := time.Since(start).Microseconds()
		publisher.Publish(frame)
		monitor.OnFrame(frame)
		if err := store.RecordFrame(frame, micros); err != nil {
			log.Printf("Failed to record frame %s: %v", frame.BundleID, err)
		}
	}
	synchronizer, err := bev.NewSynchronizer(syncCfg)
	if err != nil {
		log.Fatalf("Failed to start synchronizer: %v", err)
	}
	defer synchronizer.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ingest routine: live UDP by default, pcap replay when -replay is set.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if *replayFile != "" {
			err := network.ReadPCAPFile(ctx, network.ReplayConfig{
				Path:     *replayFile,
				UDPPort:  *udpPort,
				Realtime: *realtime,
				Stats:    ingest,
				Sink:     synchronizer,
			})
			if err != nil && err != context.Canceled {
				log.Printf("Replay error: %v", err)
			}
			log.Print("Replay routine terminated")
			return
		}

		udpListenAddr := fmt.Sprintf(":%d", *udpPort)
		if *udpAddress != "" {
			udpListenAddr = fmt.Sprintf("%s:%d", *udpAddress, *udpPort)
		}
		listener := network.NewUDPListener(network.UDPListenerConfig{
			Address:     udpListenAddr,
			RcvBuf:      *rcvBuf,
			LogInterval: time.Duration(*logInterval) * time.Second,
			Stats:       ingest,
			Sink:        synchronizer,
		})
		if err := listener.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("UDP listener error: %v", err)
		}
		log.Print("UDP listener routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		apiMux := monitor.ServeMux()
		mux.Handle("/api/", apiMux)
		mux.Handle("/debug/charts/", apiMux)
		if err := store.AttachAdminRoutes(mux); err != nil {
			log.Printf("Failed to attach admin routes: %v", err)
		}

		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"status": "ok", "service": "bev", "version": "%s", "timestamp": "%s"}`,
				version.Version, time.Now().UTC().Format(time.RFC3339))
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("Starting HTTP server on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
