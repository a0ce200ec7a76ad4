// Command footprint-plot renders the ground-plane footprint of every stored
// camera onto one PNG.
//
// Calibration (intrinsics) and mounts (static transforms) are read from the
// service database; the canvas geometry comes from the service config. The
// resulting plot shows which part of the composite canvas each camera can
// actually fill, which makes mount or calibration mistakes obvious before a
// live run.
//
// Usage:
//
//	go run ./cmd/tools/footprint-plot -config bev.json -db bev_data.db [flags]
package main

import (
	"flag"
	"log"
	"time"

	"github.com/banshee-data/bev.report/internal/bev"
	"github.com/banshee-data/bev.report/internal/bev/footprint"
	"github.com/banshee-data/bev.report/internal/db"
)

var (
	configPath = flag.String("config", "bev.json", "Path to the JSON service configuration")
	dbFile     = flag.String("db", "bev_data.db", "Path to the SQLite database file")
	output     = flag.String("out", "footprints.png", "Output PNG path")
	imgWidth   = flag.Int("img-width", 640, "Source image width in pixels")
	imgHeight  = flag.Int("img-height", 480, "Source image height in pixels")
	step       = flag.Int("step", 2, "Canvas sampling stride in pixels")
)

func main() {
	flag.Parse()

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

	cameras, err := store.Cameras()
	if err != nil {
		log.Fatalf("Failed to load cameras: %v", err)
	}
	if len(cameras) == 0 {
		log.Fatal("No cameras stored; record calibration first (see cmd/tools/bev-calibrate)")
	}

	tf := bev.NewTFBuffer(100, 100*time.Millisecond)
	seeded, err := store.SeedTransforms(tf)
	if err != nil {
		log.Fatalf("Failed to seed static transforms: %v", err)
	}
	log.Printf("Loaded %d cameras and %d static transforms", len(cameras), seeded)

	pipelineCfg := cfg.Pipeline()
	coverage := make(map[string][]footprint.Point, len(cameras))
	for _, cam := range cameras {
		pose, err := tf.Lookup(cam.Frame, cfg.VehicleFrame, time.Time{})
		if err != nil {
			log.Printf("Skipping %s: no mount transform: %v", cam.Name, err)
			continue
		}
		points, err := footprint.Coverage(footprint.CameraView{
			Name:        cam.Name,
			K:           cam.Intrinsics,
			Pose:        pose,
			ImageWidth:  *imgWidth,
			ImageHeight: *imgHeight,
		}, pipelineCfg.Canvas, pipelineCfg.Warp, *step)
		if err != nil {
			log.Printf("Skipping %s: %v", cam.Name, err)
			continue
		}
		log.Printf("Camera %s covers %d sampled canvas points", cam.Name, len(points))
		coverage[cam.Name] = points
	}

	if err := footprint.RenderPNG(*output, pipelineCfg.Canvas, coverage); err != nil {
		log.Fatalf("Failed to render footprint plot: %v", err)
	}
	log.Printf("Wrote %s", *output)
}
