// Command bev-calibrate records a camera's intrinsics and mount transform
// in the service database.
//
// The running service only trusts stored calibration: a camera without a
// static transform has its views dropped per frame. This tool is how
// calibration gets into the database in the first place.
//
// Usage:
//
//	go run ./cmd/tools/bev-calibrate -db bev_data.db \
//	    -camera front_cam -frame front_cam_optical \
//	    -k "530.4,0,320.5,0,530.1,240.5,0,0,1" \
//	    -vehicle-frame base_link \
//	    -translation "1.8,0,1.4" -rotation "0,0.17,0,0.98"
package main

import (
	"flag"
	"log"
	"strconv"
	"strings"

	"github.com/banshee-data/bev.report/internal/bev"
	"github.com/banshee-data/bev.report/internal/db"
)

var (
	dbFile       = flag.String("db", "bev_data.db", "Path to the SQLite database file")
	camera       = flag.String("camera", "", "Camera name (matches the configured image topic)")
	frame        = flag.String("frame", "", "Camera optical frame id")
	intrinsics   = flag.String("k", "", "Flattened 3x3 row-major intrinsics, 9 comma-separated values")
	vehicleFrame = flag.String("vehicle-frame", "base_link", "Vehicle body frame id")
	translation  = flag.String("translation", "0,0,0", "Mount translation in meters: tx,ty,tz")
	rotation     = flag.String("rotation", "0,0,0,1", "Mount rotation quaternion: qx,qy,qz,qw")
	list         = flag.Bool("list", false, "List stored cameras and transforms instead of writing")
)

func parseFloats(s string, want int) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if len(out) != want {
		return nil, strconv.ErrSyntax
	}
	return out, nil
}

func main() {
	flag.Parse()

	store, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.MigrateUp(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	if *list {
		listStored(store)
		return
	}

	if *camera == "" || *frame == "" {
		log.Fatal("-camera and -frame are required")
	}

	k, err := parseFloats(*intrinsics, 9)
	if err != nil {
		log.Fatalf("Invalid -k (want 9 comma-separated values): %v", err)
	}
	trans, err := parseFloats(*translation, 3)
	if err != nil {
		log.Fatalf("Invalid -translation (want tx,ty,tz): %v", err)
	}
	quat, err := parseFloats(*rotation, 4)
	if err != nil {
		log.Fatalf("Invalid -rotation (want qx,qy,qz,qw): %v", err)
	}

	if err := store.UpsertCamera(db.Camera{Name: *camera, Frame: *frame, Intrinsics: k}); err != nil {
		log.Fatalf("Failed to store camera: %v", err)
	}
	err = store.UpsertStaticTransform(db.StaticTransform{
		TargetFrame: *frame,
		SourceFrame: *vehicleFrame,
		Translation: [3]float64{trans[0], trans[1], trans[2]},
		Rotation:    bev.Quaternion{X: quat[0], Y: quat[1], Z: quat[2], W: quat[3]},
	})
	if err != nil {
		log.Fatalf("Failed to store mount transform: %v", err)
	}
	log.Printf("Recorded camera %s (frame %s) with mount %s<-%s", *camera, *frame, *frame, *vehicleFrame)
}

func listStored(store *db.DB) {
	cameras, err := store.Cameras()
	if err != nil {
		log.Fatalf("Failed to load cameras: %v", err)
	}
	transforms, err := store.StaticTransforms()
	if err != nil {
		log.Fatalf("Failed to load static transforms: %v", err)
	}

	log.Printf("%d cameras:", len(cameras))
	for _, cam := range cameras {
		log.Printf("  %s frame=%s k=%v", cam.Name, cam.Frame, cam.Intrinsics)
	}
	log.Printf("%d static transforms:", len(transforms))
	for _, t := range transforms {
		log.Printf("  %s<-%s t=%v q=(%g,%g,%g,%g)", t.TargetFrame, t.SourceFrame,
			t.Translation, t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W)
	}
}
