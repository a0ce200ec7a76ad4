package db

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/bev.report/internal/bev"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	return db
}

func TestMigrateUpAndVersion(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if dirty {
		t.Error("database dirty after MigrateUp")
	}
	if version == 0 {
		t.Error("version = 0 after MigrateUp")
	}

	// Up again is a no-op.
	if err := db.MigrateUp(); err != nil {
		t.Errorf("second MigrateUp: %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := newTestDB(t)
	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}

	// cameras table is gone after rollback.
	if _, err := db.Cameras(); err == nil {
		t.Error("expected query error after rollback")
	}
}

func TestCameraRoundTrip(t *testing.T) {
	db := newTestDB(t)

	cam := Camera{
		Name:       "front",
		Frame:      "front_optical",
		Intrinsics: []float64{500, 0, 320, 0, 500, 240, 0, 0, 1},
	}
	if err := db.UpsertCamera(cam); err != nil {
		t.Fatalf("UpsertCamera: %v", err)
	}

	got, err := db.Camera("front")
	if err != nil {
		t.Fatalf("Camera: %v", err)
	}
	if got.Frame != "front_optical" || got.Intrinsics[0] != 500 {
		t.Errorf("got %+v", got)
	}

	// Upsert replaces.
	cam.Frame = "front_optical_v2"
	if err := db.UpsertCamera(cam); err != nil {
		t.Fatalf("UpsertCamera update: %v", err)
	}
	cams, err := db.Cameras()
	if err != nil {
		t.Fatalf("Cameras: %v", err)
	}
	if len(cams) != 1 || cams[0].Frame != "front_optical_v2" {
		t.Errorf("cameras = %+v", cams)
	}
}

func TestUpsertCameraRejectsBadIntrinsics(t *testing.T) {
	db := newTestDB(t)
	if err := db.UpsertCamera(Camera{Name: "x", Frame: "f", Intrinsics: []float64{1, 2}}); err == nil {
		t.Error("expected error for short intrinsics")
	}
}

func TestStaticTransformSeed(t *testing.T) {
	db := newTestDB(t)

	mount := StaticTransform{
		TargetFrame: "front_optical",
		SourceFrame: "base_link",
		Translation: [3]float64{0, 0, 1},
		Rotation:    bev.Quaternion{X: 1},
	}
	if err := db.UpsertStaticTransform(mount); err != nil {
		t.Fatalf("UpsertStaticTransform: %v", err)
	}

	buffer := bev.NewTFBuffer(10, 0)
	n, err := db.SeedTransforms(buffer)
	if err != nil {
		t.Fatalf("SeedTransforms: %v", err)
	}
	if n != 1 {
		t.Errorf("seeded %d transforms, want 1", n)
	}

	pose, err := buffer.Lookup("front_optical", "base_link", time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("Lookup after seed: %v", err)
	}
	if pose.Translation != [3]float64{0, 0, 1} || pose.Rotation.X != 1 {
		t.Errorf("pose = %+v", pose)
	}
}

func TestFrameLog(t *testing.T) {
	db := newTestDB(t)

	base := time.Unix(1700000000, 0)
	for i := 0; i < 3; i++ {
		frame := &bev.CompositeFrame{
			BundleID:  []string{"a", "b", "c"}[i],
			At:        base.Add(time.Duration(i) * time.Second),
			Canvas:    bev.NewImage(2, 2),
			ViewsUsed: i,
			ViewsIn:   3,
		}
		if err := db.RecordFrame(frame, int64(1000+i)); err != nil {
			t.Fatalf("RecordFrame: %v", err)
		}
	}

	records, err := db.RecentFrames(2)
	if err != nil {
		t.Fatalf("RecentFrames: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].BundleID != "c" || records[1].BundleID != "b" {
		t.Errorf("order = %s, %s; want c, b", records[0].BundleID, records[1].BundleID)
	}
	if !records[0].Stamp.Equal(base.Add(2 * time.Second)) {
		t.Errorf("stamp = %v", records[0].Stamp)
	}
}

func TestAttachAdminRoutes(t *testing.T) {
	db := newTestDB(t)
	mux := http.NewServeMux()
	if err := db.AttachAdminRoutes(mux); err != nil {
		t.Fatalf("AttachAdminRoutes: %v", err)
	}
}
