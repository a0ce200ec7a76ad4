package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/bev.report/internal/bev"
)

// Camera is a stored camera calibration record.
type Camera struct {
	Name       string    `json:"name"`
	Frame      string    `json:"frame"`
	Intrinsics []float64 `json:"intrinsics"` // 9 row-major values
}

// UpsertCamera stores or replaces a camera calibration record.
func (db *DB) UpsertCamera(cam Camera) error {
	if len(cam.Intrinsics) != 9 {
		return fmt.Errorf("camera %s: intrinsics must have 9 values, got %d", cam.Name, len(cam.Intrinsics))
	}
	k, err := json.Marshal(cam.Intrinsics)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO cameras (name, frame, intrinsics) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET frame = excluded.frame, intrinsics = excluded.intrinsics`,
		cam.Name, cam.Frame, string(k),
	)
	return err
}

// Cameras returns all stored camera calibration records.
func (db *DB) Cameras() ([]Camera, error) {
	rows, err := db.Query(`SELECT name, frame, intrinsics FROM cameras ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cams []Camera
	for rows.Next() {
		var cam Camera
		var k string
		if err := rows.Scan(&cam.Name, &cam.Frame, &k); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(k), &cam.Intrinsics); err != nil {
			return nil, fmt.Errorf("camera %s: parse intrinsics: %w", cam.Name, err)
		}
		cams = append(cams, cam)
	}
	return cams, rows.Err()
}

// Camera returns a single calibration record by name.
func (db *DB) Camera(name string) (Camera, error) {
	var cam Camera
	var k string
	err := db.QueryRow(`SELECT name, frame, intrinsics FROM cameras WHERE name = ?`, name).
		Scan(&cam.Name, &cam.Frame, &k)
	if err != nil {
		return Camera{}, err
	}
	if err := json.Unmarshal([]byte(k), &cam.Intrinsics); err != nil {
		return Camera{}, fmt.Errorf("camera %s: parse intrinsics: %w", name, err)
	}
	return cam, nil
}

// StaticTransform is a stored camera mount transform.
type StaticTransform struct {
	TargetFrame string         `json:"target_frame"`
	SourceFrame string         `json:"source_frame"`
	Translation [3]float64     `json:"translation"`
	Rotation    bev.Quaternion `json:"rotation"`
}

// UpsertStaticTransform stores or replaces a mount transform.
func (db *DB) UpsertStaticTransform(t StaticTransform) error {
	_, err := db.Exec(
		`INSERT INTO static_transforms (target_frame, source_frame, tx, ty, tz, qx, qy, qz, qw)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(target_frame, source_frame) DO UPDATE SET
		   tx = excluded.tx, ty = excluded.ty, tz = excluded.tz,
		   qx = excluded.qx, qy = excluded.qy, qz = excluded.qz, qw = excluded.qw`,
		t.TargetFrame, t.SourceFrame,
		t.Translation[0], t.Translation[1], t.Translation[2],
		t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W,
	)
	return err
}

// StaticTransforms returns all stored mount transforms.
func (db *DB) StaticTransforms() ([]StaticTransform, error) {
	rows, err := db.Query(
		`SELECT target_frame, source_frame, tx, ty, tz, qx, qy, qz, qw
		 FROM static_transforms ORDER BY target_frame, source_frame`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transforms []StaticTransform
	for rows.Next() {
		var t StaticTransform
		if err := rows.Scan(&t.TargetFrame, &t.SourceFrame,
			&t.Translation[0], &t.Translation[1], &t.Translation[2],
			&t.Rotation.X, &t.Rotation.Y, &t.Rotation.Z, &t.Rotation.W); err != nil {
			return nil, err
		}
		transforms = append(transforms, t)
	}
	return transforms, rows.Err()
}

// SeedTransforms loads every stored mount transform into the buffer so pose
// lookups resolve from startup.
func (db *DB) SeedTransforms(buffer *bev.TFBuffer) (int, error) {
	transforms, err := db.StaticTransforms()
	if err != nil {
		return 0, err
	}
	for _, t := range transforms {
		buffer.SetStatic(t.TargetFrame, t.SourceFrame, t.Rotation, t.Translation)
	}
	return len(transforms), nil
}

// FrameRecord is one row of the publish log.
type FrameRecord struct {
	BundleID      string    `json:"bundle_id"`
	Stamp         time.Time `json:"stamp"`
	ViewsIn       int       `json:"views_in"`
	ViewsUsed     int       `json:"views_used"`
	ProcessMicros int64     `json:"process_micros"`
}

// RecordFrame appends a composite frame to the publish log.
func (db *DB) RecordFrame(frame *bev.CompositeFrame, processMicros int64) error {
	_, err := db.Exec(
		`INSERT INTO frame_log (bundle_id, stamp_ns, views_in, views_used, process_micros)
		 VALUES (?, ?, ?, ?, ?)`,
		frame.BundleID, frame.At.UnixNano(), frame.ViewsIn, frame.ViewsUsed, processMicros,
	)
	return err
}

// RecentFrames returns the newest publish-log rows, newest first.
func (db *DB) RecentFrames(limit int) ([]FrameRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT bundle_id, stamp_ns, views_in, views_used, process_micros
		 FROM frame_log ORDER BY stamp_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []FrameRecord
	for rows.Next() {
		var rec FrameRecord
		var stampNs int64
		if err := rows.Scan(&rec.BundleID, &stampNs, &rec.ViewsIn, &rec.ViewsUsed, &rec.ProcessMicros); err != nil {
			return nil, err
		}
		rec.Stamp = time.Unix(0, stampNs)
		records = append(records, rec)
	}
	return records, rows.Err()
}
