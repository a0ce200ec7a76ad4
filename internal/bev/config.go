package bev

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the static service configuration, loaded once at startup.
// ImageTopics and InfoTopics are index-aligned parallel arrays: entry i of
// each belongs to the same camera, and the array order fixes composite
// precedence. Durations are strings like "10ms".
type Config struct {
	ImageTopics  []string `json:"image_topics"`
	InfoTopics   []string `json:"info_topics"`
	VehicleFrame string   `json:"vehicle_frame"`

	PixelsPerMeter float64 `json:"px_per_m"`
	OutputWidth    int     `json:"output_width"`
	OutputHeight   int     `json:"output_height"`

	// Optional overrides; zero values take documented defaults.
	ShiftX          *float64 `json:"shift_x,omitempty"` // meters
	ShiftY          *float64 `json:"shift_y,omitempty"` // meters
	HorizonFraction *float64 `json:"horizon_fraction,omitempty"`

	SyncSlop      string `json:"sync_slop,omitempty"`
	SyncQueue     int    `json:"sync_queue,omitempty"`
	LookupTimeout string `json:"lookup_timeout,omitempty"`
}

// LoadConfig reads and validates a JSON config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration for startup-fatal problems. These are
// detected here, once, never per frame.
func (c *Config) Validate() error {
	if len(c.ImageTopics) == 0 {
		return fmt.Errorf("no image topics configured")
	}
	if len(c.ImageTopics) != len(c.InfoTopics) {
		return fmt.Errorf("image_topics (%d) and info_topics (%d) must be parallel arrays of the same length",
			len(c.ImageTopics), len(c.InfoTopics))
	}
	if c.VehicleFrame == "" {
		return fmt.Errorf("vehicle_frame is required")
	}
	if c.PixelsPerMeter <= 0 {
		return fmt.Errorf("px_per_m must be positive, got %g", c.PixelsPerMeter)
	}
	if c.OutputWidth <= 0 || c.OutputHeight <= 0 {
		return fmt.Errorf("output size must be positive, got %dx%d", c.OutputWidth, c.OutputHeight)
	}
	if c.HorizonFraction != nil && (*c.HorizonFraction < 0 || *c.HorizonFraction >= 1) {
		return fmt.Errorf("horizon_fraction must be in [0, 1), got %g", *c.HorizonFraction)
	}
	if _, err := parseDurationOr(c.SyncSlop, 0); err != nil {
		return fmt.Errorf("sync_slop: %w", err)
	}
	if _, err := parseDurationOr(c.LookupTimeout, 0); err != nil {
		return fmt.Errorf("lookup_timeout: %w", err)
	}
	return nil
}

// Cameras returns the configured camera names, derived from the image topic
// list, in composite-precedence order.
func (c *Config) Cameras() []string {
	out := make([]string, len(c.ImageTopics))
	copy(out, c.ImageTopics)
	return out
}

// Canvas builds the canvas configuration with default shifts applied.
func (c *Config) Canvas() CanvasConfig {
	canvas := CanvasConfig{
		PixelsPerMeter: c.PixelsPerMeter,
		OutputWidth:    c.OutputWidth,
		OutputHeight:   c.OutputHeight,
	}
	if c.ShiftX != nil {
		canvas.ShiftX = *c.ShiftX
	}
	if c.ShiftY != nil {
		canvas.ShiftY = *c.ShiftY
	}
	return canvas.DefaultShifts()
}

// Pipeline builds the pipeline configuration.
func (c *Config) Pipeline() PipelineConfig {
	warp := WarpOptions{Interp: InterpBilinear, HorizonFraction: 0.5}
	if c.HorizonFraction != nil {
		warp.HorizonFraction = *c.HorizonFraction
	}
	timeout, _ := parseDurationOr(c.LookupTimeout, 50*time.Millisecond)
	return PipelineConfig{
		Cameras:       c.Cameras(),
		VehicleFrame:  c.VehicleFrame,
		Canvas:        c.Canvas(),
		Warp:          warp,
		LookupTimeout: timeout,
	}
}

// Sync builds the synchronizer configuration (callback and clock are filled
// in by the caller).
func (c *Config) Sync() SyncConfig {
	slop, _ := parseDurationOr(c.SyncSlop, 10*time.Millisecond)
	return SyncConfig{
		Cameras:    c.Cameras(),
		Slop:       slop,
		QueueDepth: c.SyncQueue,
	}
}

func parseDurationOr(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}
