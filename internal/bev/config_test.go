package bev

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		ImageTopics:    []string{"/camera/front/image", "/camera/rear/image"},
		InfoTopics:     []string{"/camera/front/info", "/camera/rear/info"},
		VehicleFrame:   "base_link",
		PixelsPerMeter: 20,
		OutputWidth:    400,
		OutputHeight:   300,
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestConfig_ValidateFatalAtStartup(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"mismatched arrays", func(c *Config) { c.InfoTopics = c.InfoTopics[:1] }, "parallel arrays"},
		{"no cameras", func(c *Config) { c.ImageTopics = nil }, "no image topics"},
		{"missing vehicle frame", func(c *Config) { c.VehicleFrame = "" }, "vehicle_frame"},
		{"bad resolution", func(c *Config) { c.OutputWidth = 0 }, "output size"},
		{"bad scale", func(c *Config) { c.PixelsPerMeter = -5 }, "px_per_m"},
		{"bad slop", func(c *Config) { c.SyncSlop = "-3ms" }, "sync_slop"},
		{"bad horizon", func(c *Config) { f := 1.5; c.HorizonFraction = &f }, "horizon_fraction"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestConfig_PipelineDefaults(t *testing.T) {
	cfg := validConfig()
	p := cfg.Pipeline()

	if p.Warp.HorizonFraction != 0.5 {
		t.Errorf("default horizon fraction = %g, want 0.5", p.Warp.HorizonFraction)
	}
	if p.LookupTimeout != 50*time.Millisecond {
		t.Errorf("default lookup timeout = %s", p.LookupTimeout)
	}
	// Canvas shifts default to half extent in meters.
	if p.Canvas.ShiftX != 10 || p.Canvas.ShiftY != 7.5 {
		t.Errorf("default shifts = (%g, %g), want (10, 7.5)", p.Canvas.ShiftX, p.Canvas.ShiftY)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bev.json")
	content := `{
		"image_topics": ["/camera/front/image"],
		"info_topics": ["/camera/front/info"],
		"vehicle_frame": "base_link",
		"px_per_m": 20,
		"output_width": 400,
		"output_height": 300,
		"sync_slop": "15ms",
		"horizon_fraction": 0.4
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.Sync().Slop; got != 15*time.Millisecond {
		t.Errorf("slop = %s, want 15ms", got)
	}
	if got := cfg.Pipeline().Warp.HorizonFraction; got != 0.4 {
		t.Errorf("horizon = %g, want 0.4", got)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should error")
	}
}
