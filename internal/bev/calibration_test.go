package bev

import (
	"errors"
	"testing"
)

func TestParseIntrinsics(t *testing.T) {
	k, err := ParseIntrinsics("front", []float64{530.4, 0, 320.5, 0, 530.1, 240.5, 0, 0, 1})
	if err != nil {
		t.Fatalf("ParseIntrinsics: %v", err)
	}
	if k.Fx() != 530.4 || k.Fy() != 530.1 {
		t.Errorf("focal lengths = (%g, %g)", k.Fx(), k.Fy())
	}
	if got := k.Mat().At(0, 2); got != 320.5 {
		t.Errorf("cx = %g, want 320.5", got)
	}
}

func TestParseIntrinsics_Malformed(t *testing.T) {
	cases := []struct {
		name string
		k    []float64
	}{
		{"too short", []float64{1, 2, 3}},
		{"too long", make([]float64, 12)},
		{"zero fx", []float64{0, 0, 320, 0, 530, 240, 0, 0, 1}},
		{"negative fy", []float64{530, 0, 320, 0, -530, 240, 0, 0, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseIntrinsics("front", tc.k)
			var malformed *MalformedCalibrationError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedCalibrationError, got %v", err)
			}
			if malformed.Camera != "front" {
				t.Errorf("error camera = %q", malformed.Camera)
			}
		})
	}
}

func TestParseIntrinsics_CopiesInput(t *testing.T) {
	raw := []float64{100, 0, 50, 0, 100, 50, 0, 0, 1}
	k, err := ParseIntrinsics("front", raw)
	if err != nil {
		t.Fatalf("ParseIntrinsics: %v", err)
	}
	raw[0] = -1
	if k.Fx() != 100 {
		t.Error("Intrinsics aliases caller-owned slice")
	}
}
