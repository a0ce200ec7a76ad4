package bev

import "math"

// Interpolation selects the sampling policy used by Warp.
type Interpolation int

const (
	// InterpBilinear blends the four neighbouring source pixels.
	InterpBilinear Interpolation = iota
	// InterpNearest snaps to the nearest source pixel.
	InterpNearest
)

// WarpOptions configures the perspective warp.
type WarpOptions struct {
	Interp Interpolation

	// HorizonFraction masks out source rows above this fraction of the
	// image height before sampling: rows above the line cannot contain
	// ground-plane content. 0.5 reproduces the conventional upper-half
	// mask; 0 disables masking entirely.
	HorizonFraction float64
}

// edgeEps absorbs the float noise matrix inversion leaves on the homography:
// comparisons against image bounds and the horizon line tolerate this much
// overshoot so pixels mapping exactly onto a boundary are still sampled.
const edgeEps = 1e-6

// Warp projects src onto a fresh OutputWidth x OutputHeight canvas using
// inverse mapping: every destination pixel is traced through the homography
// to a sub-pixel source location and sampled there. Destination pixels whose
// source location is outside the image bounds, above the horizon mask, or at
// infinity stay at the background value.
func Warp(src *Image, h Homography, opts WarpOptions, cfg CanvasConfig) *Image {
	out := NewImage(cfg.OutputWidth, cfg.OutputHeight)
	horizon := opts.HorizonFraction * float64(src.Height)

	for v := 0; v < out.Height; v++ {
		for u := 0; u < out.Width; u++ {
			x, y, ok := h.SourcePoint(float64(u), float64(v))
			if !ok {
				continue
			}
			x = clampEdge(x, float64(src.Width-1))
			y = clampEdge(y, float64(src.Height-1))
			if y < horizon-edgeEps {
				continue
			}
			if x < 0 || y < 0 || x > float64(src.Width-1) || y > float64(src.Height-1) {
				continue
			}
			var b, g, r uint8
			if opts.Interp == InterpNearest {
				b, g, r = src.BGR(int(x+0.5), int(y+0.5))
			} else {
				b, g, r = sampleBilinear(src, x, y)
			}
			out.SetBGR(u, v, b, g, r)
		}
	}
	return out
}

// clampEdge snaps a source coordinate within edgeEps outside [0, max] back
// onto the border; anything further out stays out of bounds.
func clampEdge(v, max float64) float64 {
	switch {
	case v < 0 && v >= -edgeEps:
		return 0
	case v > max && v <= max+edgeEps:
		return max
	}
	return v
}

// sampleBilinear blends the four pixels around (x, y). Neighbour indices are
// clamped so sampling exactly on the right or bottom edge stays in bounds.
func sampleBilinear(src *Image, x, y float64) (uint8, uint8, uint8) {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > src.Width-1 {
		x1 = src.Width - 1
	}
	if y1 > src.Height-1 {
		y1 = src.Height - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	b00, g00, r00 := src.BGR(x0, y0)
	b10, g10, r10 := src.BGR(x1, y0)
	b01, g01, r01 := src.BGR(x0, y1)
	b11, g11, r11 := src.BGR(x1, y1)

	lerp := func(c00, c10, c01, c11 uint8) uint8 {
		top := float64(c00)*(1-fx) + float64(c10)*fx
		bot := float64(c01)*(1-fx) + float64(c11)*fx
		return uint8(top*(1-fy) + bot*fy + 0.5)
	}
	return lerp(b00, b10, b01, b11), lerp(g00, g10, g01, g11), lerp(r00, r10, r01, r11)
}
