package bev

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SingularEpsilon is the determinant magnitude below which the composed
// ground-to-image matrix is treated as singular.
const SingularEpsilon = 1e-12

// CanvasConfig describes the shared ground-plane output canvas.
//
// The canvas pixel at (u, v) maps to vehicle-frame ground coordinates
//
//	x = u/PixelsPerMeter - ShiftX
//	y = -(v/PixelsPerMeter) + ShiftY
//
// Image rows grow downward while ground y grows to the vehicle's left, hence
// the explicit y flip. Shifts are in meters; the default half-extent shifts
// put the vehicle origin at the canvas center.
type CanvasConfig struct {
	PixelsPerMeter float64
	OutputWidth    int
	OutputHeight   int
	ShiftX         float64 // meters
	ShiftY         float64 // meters
}

// DefaultShifts returns the config with half-extent origin shifts filled in
// where they are zero.
func (c CanvasConfig) DefaultShifts() CanvasConfig {
	if c.ShiftX == 0 {
		c.ShiftX = float64(c.OutputWidth) / c.PixelsPerMeter / 2
	}
	if c.ShiftY == 0 {
		c.ShiftY = float64(c.OutputHeight) / c.PixelsPerMeter / 2
	}
	return c
}

// Homography is the projective transform between a camera image plane and
// the ground-plane canvas. Both directions are computed at build time so
// singularity is detected exactly once, before any warp touches it.
type Homography struct {
	toCanvas [9]float64 // source image pixel -> canvas pixel (the IPM matrix)
	toImage  [9]float64 // canvas pixel -> source image pixel (sampling direction)
}

// BuildHomography composes the inverse-perspective-mapping homography for
// one camera from its intrinsic matrix K, its extrinsic pose E (camera frame
// relative to the vehicle body frame) and the canvas parameters.
//
// Convention: row-major matrices, column vectors, left multiplication. The
// canvas-to-image chain applies, right to left: pixel-to-metric scale, y
// flip, metric origin shift, z=0 ground-plane embedding, the top three rows
// of E, then K. The IPM matrix used for warping is its inverse.
func BuildHomography(camera string, k Intrinsics, e *mat.Dense, cfg CanvasConfig) (Homography, error) {
	ppm := cfg.PixelsPerMeter

	// Lift 2D homogeneous ground coordinates to a 3D homogeneous point on
	// the z=0 plane.
	embed := mat.NewDense(4, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 0,
		0, 0, 1,
	})
	shift := mat.NewDense(3, 3, []float64{
		1, 0, -cfg.ShiftX,
		0, 1, cfg.ShiftY,
		0, 0, 1,
	})
	flip := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, -1, 0,
		0, 0, 1,
	})
	scale := mat.NewDense(3, 3, []float64{
		1 / ppm, 0, 0,
		0, 1 / ppm, 0,
		0, 0, 1,
	})

	var ground2d, canvasToGround mat.Dense
	ground2d.Mul(flip, scale)
	ground2d.Mul(shift, &ground2d)
	canvasToGround.Mul(embed, &ground2d) // 4x3: canvas pixel -> ground point

	// Projection P = K · E[0:3,:] maps vehicle-frame points to image pixels.
	var proj, toImage mat.Dense
	proj.Mul(k.Mat(), e.Slice(0, 3, 0, 4))
	toImage.Mul(&proj, &canvasToGround)

	det := mat.Det(&toImage)
	if math.Abs(det) <= SingularEpsilon || math.IsNaN(det) {
		return Homography{}, &SingularTransformError{Camera: camera, Det: det}
	}

	var toCanvas mat.Dense
	if err := toCanvas.Inverse(&toImage); err != nil {
		return Homography{}, &SingularTransformError{Camera: camera, Det: det}
	}

	var h Homography
	copy(h.toImage[:], toImage.RawMatrix().Data)
	copy(h.toCanvas[:], toCanvas.RawMatrix().Data)
	return h, nil
}

// Apply projects a source-image pixel onto the canvas (the IPM direction).
// ok is false when the point projects to infinity.
func (h Homography) Apply(x, y float64) (u, v float64, ok bool) {
	return applyProjective(h.toCanvas, x, y)
}

// SourcePoint maps a canvas pixel to sub-pixel source-image coordinates, the
// direction the warp samples in. ok is false when the point projects to
// infinity.
func (h Homography) SourcePoint(u, v float64) (x, y float64, ok bool) {
	return applyProjective(h.toImage, u, v)
}

// Mat returns the IPM matrix (source image pixel to canvas pixel).
func (h Homography) Mat() *mat.Dense {
	vals := make([]float64, 9)
	copy(vals, h.toCanvas[:])
	return mat.NewDense(3, 3, vals)
}

// InverseMat returns the canvas-to-image sampling matrix.
func (h Homography) InverseMat() *mat.Dense {
	vals := make([]float64, 9)
	copy(vals, h.toImage[:])
	return mat.NewDense(3, 3, vals)
}

func applyProjective(m [9]float64, x, y float64) (float64, float64, bool) {
	w := m[6]*x + m[7]*y + m[8]
	if w == 0 {
		return 0, 0, false
	}
	return (m[0]*x + m[1]*y + m[2]) / w, (m[3]*x + m[4]*y + m[5]) / w, true
}
