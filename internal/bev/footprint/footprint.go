// Package footprint computes and plots the ground-plane area each camera
// contributes to the composite canvas. It is used by offline tooling to
// sanity-check mounts and calibration before a live run.
package footprint

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/bev.report/internal/bev"
)

// CameraView bundles everything needed to trace one camera's footprint.
type CameraView struct {
	Name        string
	K           []float64 // flattened 3x3 row-major intrinsics
	Pose        bev.PoseStamped
	ImageWidth  int
	ImageHeight int
}

// Point is a ground-plane location in vehicle-frame meters.
type Point struct {
	X, Y float64
}

// Coverage samples the canvas on an evenly spaced grid and returns the
// ground-plane points the camera can actually see: canvas pixels whose
// homography-mapped source location falls inside the image bounds and below
// the horizon mask. Step is the sampling stride in canvas pixels; values
// below 1 are clamped to 1.
func Coverage(view CameraView, canvas bev.CanvasConfig, warp bev.WarpOptions, step int) ([]Point, error) {
	if view.ImageWidth <= 0 || view.ImageHeight <= 0 {
		return nil, fmt.Errorf("camera %s: image size must be positive, got %dx%d",
			view.Name, view.ImageWidth, view.ImageHeight)
	}
	if step < 1 {
		step = 1
	}
	canvas = canvas.DefaultShifts()

	k, err := bev.ParseIntrinsics(view.Name, view.K)
	if err != nil {
		return nil, err
	}
	h, err := bev.BuildHomography(view.Name, k, bev.Extrinsics(view.Pose), canvas)
	if err != nil {
		return nil, err
	}

	// Bounds carry the same edge tolerance the warp applies: inversion
	// noise must not drop pixels that map exactly onto the image border.
	const eps = 1e-6
	horizon := warp.HorizonFraction * float64(view.ImageHeight)
	var points []Point
	for v := 0; v < canvas.OutputHeight; v += step {
		for u := 0; u < canvas.OutputWidth; u += step {
			x, y, ok := h.SourcePoint(float64(u), float64(v))
			if !ok || y < horizon-eps {
				continue
			}
			if x < -eps || y < -eps || x > float64(view.ImageWidth-1)+eps || y > float64(view.ImageHeight-1)+eps {
				continue
			}
			points = append(points, Point{
				X: float64(u)/canvas.PixelsPerMeter - canvas.ShiftX,
				Y: -(float64(v) / canvas.PixelsPerMeter) + canvas.ShiftY,
			})
		}
	}
	return points, nil
}

// RenderPNG plots per-camera coverage as colored scatters over the canvas
// extent and saves the result to path.
func RenderPNG(path string, canvas bev.CanvasConfig, coverage map[string][]Point) error {
	canvas = canvas.DefaultShifts()

	p := plot.New()
	p.Title.Text = "Camera Ground Footprints"
	p.X.Label.Text = "x (m, forward)"
	p.Y.Label.Text = "y (m, left)"

	// Fix the axes to the full canvas extent so empty footprints still
	// render in context.
	p.X.Min = -canvas.ShiftX
	p.X.Max = float64(canvas.OutputWidth)/canvas.PixelsPerMeter - canvas.ShiftX
	p.Y.Min = -(float64(canvas.OutputHeight)/canvas.PixelsPerMeter - canvas.ShiftY)
	p.Y.Max = canvas.ShiftY

	// Sort camera names for a stable legend
	var names []string
	for name := range coverage {
		names = append(names, name)
	}
	sort.Strings(names)

	colors := generateColors(len(names))
	for i, name := range names {
		points := coverage[name]
		if len(points) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(points))
		for j, pt := range points {
			xys[j] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("camera %s: %w", name, err)
		}
		scatter.GlyphStyle.Color = colors[i]
		scatter.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(scatter)
		p.Legend.Add(name, scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("save footprint plot: %w", err)
	}
	return nil
}

// generateColors creates a palette of distinct colors for camera scatters
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
