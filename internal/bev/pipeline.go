package bev

import (
	"time"

	"github.com/banshee-data/bev.report/internal/monitoring"
)

// CompositeFrame is one published bird's-eye-view canvas.
type CompositeFrame struct {
	BundleID  string
	At        time.Time
	Canvas    *Image
	ViewsUsed int // views that survived to the composite
	ViewsIn   int // views in the synchronized bundle
}

// PipelineConfig holds the immutable configuration of a Pipeline. It is
// constructed once at startup and passed by reference; nothing in it mutates
// at runtime.
type PipelineConfig struct {
	Cameras       []string // configured camera order, fixes composite precedence
	VehicleFrame  string   // source frame for extrinsic lookups
	Canvas        CanvasConfig
	Warp          WarpOptions
	LookupTimeout time.Duration // bounded wait on pose resolution (default 50ms)
}

// Pipeline converts synchronized camera bundles into composited BEV
// canvases. Per-view work (pose resolution, homography, warp) runs in
// parallel; the composite consumes views in configured camera order so the
// output is deterministic regardless of completion order. Each bundle gets a
// freshly allocated canvas; no state is shared across frames.
type Pipeline struct {
	cfg      PipelineConfig
	tf       TransformSource
	stats    *Stats
	onCanvas func(*CompositeFrame)
}

// NewPipeline wires a pipeline to its transform source and publish callback.
// The callback may be nil when callers consume ProcessBundle return values
// directly (offline tools).
func NewPipeline(cfg PipelineConfig, tf TransformSource, stats *Stats, onCanvas func(*CompositeFrame)) *Pipeline {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 50 * time.Millisecond
	}
	cfg.Canvas = cfg.Canvas.DefaultShifts()
	if stats == nil {
		stats = NewStats()
	}
	return &Pipeline{cfg: cfg, tf: tf, stats: stats, onCanvas: onCanvas}
}

// Stats returns the pipeline's counters.
func (p *Pipeline) Stats() *Stats { return p.stats }

// ProcessBundle produces exactly one composited canvas for a synchronized
// bundle. Views that fail pose resolution, calibration parsing, homography
// construction, or that error anywhere else, are dropped individually; the
// remaining views still composite. A bundle with zero surviving views
// yields an all-background canvas rather than no canvas at all.
func (p *Pipeline) ProcessBundle(bundle *FrameBundle) *CompositeFrame {
	p.stats.AddBundle()
	start := time.Now()

	views := make([]*Image, len(bundle.Views))
	done := make(chan struct{})
	for i := range bundle.Views {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			warped, err := p.warpView(bundle.Views[i], bundle.At)
			if err != nil {
				p.stats.AddDropped(bundle.Views[i].Camera, err)
				monitoring.Logf("bev: frame %s: dropping view %s: %v", bundle.ID, bundle.Views[i].Camera, err)
				return
			}
			p.stats.AddWarped(bundle.Views[i].Camera)
			views[i] = warped
		}(i)
	}
	for range bundle.Views {
		<-done
	}

	used := 0
	for _, v := range views {
		if v != nil {
			used++
		}
	}

	frame := &CompositeFrame{
		BundleID:  bundle.ID,
		At:        bundle.At,
		Canvas:    Composite(p.cfg.Canvas.OutputWidth, p.cfg.Canvas.OutputHeight, views),
		ViewsUsed: used,
		ViewsIn:   len(bundle.Views),
	}
	p.stats.AddFrame(time.Since(start).Microseconds(), used == 0)
	if p.onCanvas != nil {
		p.onCanvas(frame)
	}
	return frame
}

// warpView runs the per-view leg of the pipeline: pose lookup, intrinsic
// parse, homography build, warp.
func (p *Pipeline) warpView(view ViewInput, at time.Time) (*Image, error) {
	pose, err := p.lookupPose(view.Info.Frame, at)
	if err != nil {
		return nil, err
	}
	k, err := ParseIntrinsics(view.Camera, view.Info.K)
	if err != nil {
		return nil, err
	}
	h, err := BuildHomography(view.Camera, k, Extrinsics(pose), p.cfg.Canvas)
	if err != nil {
		return nil, err
	}
	return Warp(view.Image.Image, h, p.cfg.Warp, p.cfg.Canvas), nil
}

// lookupPose resolves the camera extrinsic with a bounded wait. The
// transform source call runs in its own goroutine so a slow or blocked
// source surfaces as a PoseResolutionError instead of stalling the frame.
func (p *Pipeline) lookupPose(cameraFrame string, at time.Time) (PoseStamped, error) {
	type result struct {
		pose PoseStamped
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		pose, err := p.tf.Lookup(cameraFrame, p.cfg.VehicleFrame, at)
		ch <- result{pose, err}
	}()

	timer := time.NewTimer(p.cfg.LookupTimeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		if r.err != nil {
			return PoseStamped{}, &PoseResolutionError{Target: cameraFrame, Source: p.cfg.VehicleFrame, At: at, Cause: r.err}
		}
		return r.pose, nil
	case <-timer.C:
		return PoseStamped{}, &PoseResolutionError{Target: cameraFrame, Source: p.cfg.VehicleFrame, At: at, Cause: ErrLookupTimeout}
	}
}
