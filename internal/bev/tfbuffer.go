package bev

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// TransformSource resolves the rigid transform from a source frame into a
// target frame at a point in time. Implementations answer synchronously;
// callers that need a bounded wait wrap the call with a timeout and treat
// expiry as resolution failure.
type TransformSource interface {
	Lookup(target, source string, at time.Time) (PoseStamped, error)
}

type framePair struct {
	target, source string
}

// TFBuffer is a bounded, time-indexed buffer of stamped transforms between
// named coordinate frames. Static transforms (camera mounts) answer any
// lookup time; dynamic transforms answer with the nearest buffered pose
// within the tolerance window.
type TFBuffer struct {
	mu        sync.RWMutex
	static    map[framePair]PoseStamped
	dynamic   map[framePair][]PoseStamped // sorted by time, oldest first
	history   int
	tolerance time.Duration
}

// NewTFBuffer creates a buffer keeping up to history stamped poses per frame
// pair and answering lookups within tolerance of a buffered stamp.
func NewTFBuffer(history int, tolerance time.Duration) *TFBuffer {
	if history <= 0 {
		history = 100
	}
	return &TFBuffer{
		static:    make(map[framePair]PoseStamped),
		dynamic:   make(map[framePair][]PoseStamped),
		history:   history,
		tolerance: tolerance,
	}
}

// SetStatic registers a timeless transform for a frame pair, typically a
// rigidly mounted camera. It answers lookups at any time.
func (b *TFBuffer) SetStatic(target, source string, rot Quaternion, trans [3]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.static[framePair{target, source}] = PoseStamped{
		Target:      target,
		Source:      source,
		Rotation:    rot,
		Translation: trans,
	}
}

// Insert buffers a stamped transform, evicting the oldest entry once the
// per-pair history bound is reached.
func (b *TFBuffer) Insert(p PoseStamped) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := framePair{p.Target, p.Source}
	poses := append(b.dynamic[key], p)
	sort.Slice(poses, func(i, j int) bool { return poses[i].At.Before(poses[j].At) })
	if len(poses) > b.history {
		poses = poses[len(poses)-b.history:]
	}
	b.dynamic[key] = poses
}

// Lookup resolves the transform from source into target at the given time.
// A zero time means "latest available". Frame pairs with no usable pose
// return an error wrapping ErrTransformNotFound.
func (b *TFBuffer) Lookup(target, source string, at time.Time) (PoseStamped, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	key := framePair{target, source}
	if p, ok := b.static[key]; ok {
		p.At = at
		return p, nil
	}

	poses := b.dynamic[key]
	if len(poses) == 0 {
		return PoseStamped{}, fmt.Errorf("%s<-%s: %w", target, source, ErrTransformNotFound)
	}
	if at.IsZero() {
		return poses[len(poses)-1], nil
	}

	best := poses[0]
	bestDelta := absDuration(at.Sub(best.At))
	for _, p := range poses[1:] {
		if d := absDuration(at.Sub(p.At)); d < bestDelta {
			best, bestDelta = p, d
		}
	}
	if b.tolerance > 0 && bestDelta > b.tolerance {
		return PoseStamped{}, fmt.Errorf("%s<-%s at %s: nearest pose %s away: %w",
			target, source, at.Format(time.RFC3339Nano), bestDelta, ErrTransformNotFound)
	}
	return best, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
