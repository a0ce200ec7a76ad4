package bev

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/bev.report/internal/monitoring"
	"github.com/banshee-data/bev.report/internal/timeutil"
)

// StampedImage is a camera image with its coordinate frame and capture time.
type StampedImage struct {
	Frame string // coordinate frame identifier of the camera
	At    time.Time
	Image *Image
}

// CameraInfo carries a camera's flattened 9-element row-major intrinsic
// matrix with its coordinate frame and capture time.
type CameraInfo struct {
	Frame string
	At    time.Time
	K     []float64
}

// ViewInput is one camera's synchronized (image, info) pair.
type ViewInput struct {
	Camera string // configured camera name, fixes composite precedence
	Image  StampedImage
	Info   CameraInfo
}

// FrameBundle is one synchronized set of views across all configured
// cameras, sharing a common logical timestamp.
type FrameBundle struct {
	ID    string
	At    time.Time
	Views []ViewInput
}

// SyncConfig configures the approximate-time synchronizer.
type SyncConfig struct {
	Cameras    []string           // configured camera order
	Slop       time.Duration      // max stamp spread within a bundle (default 10ms)
	QueueDepth int                // per-stream buffered messages (default 5)
	MaxAge     time.Duration      // queued messages older than this are evicted (default 1s)
	OnBundle   func(*FrameBundle) // invoked serially from a worker goroutine
	Clock      timeutil.Clock
}

// Synchronizer matches per-camera image and camera-info streams into
// FrameBundles: a bundle is emitted once every configured camera has an
// image and an info message whose timestamps all fall within the slop
// window. Queues are bounded; overflow and stale messages drop oldest-first.
type Synchronizer struct {
	cfg      SyncConfig
	mu       sync.Mutex
	images   map[string][]StampedImage // oldest first
	infos    map[string][]CameraInfo   // oldest first
	bundleCh chan *FrameBundle
	done     chan struct{}
	closed   bool
}

// NewSynchronizer validates the config, applies defaults, and starts the
// delivery worker.
func NewSynchronizer(cfg SyncConfig) (*Synchronizer, error) {
	if len(cfg.Cameras) == 0 {
		return nil, fmt.Errorf("synchronizer: no cameras configured")
	}
	if cfg.OnBundle == nil {
		return nil, fmt.Errorf("synchronizer: OnBundle callback is required")
	}
	if cfg.Slop <= 0 {
		cfg.Slop = 10 * time.Millisecond
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 5
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	s := &Synchronizer{
		cfg:      cfg,
		images:   make(map[string][]StampedImage, len(cfg.Cameras)),
		infos:    make(map[string][]CameraInfo, len(cfg.Cameras)),
		bundleCh: make(chan *FrameBundle, 4),
		done:     make(chan struct{}),
	}
	go s.deliverWorker()
	return s, nil
}

// deliverWorker serialises OnBundle invocations so the callback never runs
// concurrently with itself.
func (s *Synchronizer) deliverWorker() {
	defer close(s.done)
	for bundle := range s.bundleCh {
		s.cfg.OnBundle(bundle)
	}
}

// Close stops delivery and waits for the in-flight callback to finish.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.bundleCh)
	<-s.done
}

// PushImage enqueues an image for a camera and attempts a match.
func (s *Synchronizer) PushImage(camera string, img StampedImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	q := append(s.images[camera], img)
	if len(q) > s.cfg.QueueDepth {
		q = q[len(q)-s.cfg.QueueDepth:]
	}
	s.images[camera] = q
	s.evictStaleLocked()
	s.matchLocked()
}

// PushInfo enqueues a camera-info message for a camera and attempts a match.
func (s *Synchronizer) PushInfo(camera string, info CameraInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	q := append(s.infos[camera], info)
	if len(q) > s.cfg.QueueDepth {
		q = q[len(q)-s.cfg.QueueDepth:]
	}
	s.infos[camera] = q
	s.evictStaleLocked()
	s.matchLocked()
}

func (s *Synchronizer) evictStaleLocked() {
	cutoff := s.cfg.Clock.Now().Add(-s.cfg.MaxAge)
	for cam, q := range s.images {
		for len(q) > 0 && q[0].At.Before(cutoff) {
			q = q[1:]
		}
		s.images[cam] = q
	}
	for cam, q := range s.infos {
		for len(q) > 0 && q[0].At.Before(cutoff) {
			q = q[1:]
		}
		s.infos[cam] = q
	}
}

// matchLocked emits bundles while every stream can contribute a message
// within the slop window of the pivot (the latest of the per-stream oldest
// stamps). Matched and older messages are consumed.
func (s *Synchronizer) matchLocked() {
	for s.tryEmitLocked() {
	}
}

func (s *Synchronizer) tryEmitLocked() bool {
	var pivot time.Time
	for _, cam := range s.cfg.Cameras {
		if len(s.images[cam]) == 0 || len(s.infos[cam]) == 0 {
			return false
		}
		if t := s.images[cam][0].At; t.After(pivot) {
			pivot = t
		}
		if t := s.infos[cam][0].At; t.After(pivot) {
			pivot = t
		}
	}

	views := make([]ViewInput, len(s.cfg.Cameras))
	imgIdx := make([]int, len(s.cfg.Cameras))
	infoIdx := make([]int, len(s.cfg.Cameras))
	for i, cam := range s.cfg.Cameras {
		ii, img := nearestImage(s.images[cam], pivot)
		ji, info := nearestInfo(s.infos[cam], pivot)
		if absDuration(img.At.Sub(pivot)) > s.cfg.Slop || absDuration(info.At.Sub(pivot)) > s.cfg.Slop {
			// Streams have drifted apart; drop the oldest message so
			// the next arrival can re-align instead of stalling.
			s.dropOldestLocked(cam)
			return false
		}
		views[i] = ViewInput{Camera: cam, Image: img, Info: info}
		imgIdx[i], infoIdx[i] = ii, ji
	}

	for i, cam := range s.cfg.Cameras {
		s.images[cam] = s.images[cam][imgIdx[i]+1:]
		s.infos[cam] = s.infos[cam][infoIdx[i]+1:]
	}

	bundle := &FrameBundle{ID: uuid.NewString(), At: pivot, Views: views}
	select {
	case s.bundleCh <- bundle:
	default:
		monitoring.Logf("synchronizer: delivery queue full, dropping bundle %s", bundle.ID)
	}
	return true
}

// dropOldestLocked discards the single message farthest behind the pivot so
// queues converge instead of deadlocking on an unmatchable head.
func (s *Synchronizer) dropOldestLocked(camera string) {
	imgs, infos := s.images[camera], s.infos[camera]
	switch {
	case len(imgs) > 0 && (len(infos) == 0 || imgs[0].At.Before(infos[0].At)):
		s.images[camera] = imgs[1:]
	case len(infos) > 0:
		s.infos[camera] = infos[1:]
	}
}

func nearestImage(q []StampedImage, pivot time.Time) (int, StampedImage) {
	best := 0
	for i := 1; i < len(q); i++ {
		if absDuration(q[i].At.Sub(pivot)) < absDuration(q[best].At.Sub(pivot)) {
			best = i
		}
	}
	return best, q[best]
}

func nearestInfo(q []CameraInfo, pivot time.Time) (int, CameraInfo) {
	best := 0
	for i := 1; i < len(q); i++ {
		if absDuration(q[i].At.Sub(pivot)) < absDuration(q[best].At.Sub(pivot)) {
			best = i
		}
	}
	return best, q[best]
}
