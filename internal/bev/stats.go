package bev

import "sync"

// CameraCounters holds per-camera view outcomes.
type CameraCounters struct {
	Warped             int64 `json:"warped"`
	DroppedPose        int64 `json:"dropped_pose"`
	DroppedCalibration int64 `json:"dropped_calibration"`
	DroppedSingular    int64 `json:"dropped_singular"`
}

// Stats tracks pipeline counters with thread-safe operations.
type Stats struct {
	mu              sync.Mutex
	bundlesIn       int64
	framesPublished int64
	emptyFrames     int64
	lastFrameMicros int64
	perCamera       map[string]*CameraCounters
}

// NewStats creates a Stats instance.
func NewStats() *Stats {
	return &Stats{perCamera: make(map[string]*CameraCounters)}
}

func (s *Stats) camera(name string) *CameraCounters {
	c := s.perCamera[name]
	if c == nil {
		c = &CameraCounters{}
		s.perCamera[name] = c
	}
	return c
}

// AddBundle counts a synchronized bundle entering the pipeline.
func (s *Stats) AddBundle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundlesIn++
}

// AddFrame counts a published canvas. empty marks an all-background canvas
// (every view was dropped) so downstream no-data frames stay observable.
func (s *Stats) AddFrame(micros int64, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesPublished++
	s.lastFrameMicros = micros
	if empty {
		s.emptyFrames++
	}
}

// AddWarped counts a successfully warped view for a camera.
func (s *Stats) AddWarped(camera string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera(camera).Warped++
}

// AddDropped counts a dropped view for a camera, attributed by cause.
func (s *Stats) AddDropped(camera string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.camera(camera)
	switch err.(type) {
	case *PoseResolutionError:
		c.DroppedPose++
	case *MalformedCalibrationError:
		c.DroppedCalibration++
	case *SingularTransformError:
		c.DroppedSingular++
	}
}

// StatsSnapshot is the JSON form served by the monitor API.
type StatsSnapshot struct {
	BundlesIn       int64                     `json:"bundles_in"`
	FramesPublished int64                     `json:"frames_published"`
	EmptyFrames     int64                     `json:"empty_frames"`
	LastFrameMicros int64                     `json:"last_frame_micros"`
	Cameras         map[string]CameraCounters `json:"cameras"`
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{
		BundlesIn:       s.bundlesIn,
		FramesPublished: s.framesPublished,
		EmptyFrames:     s.emptyFrames,
		LastFrameMicros: s.lastFrameMicros,
		Cameras:         make(map[string]CameraCounters, len(s.perCamera)),
	}
	for name, c := range s.perCamera {
		snap.Cameras[name] = *c
	}
	return snap
}
