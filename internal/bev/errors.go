package bev

import (
	"errors"
	"fmt"
	"time"
)

// ErrTransformNotFound is returned by a TransformSource when no pose for the
// requested frame pair is buffered near the requested time.
var ErrTransformNotFound = errors.New("transform not found")

// ErrLookupTimeout marks a transform lookup that exceeded its bounded wait.
var ErrLookupTimeout = errors.New("transform lookup timed out")

// SingularTransformError reports that the composed ground-to-image matrix for
// a camera is not invertible, typically a camera pointed parallel to the
// ground plane or a degenerate intrinsic matrix. The view is skipped.
type SingularTransformError struct {
	Camera string
	Det    float64
}

func (e *SingularTransformError) Error() string {
	return fmt.Sprintf("camera %q: ground-to-image transform is singular (det=%g)", e.Camera, e.Det)
}

// PoseResolutionError reports that the extrinsic pose for a camera could not
// be resolved from the transform source, either because the frame pair is
// unknown, the timestamp is outside the buffered history, or the lookup
// timed out. The view is skipped.
type PoseResolutionError struct {
	Target string
	Source string
	At     time.Time
	Cause  error
}

func (e *PoseResolutionError) Error() string {
	return fmt.Sprintf("pose %s<-%s at %s: %v", e.Target, e.Source, e.At.Format(time.RFC3339Nano), e.Cause)
}

func (e *PoseResolutionError) Unwrap() error { return e.Cause }

// MalformedCalibrationError reports an intrinsic matrix that cannot be used:
// wrong element count or a non-positive focal length. The view is skipped.
type MalformedCalibrationError struct {
	Camera string
	Reason string
}

func (e *MalformedCalibrationError) Error() string {
	return fmt.Sprintf("camera %q: malformed calibration: %s", e.Camera, e.Reason)
}
