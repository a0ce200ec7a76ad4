package bev

import (
	"gonum.org/v1/gonum/mat"
)

// Intrinsics is the 3x3 camera projection matrix K. It is parsed from the
// flattened row-major form carried by camera-info messages:
//
//	fx  0 cx
//	 0 fy cy
//	 0  0  1
type Intrinsics struct {
	m *mat.Dense
}

// ParseIntrinsics validates and reshapes a flattened 9-element row-major
// intrinsic matrix. It fails with MalformedCalibrationError when the element
// count is wrong or a focal length is not strictly positive.
func ParseIntrinsics(camera string, k []float64) (Intrinsics, error) {
	if len(k) != 9 {
		return Intrinsics{}, &MalformedCalibrationError{Camera: camera, Reason: "intrinsic matrix must have 9 elements"}
	}
	if k[0] <= 0 || k[4] <= 0 {
		return Intrinsics{}, &MalformedCalibrationError{Camera: camera, Reason: "focal lengths must be positive"}
	}
	vals := make([]float64, 9)
	copy(vals, k)
	return Intrinsics{m: mat.NewDense(3, 3, vals)}, nil
}

// Mat returns the matrix form of K.
func (k Intrinsics) Mat() *mat.Dense { return k.m }

// Fx returns the horizontal focal length in pixels.
func (k Intrinsics) Fx() float64 { return k.m.At(0, 0) }

// Fy returns the vertical focal length in pixels.
func (k Intrinsics) Fy() float64 { return k.m.At(1, 1) }
