package bev

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// RotationValidationTolerance is the tolerance used when checking that a
// rotation submatrix is a proper rotation (orthonormal, det = 1).
const RotationValidationTolerance = 1e-6

// Quaternion is a unit rotation quaternion in (x, y, z, w) order, the order
// transform lookups deliver it in.
type Quaternion struct {
	X, Y, Z, W float64
}

// Euler converts the quaternion to intrinsic roll, pitch, yaw angles
// (rotation about x, y, z) such that Rz(yaw)·Ry(pitch)·Rx(roll) reproduces
// the same rotation.
func (q Quaternion) Euler() (roll, pitch, yaw float64) {
	roll = math.Atan2(2*(q.W*q.X+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))

	// Clamp to keep Asin defined when |s| drifts past 1.
	s := 2 * (q.W*q.Y - q.Z*q.X)
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	pitch = math.Asin(s)

	yaw = math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
	return roll, pitch, yaw
}

// PoseStamped is a rigid transform between two named coordinate frames at a
// point in time, as delivered by a TransformSource lookup.
type PoseStamped struct {
	Target      string // frame the transform maps into (camera frame)
	Source      string // frame the transform maps from (vehicle body frame)
	At          time.Time
	Rotation    Quaternion
	Translation [3]float64
}

// EulerRotation builds the 3x3 rotation matrix Rz(yaw)·Ry(pitch)·Rx(roll).
// Matrices are row-major and multiply column vectors from the left.
func EulerRotation(roll, pitch, yaw float64) *mat.Dense {
	cr, sr := math.Cos(roll), math.Sin(roll)
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cy, sy := math.Cos(yaw), math.Sin(yaw)

	rz := mat.NewDense(3, 3, []float64{
		cy, -sy, 0,
		sy, cy, 0,
		0, 0, 1,
	})
	ry := mat.NewDense(3, 3, []float64{
		cp, 0, sp,
		0, 1, 0,
		-sp, 0, cp,
	})
	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, cr, -sr,
		0, sr, cr,
	})

	var ryx, r mat.Dense
	ryx.Mul(ry, rx)
	r.Mul(rz, &ryx)
	return &r
}

// Extrinsics builds the 4x4 homogeneous rigid transform E = [R|t; 0 0 0 1]
// from a stamped pose. The rotation goes through roll/pitch/yaw so the
// composition convention is explicit and matches EulerRotation.
func Extrinsics(p PoseStamped) *mat.Dense {
	roll, pitch, yaw := p.Rotation.Euler()
	r := EulerRotation(roll, pitch, yaw)

	e := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			e.Set(i, j, r.At(i, j))
		}
		e.Set(i, 3, p.Translation[i])
	}
	e.Set(3, 3, 1)
	return e
}

// IsRigidTransform checks that a 4x4 matrix is a proper rigid transform:
// orthonormal rotation submatrix with det = 1 and bottom row [0 0 0 1].
func IsRigidTransform(e *mat.Dense) bool {
	r, c := e.Dims()
	if r != 4 || c != 4 {
		return false
	}
	if e.At(3, 0) != 0 || e.At(3, 1) != 0 || e.At(3, 2) != 0 || math.Abs(e.At(3, 3)-1) > RotationValidationTolerance {
		return false
	}

	rot := e.Slice(0, 3, 0, 3)
	var rrt mat.Dense
	rrt.Mul(rot, rot.T())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(rrt.At(i, j)-want) > 1e-3 {
				return false
			}
		}
	}
	return math.Abs(mat.Det(rot)-1) <= 1e-3
}
