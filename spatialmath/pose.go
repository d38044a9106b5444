package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// R4AA is an axis-angle orientation: rotate Theta radians about the unit
// axis (RX, RY, RZ).
type R4AA struct {
	Theta      float64
	RX, RY, RZ float64
}

// Axis returns the rotation axis as a vector.
func (r R4AA) Axis() r3.Vector {
	return r3.Vector{X: r.RX, Y: r.RY, Z: r.RZ}
}

// Pose is a named position and orientation in world coordinates: a point
// plus an orientation, composable and invertible. ICP uses this as the
// interface for its two input placements.
type Pose interface {
	Point() r3.Vector
	Orientation() R4AA
	Transform() *Transform
}

type basicPose struct {
	tf *Transform
}

func (p *basicPose) Point() r3.Vector { return p.tf.Translation }

func (p *basicPose) Orientation() R4AA {
	return transformToAxisAngle(p.tf.Linear)
}

func (p *basicPose) Transform() *Transform { return p.tf }

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return &basicPose{tf: Identity()}
}

// NewPoseFromPoint returns a pose with zero orientation at the given point.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return &basicPose{tf: NewTranslation(pt)}
}

// NewPoseFromAxisAngle builds a pose from a point and an axis-angle
// orientation.
func NewPoseFromAxisAngle(pt r3.Vector, axis r3.Vector, angle float64) Pose {
	tf := NewRotationAxisAngle(axis, angle)
	tf.Translation = pt
	return &basicPose{tf: tf}
}

// NewPoseFromTransform wraps an arbitrary transform as a Pose (used when a
// similarity/affine solve needs to flow back through the Pose interface
// for composition with the next iteration).
func NewPoseFromTransform(tf *Transform) Pose {
	return &basicPose{tf: tf}
}

// Compose returns the pose equivalent to applying b first, then a.
func Compose(a, b Pose) Pose {
	return &basicPose{tf: a.Transform().Compose(b.Transform())}
}

// PoseInverse returns the inverse pose.
func PoseInverse(a Pose) Pose {
	return &basicPose{tf: a.Transform().Invert()}
}

func transformToAxisAngle(r [3][3]float64) R4AA {
	trace := r[0][0] + r[1][1] + r[2][2]
	cosTheta := (trace - 1) / 2
	if cosTheta > 1 {
		cosTheta = 1
	}
	if cosTheta < -1 {
		cosTheta = -1
	}
	theta := math.Acos(cosTheta)
	if theta < 1e-9 {
		return R4AA{Theta: 0, RX: 1, RY: 0, RZ: 0}
	}
	sinTheta := math.Sin(theta)
	if sinTheta < 1e-9 {
		return R4AA{Theta: theta, RX: 1, RY: 0, RZ: 0}
	}
	axis := r3.Vector{
		X: (r[2][1] - r[1][2]) / (2 * sinTheta),
		Y: (r[0][2] - r[2][0]) / (2 * sinTheta),
		Z: (r[1][0] - r[0][1]) / (2 * sinTheta),
	}
	return R4AA{Theta: theta, RX: axis.X, RY: axis.Y, RZ: axis.Z}
}
