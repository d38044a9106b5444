// Package spatialmath provides the rigid/affine transform, pose, and small
// symmetric eigendecomposition primitives that picp's ICP core treats as an
// external collaborator. Poses and transforms are backed by a plain 4x4
// affine matrix rather than a dual-quaternion representation, since ICP's
// aligner already produces and consumes 4x4s directly.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Transform is a 4x4 affine transform: world' = R*world + T, with an
// optional non-uniform linear part (for the affine transform class).
// Row-major.
type Transform struct {
	// Linear is the 3x3 upper-left block (rotation, scale, or general
	// affine linear map depending on xform type).
	Linear [3][3]float64
	// Translation is the rightmost column (upper 3 rows).
	Translation r3.Vector
}

// Identity returns the identity transform.
func Identity() *Transform {
	return &Transform{Linear: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// NewTranslation returns a pure-translation transform.
func NewTranslation(t r3.Vector) *Transform {
	tf := Identity()
	tf.Translation = t
	return tf
}

// NewScale returns a uniform-scale transform about the origin.
func NewScale(s float64) *Transform {
	return &Transform{Linear: [3][3]float64{{s, 0, 0}, {0, s, 0}, {0, 0, s}}}
}

// NewFromLinear builds a transform from an explicit 3x3 linear part and a
// translation.
func NewFromLinear(linear [3][3]float64, t r3.Vector) *Transform {
	return &Transform{Linear: linear, Translation: t}
}

// NewRotationAxisAngle builds a pure-rotation transform about the origin
// from a unit axis and an angle in radians (Rodrigues' formula).
func NewRotationAxisAngle(axis r3.Vector, angle float64) *Transform {
	if axis.Norm() < 1e-12 {
		return Identity()
	}
	axis = axis.Normalize()
	s, c := math.Sin(angle), math.Cos(angle)
	t := 1 - c
	x, y, z := axis.X, axis.Y, axis.Z

	var linear [3][3]float64
	linear[0][0] = t*x*x + c
	linear[0][1] = t*x*y - s*z
	linear[0][2] = t*x*z + s*y
	linear[1][0] = t*x*y + s*z
	linear[1][1] = t*y*y + c
	linear[1][2] = t*y*z - s*x
	linear[2][0] = t*x*z - s*y
	linear[2][1] = t*y*z + s*x
	linear[2][2] = t*z*z + c
	return &Transform{Linear: linear}
}

// Apply transforms a point by the full affine map.
func (tf *Transform) Apply(p r3.Vector) r3.Vector {
	l := tf.Linear
	return r3.Vector{
		X: l[0][0]*p.X + l[0][1]*p.Y + l[0][2]*p.Z + tf.Translation.X,
		Y: l[1][0]*p.X + l[1][1]*p.Y + l[1][2]*p.Z + tf.Translation.Y,
		Z: l[2][0]*p.X + l[2][1]*p.Y + l[2][2]*p.Z + tf.Translation.Z,
	}
}

// NormalTransform returns the companion transform for normals: the
// inverse-transpose of the 3x3 linear block. For a pure rotation
// (orthogonal linear block) this is the block itself.
func (tf *Transform) NormalTransform() [3][3]float64 {
	inv, ok := invert3x3(tf.Linear)
	if !ok {
		return tf.Linear
	}
	return transpose3x3(inv)
}

// ApplyNormal transforms a normal vector using NormalTransform and
// renormalizes it to unit length.
func (tf *Transform) ApplyNormal(n r3.Vector) r3.Vector {
	l := tf.NormalTransform()
	out := r3.Vector{
		X: l[0][0]*n.X + l[0][1]*n.Y + l[0][2]*n.Z,
		Y: l[1][0]*n.X + l[1][1]*n.Y + l[1][2]*n.Z,
		Z: l[2][0]*n.X + l[2][1]*n.Y + l[2][2]*n.Z,
	}
	if norm := out.Norm(); norm > 1e-12 {
		return out.Mul(1 / norm)
	}
	return out
}

// Compose returns tf*other, i.e. applying other first then tf (standard
// matrix-composition order).
func (tf *Transform) Compose(other *Transform) *Transform {
	var linear [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += tf.Linear[i][k] * other.Linear[k][j]
			}
			linear[i][j] = sum
		}
	}
	return &Transform{Linear: linear, Translation: tf.Apply(other.Translation)}
}

// Invert returns the inverse transform. If the linear part is singular it
// returns the identity transform instead.
func (tf *Transform) Invert() *Transform {
	inv, ok := invert3x3(tf.Linear)
	if !ok {
		return Identity()
	}
	t := r3.Vector{
		X: -(inv[0][0]*tf.Translation.X + inv[0][1]*tf.Translation.Y + inv[0][2]*tf.Translation.Z),
		Y: -(inv[1][0]*tf.Translation.X + inv[1][1]*tf.Translation.Y + inv[1][2]*tf.Translation.Z),
		Z: -(inv[2][0]*tf.Translation.X + inv[2][1]*tf.Translation.Y + inv[2][2]*tf.Translation.Z),
	}
	return &Transform{Linear: inv, Translation: t}
}

// Orthogonalize projects the linear block back onto SO(3) via a one-step
// Gram-Schmidt-like polar correction, used after each RIGID-mode ICP
// iteration to remove the drift repeated 4x4 composition accumulates:
// determinant +1, orthogonal to within 1e-4.
func (tf *Transform) Orthogonalize() {
	r := tf.Linear
	col := func(j int) r3.Vector { return r3.Vector{X: r[0][j], Y: r[1][j], Z: r[2][j]} }
	setCol := func(j int, v r3.Vector) { r[0][j], r[1][j], r[2][j] = v.X, v.Y, v.Z }

	x := col(0).Normalize()
	y := col(1).Sub(x.Mul(x.Dot(col(1)))).Normalize()
	z := x.Cross(y)
	setCol(0, x)
	setCol(1, y)
	setCol(2, z)
	tf.Linear = r
}

// Det3 returns the determinant of the 3x3 linear block.
func (tf *Transform) Det3() float64 {
	l := tf.Linear
	return l[0][0]*(l[1][1]*l[2][2]-l[1][2]*l[2][1]) -
		l[0][1]*(l[1][0]*l[2][2]-l[1][2]*l[2][0]) +
		l[0][2]*(l[1][0]*l[2][1]-l[1][1]*l[2][0])
}

func transpose3x3(m [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[j][i] = m[i][j]
		}
	}
	return out
}

func invert3x3(m [3][3]float64) ([3][3]float64, bool) {
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	if math.Abs(det) < 1e-15 {
		return m, false
	}
	invDet := 1 / det
	var out [3][3]float64
	out[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) * invDet
	out[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * invDet
	out[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * invDet
	out[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) * invDet
	out[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * invDet
	out[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * invDet
	out[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) * invDet
	out[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * invDet
	out[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * invDet
	return out, true
}
