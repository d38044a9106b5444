package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestZeroPose(t *testing.T) {
	p := NewZeroPose()
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{})
}

func TestComposeInverse(t *testing.T) {
	a := NewPoseFromAxisAngle(r3.Vector{X: 1, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 0, Z: 1}, math.Pi/4)
	inv := PoseInverse(a)
	identity := Compose(inv, a)
	test.That(t, identity.Point().X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, identity.Point().Y, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, identity.Point().Z, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestOrientationRoundTrip(t *testing.T) {
	axis := r3.Vector{X: 0, Y: 1, Z: 0}
	angle := 0.6
	p := NewPoseFromAxisAngle(r3.Vector{}, axis, angle)
	o := p.Orientation()
	test.That(t, o.Theta, test.ShouldAlmostEqual, angle, 1e-9)
	test.That(t, o.RY, test.ShouldAlmostEqual, 1, 1e-9)
}
