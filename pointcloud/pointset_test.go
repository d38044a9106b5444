package pointcloud

import (
	"testing"

	"go.viam.com/test"
)

func TestBasicPointSetAccessors(t *testing.T) {
	verts := []Vertex{
		{Position: NewVector(0, 0, 0), Normal: NewVector(0, 0, 1)},
		{Position: NewVector(1, 2, 3), Normal: NewVector(1, 0, 0)},
	}
	set := NewBasicPointSet(verts, true)
	test.That(t, set.Len(), test.ShouldEqual, 2)
	test.That(t, set.Position(1), test.ShouldResemble, NewVector(1, 2, 3))
	test.That(t, set.Normal(0), test.ShouldResemble, NewVector(0, 0, 1))
	test.That(t, set.IsPointCloud(), test.ShouldBeTrue)
	test.That(t, set.IsBoundary(0), test.ShouldBeFalse)

	set.SetBoundary(0)
	test.That(t, set.IsBoundary(0), test.ShouldBeTrue)
	test.That(t, set.IsBoundary(1), test.ShouldBeFalse)
}

func TestBasicPointSetEnsureNormalsRejectsDegenerate(t *testing.T) {
	verts := []Vertex{{Position: NewVector(0, 0, 0), Normal: NewVector(0, 0, 0)}}
	set := NewBasicPointSet(verts, false)
	test.That(t, set.EnsureNormals(), test.ShouldNotBeNil)
}

func TestBoundingBoxAndCentroid(t *testing.T) {
	verts := cubeCornersWithNormals()
	set := NewBasicPointSet(verts, false)
	min, max := BoundingBox(set)
	test.That(t, min, test.ShouldResemble, NewVector(0, 0, 0))
	test.That(t, max, test.ShouldResemble, NewVector(1, 1, 1))

	c := Centroid(set)
	test.That(t, c.X, test.ShouldAlmostEqual, 0.5, 1e-9)
	test.That(t, c.Y, test.ShouldAlmostEqual, 0.5, 1e-9)
	test.That(t, c.Z, test.ShouldAlmostEqual, 0.5, 1e-9)

	test.That(t, BBoxSize(set), test.ShouldAlmostEqual, 1.7320508075688772, 1e-9)
}

func TestBoundingBoxEmptySet(t *testing.T) {
	set := NewBasicPointSet(nil, false)
	min, max := BoundingBox(set)
	test.That(t, min, test.ShouldResemble, NewVector(0, 0, 0))
	test.That(t, max, test.ShouldResemble, NewVector(0, 0, 0))
}
