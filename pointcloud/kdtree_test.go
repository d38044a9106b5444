package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestKDTreeNearestFindsClosest(t *testing.T) {
	verts := cubeCornersWithNormals()
	set := NewBasicPointSet(verts, false)
	tree := NewKDTree(set)
	test.That(t, tree.Len(), test.ShouldEqual, 8)

	idx, ok := tree.NearestNeighbor(NewVector(0.05, 0.05, 0.05), 10, nil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, set.Position(idx), test.ShouldResemble, NewVector(0, 0, 0))
}

func TestKDTreeNearestRespectsMaxDist(t *testing.T) {
	verts := cubeCornersWithNormals()
	set := NewBasicPointSet(verts, false)
	tree := NewKDTree(set)

	_, ok := tree.NearestNeighbor(NewVector(100, 100, 100), 1, nil)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestKDTreeNearestWithPredicateSkipsRejected(t *testing.T) {
	verts := cubeCornersWithNormals()
	set := NewBasicPointSet(verts, false)
	tree := NewKDTree(set)

	target := NewVector(0, 0, 0)
	pred := func(pos, _ r3.Vector) bool {
		return pos.Sub(target).Norm() > 1e-9
	}
	idx, ok := tree.NearestNeighbor(target, 10, pred)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, set.Position(idx), test.ShouldNotResemble, target)
}

func TestKDTreeEmptySet(t *testing.T) {
	set := NewBasicPointSet(nil, false)
	tree := NewKDTree(set)
	_, ok := tree.NearestNeighbor(NewVector(0, 0, 0), 10, nil)
	test.That(t, ok, test.ShouldBeFalse)
}
