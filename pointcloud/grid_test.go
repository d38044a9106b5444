package pointcloud

import (
	"testing"

	"go.viam.com/test"
)

func TestBuildGridOverlapsNearInputPoints(t *testing.T) {
	set := NewBasicPointSet(cubeCornersWithNormals(), false)
	grid := BuildGrid(set)

	test.That(t, grid.Overlaps(NewVector(0, 0, 0)), test.ShouldBeTrue)
	test.That(t, grid.Overlaps(NewVector(0.95, 0.95, 0.95)), test.ShouldBeTrue)
}

func TestBuildGridRejectsOutsideBbox(t *testing.T) {
	set := NewBasicPointSet(cubeCornersWithNormals(), false)
	grid := BuildGrid(set)

	test.That(t, grid.Overlaps(NewVector(1000, 1000, 1000)), test.ShouldBeFalse)
}

func TestGridBBoxSize(t *testing.T) {
	set := NewBasicPointSet(cubeCornersWithNormals(), false)
	grid := BuildGrid(set)
	test.That(t, grid.BBoxSize(), test.ShouldAlmostEqual, 1.7320508075688772, 1e-9)
}
