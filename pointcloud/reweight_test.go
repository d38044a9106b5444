package pointcloud

import (
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/picp/spatialmath"
)

func TestReweightProducesValidCDF(t *testing.T) {
	set := NewBasicPointSet(cubeCornersWithNormals(), false)
	pairs := translatedPairs(NewVector(0.1, 0, 0))
	align, err := alignRigid(pairs, DefaultConfig())
	test.That(t, err, test.ShouldBeNil)

	weights := make([]float64, set.Len())
	for i := range weights {
		weights[i] = 1
	}

	cdf, ok := reweight(set, spatialmath.Identity(), align.C1, align, weights)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(cdf), test.ShouldEqual, set.Len())
	test.That(t, cdf[len(cdf)-1], test.ShouldAlmostEqual, 1.0, 1e-9)
	for i := 1; i < len(cdf); i++ {
		test.That(t, cdf[i], test.ShouldBeGreaterThanOrEqualTo, cdf[i-1])
	}
}

func TestReweightZeroWeightsReportsFailure(t *testing.T) {
	set := NewBasicPointSet(cubeCornersWithNormals(), false)
	pairs := translatedPairs(NewVector(0.1, 0, 0))
	align, err := alignRigid(pairs, DefaultConfig())
	test.That(t, err, test.ShouldBeNil)

	weights := make([]float64, set.Len())
	_, ok := reweight(set, spatialmath.Identity(), align.C1, align, weights)
	test.That(t, ok, test.ShouldBeFalse)
}
