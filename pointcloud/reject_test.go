package pointcloud

import (
	"testing"

	"go.viam.com/test"
)

func TestMedian(t *testing.T) {
	test.That(t, median([]float64{1, 2, 3}), test.ShouldEqual, 2)
	test.That(t, median([]float64{1, 2, 3, 4}), test.ShouldAlmostEqual, 2.5, 1e-12)
	test.That(t, median(nil), test.ShouldEqual, 0)
}

func TestRejectPairsEnforcesThresholds(t *testing.T) {
	pairs := []PtPair{
		{P1: NewVector(0, 0, 0), P2: NewVector(0, 0, 0), N1: NewVector(0, 0, 1), N2: NewVector(0, 0, 1)},
		{P1: NewVector(0, 0, 0), P2: NewVector(10, 0, 0), N1: NewVector(0, 0, 1), N2: NewVector(0, 0, 1)},
		{P1: NewVector(0, 0, 0), P2: NewVector(0.1, 0, 0), N1: NewVector(0, 0, 1), N2: NewVector(1, 0, 0)},
	}
	survivors := rejectPairs(pairs, 1.0, 0.9)
	test.That(t, len(survivors), test.ShouldEqual, 1)
	for _, p := range survivors {
		test.That(t, p.P1.Sub(p.P2).Norm2(), test.ShouldBeLessThanOrEqualTo, 1.0)
		test.That(t, p.N1.Dot(p.N2), test.ShouldBeGreaterThanOrEqualTo, 0.9)
	}
}

func TestComputeRejectionStatsClampsThreshold(t *testing.T) {
	cfg := DefaultConfig()
	pairs := []PtPair{
		{P1: NewVector(0, 0, 0), P2: NewVector(1, 0, 0), N1: NewVector(0, 0, 1), N2: NewVector(0, 0, 1)},
		{P1: NewVector(0, 0, 0), P2: NewVector(2, 0, 0), N1: NewVector(0, 0, 1), N2: NewVector(0, 0, 1)},
	}
	stats := computeRejectionStats(pairs, cfg)
	test.That(t, stats.NormDotThreshold, test.ShouldBeGreaterThanOrEqualTo, cfg.NormdotThreshMin)
	test.That(t, stats.NormDotThreshold, test.ShouldBeLessThanOrEqualTo, cfg.NormdotThreshMax)
	test.That(t, stats.MaxDistance, test.ShouldAlmostEqual, cfg.DistThreshMult*1.5, 1e-9)
}

func TestNextCdfIncrementScalesTowardDesired(t *testing.T) {
	incr := nextCdfIncrement(0.5, 500, 1000)
	test.That(t, incr, test.ShouldAlmostEqual, 0.25, 1e-12)
}
