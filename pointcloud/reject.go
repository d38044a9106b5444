package pointcloud

import (
	"math"
	"sort"
)

// rejectionStats holds the per-iteration medians and the thresholds derived
// from them, which become both this round's pruning rule and next
// iteration's matching parameters.
type rejectionStats struct {
	MedDist          float64
	MedNormDot       float64
	MaxDistance      float64
	NormDotThreshold float64
}

// computeRejectionStats computes medDist/medNormDot over the unpruned pair
// list and derives the next maxDistance/normDotThreshold.
func computeRejectionStats(pairs []PtPair, cfg Config) rejectionStats {
	dists := make([]float64, len(pairs))
	dots := make([]float64, len(pairs))
	for i, p := range pairs {
		dists[i] = p.P1.Sub(p.P2).Norm()
		dots[i] = p.N1.Dot(p.N2)
	}
	medDist := median(dists)
	medNormDot := median(dots)

	maxDistance := cfg.DistThreshMult * medDist
	// Clamp medNormDot to [-1, 1] before arccos to guard against floating
	// point drift pushing it marginally out of domain.
	clamped := math.Max(-1, math.Min(1, medNormDot))
	threshold := math.Cos(cfg.NormdotThreshMult * math.Acos(clamped))
	threshold = math.Max(cfg.NormdotThreshMin, math.Min(cfg.NormdotThreshMax, threshold))

	return rejectionStats{
		MedDist:          medDist,
		MedNormDot:       medNormDot,
		MaxDistance:      maxDistance,
		NormDotThreshold: threshold,
	}
}

// rejectPairs prunes any pair whose squared distance exceeds maxDistance^2
// or whose normal dot falls below normDotThreshold.
func rejectPairs(pairs []PtPair, maxDistance, normDotThreshold float64) []PtPair {
	maxSqDist := maxDistance * maxDistance
	surviving := pairs[:0:0]
	for _, p := range pairs {
		if p.P1.Sub(p.P2).Norm2() > maxSqDist {
			continue
		}
		if p.N1.Dot(p.N2) < normDotThreshold {
			continue
		}
		surviving = append(surviving, p)
	}
	return surviving
}

// nextCdfIncrement rescales cdfIncrement toward desiredPairs given how many
// pairs actually survived this round's rejection.
func nextCdfIncrement(cdfIncrement float64, survivingPairs, desiredPairs int) float64 {
	if desiredPairs <= 0 {
		return cdfIncrement
	}
	return cdfIncrement * (float64(survivingPairs) / float64(desiredPairs))
}

func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return 0.5 * (sorted[mid-1] + sorted[mid])
}
