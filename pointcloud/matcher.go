package pointcloud

import (
	"math/rand"

	"github.com/golang/geo/r3"

	"github.com/viam-labs/picp/spatialmath"
)

// PtPair is a single world-space correspondence: p1/n1 come from the
// reference set, p2/n2 from the moving set, with n2 flipped so that
// n1·n2 >= 0.
type PtPair struct {
	P1, N1 r3.Vector
	P2, N2 r3.Vector
}

// selectAndMatch draws samples from cdf spaced by cdfIncrement, transforms
// each into target coordinates, queries the target k-d tree (optionally
// gated by normal compatibility), and emits pairs.
//
// source/target name the two point sets in the CALLER's natural order; when
// flipOrder is true the emitted pairs are swapped so that "role 1" always
// refers to the overall reference set. The controller calls this once per
// direction to build a symmetric, bidirectional pair list.
func selectAndMatch(
	source, target PointSet,
	xfSource, xfTarget *spatialmath.Transform,
	targetKD KDTree,
	cdf CDF,
	cdfIncrement, maxDistance, normDotThreshold float64,
	useNormCompat, rejectBdy bool,
	flipOrder bool,
	rng *rand.Rand,
) []PtPair {
	indices := DrawIndices(cdf, cdfIncrement, rng)
	if len(indices) == 0 {
		return nil
	}

	trustNormals := useNormCompat && !source.IsPointCloud() && !target.IsPointCloud()
	maxSqDist := maxDistance * maxDistance
	xfTargetInv := xfTarget.Invert()

	pairs := make([]PtPair, 0, len(indices))
	for _, i := range indices {
		srcPos := xfSource.Apply(source.Position(i))
		srcNormal := xfSource.ApplyNormal(source.Normal(i))

		// Query is expressed in target coordinates, so transform the
		// sample into target space first.
		queryPos := xfTargetInv.Apply(srcPos)
		queryNormal := xfTargetInv.ApplyNormal(srcNormal)

		var pred NormCompatPredicate
		if trustNormals {
			pred = func(_ r3.Vector, candidateNormal r3.Vector) bool {
				return queryNormal.Dot(candidateNormal) > normDotThreshold
			}
		}

		idx, ok := targetKD.NearestNeighbor(queryPos, maxSqDist, pred)
		if !ok {
			continue
		}
		if rejectBdy && target.IsBoundary(idx) {
			continue
		}

		tgtPos := xfTarget.Apply(target.Position(idx))
		tgtNormal := xfTarget.ApplyNormal(target.Normal(idx))

		if srcNormal.Dot(tgtNormal) < 0 {
			tgtNormal = tgtNormal.Mul(-1)
		}

		pair := PtPair{P1: srcPos, N1: srcNormal, P2: tgtPos, N2: tgtNormal}
		if flipOrder {
			pair = PtPair{P1: tgtPos, N1: tgtNormal, P2: srcPos, N2: srcNormal}
		}
		pairs = append(pairs, pair)
	}
	return pairs
}
