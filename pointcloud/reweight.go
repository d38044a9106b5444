package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/viam-labs/picp/spatialmath"
)

// reweight is the importance reweighter: given the eigen-decomposition from
// the most recent rigid solve, project every vertex of set k onto the same
// 6-dimensional basis the aligner used and weight its contribution by
// sqrt(einv) along each axis, producing a new sampling CDF. It reports
// false when the resulting weight sum is not positive; the controller then
// fails the iteration with ErrNoOverlap.
func reweight(
	set PointSet,
	xf *spatialmath.Transform,
	centroid r3.Vector,
	align *AlignResult,
	weights []float64,
) (CDF, bool) {
	n := set.Len()
	nxf := xf.NormalTransform()
	sqrtEInv := make([]float64, align.Eig.N)
	for i, v := range align.EInv {
		sqrtEInv[i] = math.Sqrt(v)
	}

	scores := make([]float64, n)
	var total float64
	for i := 0; i < n; i++ {
		p := xf.Apply(set.Position(i)).Sub(centroid).Mul(2 * align.Scale)
		normal := applyLinear(nxf, set.Normal(i))
		c := p.Cross(normal)
		vec := [6]float64{c.X, c.Y, c.Z, normal.X, normal.Y, normal.Z}

		var s float64
		for j := 0; j < align.Eig.N; j++ {
			var proj float64
			for k := 0; k < 6; k++ {
				proj += align.Eig.Vectors.At(k, j) * vec[k]
			}
			s += sqrtEInv[j] * proj * proj
		}
		weighted := s * weights[i]
		scores[i] = weighted
		total += weighted
	}
	if total <= 0 {
		return nil, false
	}
	return BuildCDF(scores), true
}

func applyLinear(l [3][3]float64, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: l[0][0]*v.X + l[0][1]*v.Y + l[0][2]*v.Z,
		Y: l[1][0]*v.X + l[1][1]*v.Y + l[1][2]*v.Z,
		Z: l[2][0]*v.X + l[2][1]*v.Y + l[2][2]*v.Z,
	}
}
