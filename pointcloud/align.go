package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/viam-labs/picp/spatialmath"
)

// AlignResult is the output of the symmetric rigid aligner: the incremental
// transform plus the eigen-decomposition state the importance reweighter
// needs.
type AlignResult struct {
	Xf    *spatialmath.Transform
	Eig   *spatialmath.EigenSym
	EInv  []float64
	Scale float64
	C1    r3.Vector
	C2    r3.Vector
}

// pairCentroids returns the mean of p1 and of p2 across pairs.
func pairCentroids(pairs []PtPair) (c1, c2 r3.Vector) {
	n := float64(len(pairs))
	for _, p := range pairs {
		c1 = c1.Add(p.P1)
		c2 = c2.Add(p.P2)
	}
	return c1.Mul(1 / n), c2.Mul(1 / n)
}

// pairScale returns the reciprocal of the RMS distance of pair points to
// their respective centroids, the normalization the aligner solves in.
func pairScale(pairs []PtPair, c1, c2 r3.Vector) float64 {
	var sumSq float64
	for _, p := range pairs {
		sumSq += p.P1.Sub(c1).Norm2() + p.P2.Sub(c2).Norm2()
	}
	rms := math.Sqrt(sumSq / float64(2*len(pairs)))
	if rms < 1e-12 {
		return 1
	}
	return 1 / rms
}

// alignRigid solves the symmetric point-to-plane system with Huber-weighted
// IRLS and point-to-point regularization.
func alignRigid(pairs []PtPair, cfg Config) (*AlignResult, error) {
	if len(pairs) == 0 {
		return nil, ErrInsufficientPairs
	}
	c1, c2 := pairCentroids(pairs)
	scale := pairScale(pairs, c1, c2)

	var a [6][6]float64
	var b [6]float64

	accumulate := func(x [6]float64, residual, weight float64) {
		for i := 0; i < 6; i++ {
			b[i] += weight * residual * x[i]
			for j := 0; j < 6; j++ {
				a[i][j] += weight * x[i] * x[j]
			}
		}
	}

	for _, pr := range pairs {
		p1 := pr.P1.Sub(c1).Mul(scale)
		p2 := pr.P2.Sub(c2).Mul(scale)
		n := pr.N1.Add(pr.N2).Mul(0.5)
		p := p1.Add(p2)
		d := p1.Sub(p2)
		c := p.Cross(n)
		dn := d.Dot(n)

		xn := [6]float64{c.X, c.Y, c.Z, n.X, n.Y, n.Z}
		w := cfg.Regularization / math.Max(math.Abs(dn), cfg.Regularization)
		accumulate(xn, dn, w)

		xx := [6]float64{0, p.Z, -p.Y, 1, 0, 0}
		xy := [6]float64{-p.Z, 0, p.X, 0, 1, 0}
		xz := [6]float64{p.Y, -p.X, 0, 0, 0, 1}
		accumulate(xx, d.X, cfg.Regularization)
		accumulate(xy, d.Y, cfg.Regularization)
		accumulate(xz, d.Z, cfg.Regularization)
	}

	// Symmetrize: floating point accumulation order can leave A[j][k] and
	// A[k][j] to differ in the last bit.
	rows := make([][]float64, 6)
	for i := 0; i < 6; i++ {
		rows[i] = make([]float64, 6)
		for j := 0; j < 6; j++ {
			rows[i][j] = 0.5 * (a[i][j] + a[j][i])
		}
	}

	eig, err := spatialmath.Decompose(6, rows)
	if err != nil {
		return nil, err
	}
	einv := eig.InvEigenvalues(cfg.Regularization)
	sol := eig.EigMult(einv, b[:])

	rotVec := r3.Vector{X: sol[0], Y: sol[1], Z: sol[2]}
	trans := r3.Vector{X: sol[3], Y: sol[4], Z: sol[5]}

	rotNorm := rotVec.Norm()
	rotAngle := math.Atan(rotNorm)
	axis := r3.Vector{X: 0, Y: 0, Z: 1}
	if rotNorm > 1e-12 {
		axis = rotVec.Mul(1 / rotNorm)
	}
	trans = trans.Mul(math.Cos(rotAngle) / scale)

	r := spatialmath.NewRotationAxisAngle(axis, rotAngle)
	xf := spatialmath.NewTranslation(c1).
		Compose(r).
		Compose(spatialmath.NewTranslation(trans)).
		Compose(r).
		Compose(spatialmath.NewTranslation(c2.Mul(-1)))

	return &AlignResult{Xf: xf, Eig: eig, EInv: einv, Scale: scale, C1: c1, C2: c2}, nil
}

// alignTranslation solves the 3-DoF translation-only variant of the same
// system, used when the caller only wants to recover a translation.
func alignTranslation(pairs []PtPair, cfg Config) (*spatialmath.Transform, error) {
	if len(pairs) == 0 {
		return nil, ErrInsufficientPairs
	}
	c1, c2 := pairCentroids(pairs)
	scale := pairScale(pairs, c1, c2)

	var a [3][3]float64
	var b [3]float64
	for _, pr := range pairs {
		p1 := pr.P1.Sub(c1).Mul(scale)
		p2 := pr.P2.Sub(c2).Mul(scale)
		n := pr.N1.Add(pr.N2).Mul(0.5)
		d := p1.Sub(p2)
		dn := d.Dot(n)

		nv := [3]float64{n.X, n.Y, n.Z}
		for i := 0; i < 3; i++ {
			b[i] += dn * nv[i]
			for j := 0; j < 3; j++ {
				a[i][j] += nv[i] * nv[j]
			}
		}
	}
	reg := cfg.Regularization * float64(len(pairs))
	a[0][0] += reg
	a[1][1] += reg
	a[2][2] += reg

	rows := [][]float64{
		{a[0][0], a[0][1], a[0][2]},
		{a[1][0], a[1][1], a[1][2]},
		{a[2][0], a[2][1], a[2][2]},
	}
	eig, err := spatialmath.Decompose(3, rows)
	if err != nil {
		return nil, err
	}
	einv := eig.InvEigenvalues(cfg.Regularization)
	sol := eig.EigMult(einv, b[:])
	solution := r3.Vector{X: sol[0], Y: sol[1], Z: sol[2]}.Mul(1 / scale)

	return spatialmath.NewTranslation(solution.Add(c1).Sub(c2)), nil
}

// covariance3x3 returns the covariance of points about mean, divided by the
// number of points.
func covariance3x3(points []r3.Vector, mean r3.Vector) [3][3]float64 {
	var cov [3][3]float64
	for _, p := range points {
		d := p.Sub(mean)
		dv := [3]float64{d.X, d.Y, d.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				cov[i][j] += dv[i] * dv[j]
			}
		}
	}
	n := float64(len(points))
	if n > 0 {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				cov[i][j] /= n
			}
		}
	}
	return cov
}

// matrixPow reconstructs V * diag(f(lambda)) * V^T from a symmetric matrix's
// eigendecomposition, flooring eigenvalues to a small positive value first
// to guard against an ill-conditioned covariance.
func matrixPow(m [3][3]float64, f func(float64) float64) ([3][3]float64, error) {
	const floor = 1e-9
	rows := [][]float64{
		{m[0][0], m[0][1], m[0][2]},
		{m[1][0], m[1][1], m[1][2]},
		{m[2][0], m[2][1], m[2][2]},
	}
	eig, err := spatialmath.Decompose(3, rows)
	if err != nil {
		return [3][3]float64{}, err
	}
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				lambda := eig.Values[k]
				if lambda < floor {
					lambda = floor
				}
				sum += eig.Vectors.At(i, k) * f(lambda) * eig.Vectors.At(j, k)
			}
			out[i][j] = sum
		}
	}
	return out, nil
}

// applyPostHocScale multiplies alignxf by a uniform scale about the common
// centroid of the two aligned point sets.
func applyPostHocScale(alignxf *spatialmath.Transform, pairs []PtPair) *spatialmath.Transform {
	centroid, cov1, cov2 := postHocCentroidAndCovariances(alignxf, pairs)
	var sumLambda1, sumLambda2 float64
	for _, p := range eigenvaluesOf3x3(cov1) {
		sumLambda1 += p
	}
	for _, p := range eigenvaluesOf3x3(cov2) {
		sumLambda2 += p
	}
	ratio := 1.0
	if sumLambda2 > 1e-12 {
		ratio = math.Sqrt(sumLambda1 / sumLambda2)
	}

	scaleXf := spatialmath.NewTranslation(centroid).
		Compose(spatialmath.NewScale(ratio)).
		Compose(spatialmath.NewTranslation(centroid.Mul(-1)))
	return scaleXf.Compose(alignxf)
}

// applyPostHocAffine multiplies alignxf by cov1^(1/2) * cov2^(-1/2) about
// the common centroid, the general affine correction on top of a rigid
// solve.
func applyPostHocAffine(alignxf *spatialmath.Transform, pairs []PtPair) (*spatialmath.Transform, error) {
	centroid, cov1, cov2 := postHocCentroidAndCovariances(alignxf, pairs)
	sqrtCov1, err := matrixPow(cov1, math.Sqrt)
	if err != nil {
		return nil, err
	}
	invSqrtCov2, err := matrixPow(cov2, func(l float64) float64 { return 1 / math.Sqrt(l) })
	if err != nil {
		return nil, err
	}
	var linear [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += sqrtCov1[i][k] * invSqrtCov2[k][j]
			}
			linear[i][j] = sum
		}
	}
	affineXf := spatialmath.NewTranslation(centroid).
		Compose(spatialmath.NewFromLinear(linear, r3.Vector{})).
		Compose(spatialmath.NewTranslation(centroid.Mul(-1)))
	return affineXf.Compose(alignxf), nil
}

func postHocCentroidAndCovariances(alignxf *spatialmath.Transform, pairs []PtPair) (centroid r3.Vector, cov1, cov2 [3][3]float64) {
	c1, c2 := pairCentroids(pairs)
	centroid = c1.Add(alignxf.Apply(c2)).Mul(0.5)

	p1s := make([]r3.Vector, len(pairs))
	p2s := make([]r3.Vector, len(pairs))
	for i, p := range pairs {
		p1s[i] = p.P1
		p2s[i] = alignxf.Apply(p.P2)
	}
	cov1 = covariance3x3(p1s, centroid)
	cov2 = covariance3x3(p2s, centroid)
	return centroid, cov1, cov2
}

func eigenvaluesOf3x3(m [3][3]float64) []float64 {
	rows := [][]float64{
		{m[0][0], m[0][1], m[0][2]},
		{m[1][0], m[1][1], m[1][2]},
		{m[2][0], m[2][1], m[2][2]},
	}
	eig, err := spatialmath.Decompose(3, rows)
	if err != nil {
		return nil
	}
	return eig.Values
}
