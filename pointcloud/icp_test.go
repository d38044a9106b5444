package pointcloud

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/picp/spatialmath"
)

// fibonacciSphere returns n roughly uniformly distributed points on the
// unit sphere, each with an outward normal equal to its own position.
func fibonacciSphere(n int) []Vertex {
	verts := make([]Vertex, n)
	goldenAngle := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < n; i++ {
		y := 1 - (float64(i)/float64(n-1))*2
		radius := math.Sqrt(math.Max(0, 1-y*y))
		theta := goldenAngle * float64(i)
		pos := NewVector(math.Cos(theta)*radius, y, math.Sin(theta)*radius)
		verts[i] = Vertex{Position: pos, Normal: pos}
	}
	return verts
}

func denseCubeCloud(n int) []Vertex {
	verts := make([]Vertex, 0, n*n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				x := float64(i) / float64(n-1)
				y := float64(j) / float64(n-1)
				z := float64(k) / float64(n-1)
				normal := NewVector(x-0.5, y-0.5, z-0.5)
				if normal.Norm() < 1e-9 {
					normal = NewVector(1, 0, 0)
				}
				verts = append(verts, Vertex{Position: NewVector(x, y, z), Normal: normal.Normalize()})
			}
		}
	}
	return verts
}

func TestICPEmptySetFails(t *testing.T) {
	empty := NewBasicPointSet(nil, false)
	full := NewBasicPointSet(cubeCornersWithNormals(), false)
	xf1 := spatialmath.NewZeroPose()
	xf2 := spatialmath.NewZeroPose()

	result, err := ICP(DefaultConfig(), nil, empty, full, xf1, &xf2, 0, Rigid)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, result, test.ShouldEqual, NegativeSentinel)
}

func TestICPNoOverlapFails(t *testing.T) {
	set1 := NewBasicPointSet(denseCubeCloud(4), false)
	far := make([]Vertex, len(set1.vertices))
	for i, v := range set1.vertices {
		far[i] = Vertex{Position: v.Position.Add(NewVector(1000, 1000, 1000)), Normal: v.Normal}
	}
	set2 := NewBasicPointSet(far, false)

	xf1 := spatialmath.NewZeroPose()
	xf2 := spatialmath.NewZeroPose()
	result, err := ICP(DefaultConfig(), nil, set1, set2, xf1, &xf2, 0, Rigid)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, result, test.ShouldEqual, NegativeSentinel)
}

func TestICPTranslationRecovery(t *testing.T) {
	set1 := NewBasicPointSet(denseCubeCloud(4), false)
	shifted := make([]Vertex, len(set1.vertices))
	for i, v := range set1.vertices {
		shifted[i] = Vertex{Position: v.Position.Add(NewVector(0.05, 0, 0)), Normal: v.Normal}
	}
	set2 := NewBasicPointSet(shifted, false)

	xf1 := spatialmath.NewZeroPose()
	xf2 := spatialmath.NewZeroPose()
	cfg := DefaultConfig()
	result, err := ICP(cfg, nil, set1, set2, xf1, &xf2, 0, Rigid)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result, test.ShouldBeGreaterThanOrEqualTo, 0)

	recovered := xf2.Transform().Apply(NewVector(0, 0, 0))
	test.That(t, recovered.X, test.ShouldAlmostEqual, -0.05, 0.02)
}

func TestRegisterPointCloudICPReturnsOptResult(t *testing.T) {
	set1 := NewBasicPointSet(denseCubeCloud(4), false)
	shifted := make([]Vertex, len(set1.vertices))
	for i, v := range set1.vertices {
		shifted[i] = Vertex{Position: v.Position.Add(NewVector(0.02, 0, 0)), Normal: v.Normal}
	}
	set2 := NewBasicPointSet(shifted, false)

	targetKD := NewKDTree(set1)
	xf, info, err := RegisterPointCloudICP(set2, targetKD, spatialmath.NewZeroPose(), false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, xf, test.ShouldNotBeNil)
	test.That(t, info.OptResult.F, test.ShouldBeGreaterThanOrEqualTo, 0)
}

func TestICPSmallRotationRecovery(t *testing.T) {
	set1 := NewBasicPointSet(fibonacciSphere(1000), false)
	rot := spatialmath.NewRotationAxisAngle(NewVector(0, 0, 1), 5*math.Pi/180)

	rotated := make([]Vertex, len(set1.vertices))
	for i, v := range set1.vertices {
		rotated[i] = Vertex{Position: rot.Apply(v.Position), Normal: rot.ApplyNormal(v.Normal)}
	}
	set2 := NewBasicPointSet(rotated, false)

	xf1 := spatialmath.NewZeroPose()
	xf2 := spatialmath.NewZeroPose()
	result, err := ICP(DefaultConfig(), nil, set1, set2, xf1, &xf2, 0, Rigid)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result, test.ShouldBeGreaterThanOrEqualTo, 0)

	probe := NewVector(1, 0, 0)
	recovered := xf2.Transform().Apply(rot.Apply(probe))
	test.That(t, recovered.X, test.ShouldAlmostEqual, probe.X, 0.02)
	test.That(t, recovered.Y, test.ShouldAlmostEqual, probe.Y, 0.02)
	test.That(t, recovered.Z, test.ShouldAlmostEqual, probe.Z, 0.02)
}

func TestICPSimilarityRecoversScale(t *testing.T) {
	set1 := NewBasicPointSet(denseCubeCloud(4), false)
	const scale = 1.1
	scaled := make([]Vertex, len(set1.vertices))
	for i, v := range set1.vertices {
		scaled[i] = Vertex{Position: v.Position.Mul(scale).Add(NewVector(0.05, 0, 0)), Normal: v.Normal}
	}
	set2 := NewBasicPointSet(scaled, false)

	xf1 := spatialmath.NewZeroPose()
	xf2 := spatialmath.NewZeroPose()
	result, err := ICP(DefaultConfig(), nil, set1, set2, xf1, &xf2, 0, Similarity)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result, test.ShouldBeGreaterThanOrEqualTo, 0)

	// xf2 maps set2 back onto set1, so its recovered scale is 1/1.1.
	recoveredScale := math.Cbrt(xf2.Transform().Det3())
	test.That(t, recoveredScale, test.ShouldAlmostEqual, 1/scale, 0.03)
}

func TestICPNoiseRobustness(t *testing.T) {
	set1 := NewBasicPointSet(denseCubeCloud(6), false)
	bbox := BBoxSize(set1)
	sigma := 0.01 * bbox

	rng := rand.New(rand.NewSource(42))
	noisy := make([]Vertex, len(set1.vertices))
	for i, v := range set1.vertices {
		offset := NewVector(rng.NormFloat64()*sigma, rng.NormFloat64()*sigma, rng.NormFloat64()*sigma)
		noisy[i] = Vertex{Position: v.Position.Add(offset), Normal: v.Normal}
	}
	numOutliers := len(noisy) / 20
	for i := 0; i < numOutliers; i++ {
		idx := rng.Intn(len(noisy))
		outlier := NewVector(
			rng.Float64()*2*bbox-bbox,
			rng.Float64()*2*bbox-bbox,
			rng.Float64()*2*bbox-bbox,
		)
		noisy[idx] = Vertex{Position: outlier, Normal: noisy[idx].Normal}
	}
	set2 := NewBasicPointSet(noisy, false)

	xf1 := spatialmath.NewZeroPose()
	xf2 := spatialmath.NewZeroPose()
	result, err := ICP(DefaultConfig(), nil, set1, set2, xf1, &xf2, 0, Rigid)
	test.That(t, err, test.ShouldBeNil)
	// The median-based rejection should keep the surviving RMS within a
	// small multiple of the injected noise sigma despite the outliers.
	test.That(t, result, test.ShouldBeLessThanOrEqualTo, 3*sigma)
}

func TestICPPointCloudDoesNotUseNormalPredicate(t *testing.T) {
	set1 := NewBasicPointSet(denseCubeCloud(4), true)
	shifted := make([]Vertex, len(set1.vertices))
	for i, v := range set1.vertices {
		// Deliberately unreliable (inverted) normals: if the matcher
		// mistakenly gated on normal compatibility for a point cloud, every
		// candidate would fail the dot-product threshold.
		shifted[i] = Vertex{Position: v.Position.Add(NewVector(0.05, 0, 0)), Normal: v.Normal.Mul(-1)}
	}
	set2 := NewBasicPointSet(shifted, true)

	xf1 := spatialmath.NewZeroPose()
	xf2 := spatialmath.NewZeroPose()
	result, err := ICP(DefaultConfig(), nil, set1, set2, xf1, &xf2, 0, Rigid)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result, test.ShouldBeGreaterThanOrEqualTo, 0)

	recovered := xf2.Transform().Apply(NewVector(0, 0, 0))
	test.That(t, recovered.X, test.ShouldAlmostEqual, -0.05, 0.02)
}
