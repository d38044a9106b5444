package pointcloud

import (
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/viam-labs/picp/logging"
	"github.com/viam-labs/picp/spatialmath"
)

// RegistrationInfo carries the facade's optimization summary.
type RegistrationInfo struct {
	OptResult struct {
		F float64
	}
}

// ICP aligns set2 onto set1, mutating xf2 in place, building grids and
// k-d trees internally and synthesizing uniform weights. maxdist is the
// match-rejection distance; if maxdist <= 0 it defaults to the smaller of
// the two sets' grid bounding-box diagonals.
func ICP(
	cfg Config,
	logger logging.Logger,
	set1, set2 PointSet,
	xf1 spatialmath.Pose,
	xf2 *spatialmath.Pose,
	maxdist float64,
	xformType XformType,
) (float64, error) {
	var kd1, kd2 *BasicKDTree
	var eg errgroup.Group
	eg.Go(func() error { kd1 = NewKDTree(set1); return nil })
	eg.Go(func() error { kd2 = NewKDTree(set2); return nil })
	_ = eg.Wait()
	return ICPWithTrees(cfg, logger, set1, set2, xf1, xf2, kd1, kd2, nil, nil, maxdist, xformType)
}

// ICPWithTrees is the full facade: the caller may supply k-d trees and/or
// sticky per-vertex weights; weights synthesized internally are cleared
// before return. xf2 is read for its initial value and overwritten in
// place with the recovered pose. maxdist is the match-rejection distance;
// if maxdist <= 0 it defaults to the smaller of the two sets' grid
// bounding-box diagonals.
func ICPWithTrees(
	cfg Config,
	logger logging.Logger,
	set1, set2 PointSet,
	xf1 spatialmath.Pose,
	xf2 *spatialmath.Pose,
	kd1, kd2 KDTree,
	weights1, weights2 []float64,
	maxdist float64,
	xformType XformType,
) (float64, error) {
	if set1.Len() == 0 || set2.Len() == 0 {
		return NegativeSentinel, ErrInsufficientPairs
	}
	if err := set1.EnsureNormals(); err != nil {
		return NegativeSentinel, err
	}
	if err := set2.EnsureNormals(); err != nil {
		return NegativeSentinel, err
	}

	if logger == nil {
		logger = logging.NopLogger{}
	}

	var grid1, grid2 *Grid
	var eg errgroup.Group
	eg.Go(func() error { grid1 = BuildGrid(set1); return nil })
	eg.Go(func() error { grid2 = BuildGrid(set2); return nil })
	_ = eg.Wait()

	maxDistance := maxdist
	if maxDistance <= 0 {
		maxDistance = defaultMaxDistance(grid1, grid2)
	}

	synth1, synth2 := false, false
	if len(weights1) != set1.Len() {
		weights1 = make([]float64, set1.Len())
		for i := range weights1 {
			weights1[i] = 1
		}
		synth1 = true
	}
	if len(weights2) != set2.Len() {
		weights2 = make([]float64, set2.Len())
		for i := range weights2 {
			weights2[i] = 1
		}
		synth2 = true
	}

	xf2Transform := (*xf2).Transform()

	s := &iterState{
		cfg:              cfg,
		rng:              rand.New(rand.NewSource(1)),
		set1:             set1,
		set2:             set2,
		xf1:              xf1.Transform(),
		xf2:              xf2Transform,
		kd1:              kd1,
		kd2:              kd2,
		grid1:            grid1,
		grid2:            grid2,
		weights1:         weights1,
		weights2:         weights2,
		synth1:           synth1,
		synth2:           synth2,
		cdf1:             BuildUniformCDF(set1.Len()),
		cdf2:             BuildUniformCDF(set2.Len()),
		cdfIncrement:     2.0 / float64(cfg.DesiredPairs),
		maxDistance:      maxDistance,
		normDotThreshold: 0.5,
	}

	result, err := run(cfg, logger, s, xformType)
	*xf2 = spatialmath.NewPoseFromTransform(s.xf2)

	if synth1 {
		for i := range weights1 {
			weights1[i] = 0
		}
	}
	if synth2 {
		for i := range weights2 {
			weights2[i] = 0
		}
	}

	if err != nil {
		return NegativeSentinel, err
	}
	return result, nil
}

// ICPSentinel wraps ICP for callers that want a "negative float on
// failure" contract without handling a Go error value.
func ICPSentinel(
	cfg Config,
	logger logging.Logger,
	set1, set2 PointSet,
	xf1 spatialmath.Pose,
	xf2 *spatialmath.Pose,
	maxdist float64,
	xformType XformType,
) float64 {
	result, err := ICP(cfg, logger, set1, set2, xf1, xf2, maxdist, xformType)
	if err != nil {
		return NegativeSentinel
	}
	return result
}

// RegisterPointCloudICP is a higher-level convenience wrapper: it takes a
// pre-built k-d tree over the target (recovering the target's PointSet
// from it), runs rigid ICP from the supplied initial guess, and returns
// the recovered transform alongside an OptResult-style summary.
func RegisterPointCloudICP(
	source PointSet,
	targetKD KDTree,
	guess spatialmath.Pose,
	verbose bool,
) (*spatialmath.Transform, *RegistrationInfo, error) {
	cfg := DefaultConfig()
	var logger logging.Logger
	if verbose {
		logger = logging.NewLogger("icp")
	}

	target := targetKD.Set()
	sourceKD := NewKDTree(source)

	xf1 := spatialmath.NewZeroPose()
	xf2 := guess

	f, err := ICPWithTrees(cfg, logger, target, source, xf1, &xf2, targetKD, sourceKD, nil, nil, 0, Rigid)
	if err != nil {
		return nil, nil, err
	}

	info := &RegistrationInfo{}
	info.OptResult.F = f
	return xf2.Transform(), info, nil
}
