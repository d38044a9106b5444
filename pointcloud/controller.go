package pointcloud

import (
	"math"
	"math/rand"

	"github.com/viam-labs/picp/logging"
	"github.com/viam-labs/picp/spatialmath"
)

// XformType selects the class of transform ICP is allowed to recover.
type XformType int

const (
	Translation XformType = iota
	Rigid
	Similarity
	Affine
)

func (x XformType) String() string {
	switch x {
	case Translation:
		return "translation"
	case Rigid:
		return "rigid"
	case Similarity:
		return "similarity"
	case Affine:
		return "affine"
	default:
		return "unknown"
	}
}

// NegativeSentinel is the failure return value of ICP.
const NegativeSentinel = -1.0

// iterState is the controller's mutable per-call state, threaded through
// every iteration.
type iterState struct {
	cfg Config
	rng *rand.Rand

	set1, set2 PointSet
	xf1, xf2   *spatialmath.Transform
	kd1, kd2   KDTree
	grid1      *Grid
	grid2      *Grid
	weights1   []float64
	weights2   []float64
	synth1     bool
	synth2     bool

	cdf1, cdf2       CDF
	cdfIncrement     float64
	maxDistance      float64
	normDotThreshold float64

	lastAlign *AlignResult
}

// runIteration executes one full ICP iteration: symmetric matching,
// rejection, solving, and (for RIGID) orthogonalization. iterClass is
// TRANSLATION, RIGID, or a promoted SIMILARITY/AFFINE; the latter two run
// the same rigid inner solve and then apply their post-hoc correction on
// top of it. Returns the RMS point-to-point distance of the surviving
// pairs as matched this iteration (before the new alignment is applied),
// or an error for insufficient pairs or zero overlap.
func (s *iterState) runIteration(iterClass, requestedType XformType, updateCdfs bool) (float64, error) {
	natural := selectAndMatch(
		s.set1, s.set2, s.xf1, s.xf2, s.kd2,
		s.cdf1, s.cdfIncrement, s.maxDistance, s.normDotThreshold,
		s.cfg.UseNormCompat, s.cfg.RejectBdy, false, s.rng,
	)
	flipped := selectAndMatch(
		s.set2, s.set1, s.xf2, s.xf1, s.kd1,
		s.cdf2, s.cdfIncrement, s.maxDistance, s.normDotThreshold,
		s.cfg.UseNormCompat, s.cfg.RejectBdy, true, s.rng,
	)
	pairs := append(natural, flipped...)

	if len(pairs) == 0 {
		return NegativeSentinel, ErrNoOverlap
	}

	stats := computeRejectionStats(pairs, s.cfg)
	survivors := rejectPairs(pairs, stats.MaxDistance, stats.NormDotThreshold)
	if len(survivors) < s.cfg.MinPairs {
		return NegativeSentinel, ErrInsufficientPairs
	}

	s.maxDistance = stats.MaxDistance
	s.normDotThreshold = stats.NormDotThreshold
	s.cdfIncrement = nextCdfIncrement(s.cdfIncrement, len(survivors), s.cfg.DesiredPairs)

	var alignxf *spatialmath.Transform
	if iterClass == Translation {
		xf, err := alignTranslation(survivors, s.cfg)
		if err != nil {
			return NegativeSentinel, err
		}
		alignxf = xf
	} else {
		result, err := alignRigid(survivors, s.cfg)
		if err != nil {
			return NegativeSentinel, err
		}
		s.lastAlign = result
		alignxf = result.Xf

		switch iterClass {
		case Similarity:
			alignxf = applyPostHocScale(alignxf, survivors)
		case Affine:
			affineXf, err := applyPostHocAffine(alignxf, survivors)
			if err != nil {
				return NegativeSentinel, err
			}
			alignxf = affineXf
		}
	}

	s.xf2 = alignxf.Compose(s.xf2)
	if requestedType == Rigid {
		s.xf2.Orthogonalize()
	}

	if updateCdfs {
		if err := s.importanceReweight(); err != nil {
			return NegativeSentinel, err
		}
	}

	return rmsPairDistance(survivors), nil
}

// prepareRecompute refreshes synthesized weights from the overlap estimator,
// then resets both CDFs to uniform so that iteration's own matching samples
// uniformly; its error is excluded from minimum-error tracking for exactly
// this reason, since uniform sampling biases the error estimate relative to
// the importance-weighted iterations around it.
func (s *iterState) prepareRecompute() {
	if s.synth1 || s.synth2 {
		o1, o2 := computeOverlaps(s.set1, s.set2, s.xf1, s.xf2, s.kd1, s.kd2, s.grid1, s.grid2, s.maxDistance)
		if s.synth1 {
			s.weights1 = o1
		}
		if s.synth2 {
			s.weights2 = o2
		}
	}
	s.cdf1 = BuildUniformCDF(s.set1.Len())
	s.cdf2 = BuildUniformCDF(s.set2.Len())
}

func rmsPairDistance(pairs []PtPair) float64 {
	var sumSq float64
	for _, p := range pairs {
		sumSq += p.P1.Sub(p.P2).Norm2()
	}
	return math.Sqrt(sumSq / float64(len(pairs)))
}

// importanceReweight recomputes both sets' CDFs from the most recent rigid
// solve's eigen-decomposition, called after a recompute iteration's
// alignment so that subsequent non-recompute iterations sample by
// importance rather than uniformly. With no rigid solve yet (translation
// mode) both CDFs are reset to uniform. A zero weight sum for either set
// returns ErrNoOverlap.
func (s *iterState) importanceReweight() error {
	if s.lastAlign == nil {
		s.cdf1 = BuildUniformCDF(s.set1.Len())
		s.cdf2 = BuildUniformCDF(s.set2.Len())
		return nil
	}
	cdf1, ok1 := reweight(s.set1, s.xf1, s.lastAlign.C1, s.lastAlign, s.weights1)
	cdf2, ok2 := reweight(s.set2, s.xf2, s.lastAlign.C2, s.lastAlign, s.weights2)
	if !ok1 || !ok2 {
		return ErrNoOverlap
	}
	s.cdf1, s.cdf2 = cdf1, cdf2
	return nil
}

// run drives the full iteration sequence: one initial iteration, the main
// loop with periodic recompute/transform-type promotion and early
// termination, and the final refinement passes.
func run(cfg Config, logger logging.Logger, s *iterState, requestedType XformType) (float64, error) {
	initialClass := Rigid
	if requestedType == Translation {
		initialClass = Translation
	}

	lastErr, err := s.runIteration(initialClass, requestedType, false)
	if err != nil {
		return NegativeSentinel, err
	}

	minError := math.MaxFloat64
	noImprove := 0
	iterXform := initialClass

	for iter := 1; iter <= cfg.MaxIters; iter++ {
		recompute := iter%cfg.CdfUpdateInterval == 0

		if iter == cfg.MaxIters/2 && (requestedType == Similarity || requestedType == Affine) {
			iterXform = requestedType
		}

		if recompute {
			s.prepareRecompute()
		}

		e, err := s.runIteration(iterXform, requestedType, recompute)
		if err != nil {
			return NegativeSentinel, err
		}
		lastErr = e

		logger.Debugf("iter %d: class=%s err=%.6g pairs-thresh=%.4g", iter, iterXform, e, s.maxDistance)

		if !recompute {
			if e < minError {
				minError = e
				noImprove = 0
			} else {
				noImprove++
			}
			if noImprove >= cfg.TerminationIterThresh &&
				(requestedType == Translation || requestedType == Rigid) {
				break
			}
		}
	}

	s.cdfIncrement *= float64(cfg.DesiredPairs) / float64(cfg.DesiredPairsFinal)
	s.cdf1 = BuildUniformCDF(s.set1.Len())
	s.cdf2 = BuildUniformCDF(s.set2.Len())

	finalClass := iterXform
	for i := 0; i < cfg.FinalIters; i++ {
		e, err := s.runIteration(finalClass, requestedType, false)
		if err != nil {
			return NegativeSentinel, err
		}
		lastErr = e
	}

	return lastErr, nil
}
