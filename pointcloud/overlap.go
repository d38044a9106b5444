package pointcloud

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/viam-labs/picp/spatialmath"
)

// computeOverlaps fills o1/o2 with a 0/1 indicator per vertex of set1/set2:
// a vertex overlaps the other set when, transformed into the other's frame,
// it falls inside the other's dilated grid AND has a k-d tree neighbor
// within maxDistance. The two independent per-set loops run concurrently,
// and each loop itself partitions disjoint vertex ranges across workers.
func computeOverlaps(
	set1, set2 PointSet,
	xf1, xf2 *spatialmath.Transform,
	kd1, kd2 KDTree,
	grid1, grid2 *Grid,
	maxDistance float64,
) (o1, o2 []float64) {
	o1 = make([]float64, set1.Len())
	o2 = make([]float64, set2.Len())

	var eg errgroup.Group
	eg.Go(func() error {
		fillOverlap(o1, set1, xf1, xf2, kd2, grid2, maxDistance)
		return nil
	})
	eg.Go(func() error {
		fillOverlap(o2, set2, xf2, xf1, kd1, grid1, maxDistance)
		return nil
	})
	_ = eg.Wait()
	return o1, o2
}

// fillOverlap computes the overlap indicator for a single set against the
// other set's grid and k-d tree, parallelizing over disjoint vertex ranges.
func fillOverlap(
	out []float64,
	set PointSet,
	xfSelf, xfOther *spatialmath.Transform,
	otherKD KDTree,
	otherGrid *Grid,
	maxDistance float64,
) {
	n := set.Len()
	if n == 0 {
		return
	}
	maxSqDist := maxDistance * maxDistance
	otherInv := xfOther.Invert()

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > n {
		numWorkers = n
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	chunk := (n + numWorkers - 1) / numWorkers

	var eg errgroup.Group
	for w := 0; w < numWorkers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		eg.Go(func() error {
			for i := start; i < end; i++ {
				p := otherInv.Apply(xfSelf.Apply(set.Position(i)))
				if !otherGrid.Overlaps(p) {
					continue
				}
				if _, ok := otherKD.NearestNeighbor(p, maxSqDist, nil); ok {
					out[i] = 1
				}
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// defaultMaxDistance returns min(grid1.bbox_size, grid2.bbox_size), used
// when the caller passes maxDistance <= 0.
func defaultMaxDistance(grid1, grid2 *Grid) float64 {
	b1, b2 := grid1.BBoxSize(), grid2.BBoxSize()
	if b1 < b2 {
		return b1
	}
	return b2
}
