package pointcloud

import (
	"runtime"

	"github.com/golang/geo/r3"
	"golang.org/x/sync/errgroup"
)

// gridDim is the occupancy grid's per-axis resolution: a 16x16x16 grid.
const gridDim = 16

const gridCells = gridDim * gridDim * gridDim

// Grid is a coarse, dilated occupancy grid used for O(1) overlap rejection
// before a k-d tree query is attempted.
type Grid struct {
	min, max r3.Vector
	scale    float64 // cells per unit length along the longest axis
	cells    [gridCells]bool
}

func (g *Grid) cellIndex(p r3.Vector) (ix, iy, iz int, inBounds bool) {
	if p.X < g.min.X || p.Y < g.min.Y || p.Z < g.min.Z ||
		p.X > g.max.X || p.Y > g.max.Y || p.Z > g.max.Z {
		return 0, 0, 0, false
	}
	d := p.Sub(g.min)
	ix = clamp(int(d.X*g.scale), 0, gridDim-1)
	iy = clamp(int(d.Y*g.scale), 0, gridDim-1)
	iz = clamp(int(d.Z*g.scale), 0, gridDim-1)
	return ix, iy, iz, true
}

func flatIndex(ix, iy, iz int) int {
	return (ix*gridDim+iy)*gridDim + iz
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BuildGrid computes the set's bounding box, marks every cell containing an
// input point, then dilates by one cell in each of the 27 neighbor offsets.
func BuildGrid(set PointSet) *Grid {
	min, max := BoundingBox(set)
	diag := max.Sub(min)
	longest := diag.X
	if diag.Y > longest {
		longest = diag.Y
	}
	if diag.Z > longest {
		longest = diag.Z
	}
	if longest <= 0 {
		longest = 1
	}
	g := &Grid{min: min, max: max, scale: gridDim / longest}

	var marked [gridCells]bool
	n := set.Len()
	for i := 0; i < n; i++ {
		if ix, iy, iz, ok := g.cellIndex(set.Position(i)); ok {
			marked[flatIndex(ix, iy, iz)] = true
		}
	}

	// Dilation is embarrassingly parallel over the 4096 output cells: each
	// worker owns a disjoint slice of cells and reads (never writes) the
	// undilated `marked` array.
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > gridCells {
		numWorkers = gridCells
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	chunk := (gridCells + numWorkers - 1) / numWorkers

	var eg errgroup.Group
	for w := 0; w < numWorkers; w++ {
		start := w * chunk
		end := start + chunk
		if end > gridCells {
			end = gridCells
		}
		if start >= end {
			continue
		}
		eg.Go(func() error {
			for flat := start; flat < end; flat++ {
				ix := flat / (gridDim * gridDim)
				iy := (flat / gridDim) % gridDim
				iz := flat % gridDim
				g.cells[flat] = dilatedCell(&marked, ix, iy, iz)
			}
			return nil
		})
	}
	_ = eg.Wait()

	return g
}

func dilatedCell(marked *[gridCells]bool, ix, iy, iz int) bool {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				nx := clamp(ix+dx, 0, gridDim-1)
				ny := clamp(iy+dy, 0, gridDim-1)
				nz := clamp(iz+dz, 0, gridDim-1)
				if marked[flatIndex(nx, ny, nz)] {
					return true
				}
			}
		}
	}
	return false
}

// Overlaps reports whether p falls inside the bounding box and its dilated
// cell is set.
func (g *Grid) Overlaps(p r3.Vector) bool {
	ix, iy, iz, ok := g.cellIndex(p)
	if !ok {
		return false
	}
	return g.cells[flatIndex(ix, iy, iz)]
}

// BBoxSize returns the bounding-box diagonal length used as the default
// match distance when the caller has not supplied one.
func (g *Grid) BBoxSize() float64 {
	return g.max.Sub(g.min).Norm()
}
