// Package pointcloud implements the ICP core: sampling, symmetric
// bidirectional matching, adaptive rejection, the point-to-plane aligner,
// the importance reweighter, and the iteration controller, wired together
// by the facade in icp.go.
//
// The point/mesh container and the k-d tree are modeled here as narrow
// collaborator interfaces: PointSet and KDTree. A reference implementation
// of each (BasicPointSet, BasicKDTree) is provided so the package is
// independently testable and usable on its own, with each vertex carrying
// a position and a per-vertex normal.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Vertex is a single point-with-normal: a 3D position and a unit normal.
type Vertex struct {
	Position r3.Vector
	Normal   r3.Vector
}

// NewVector is a small convenience constructor for an r3.Vector, used
// pervasively in this package's tests.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// PointSet is the narrow contract for the mesh/point container
// collaborator: vertex count, per-vertex position/normal, optional
// boundary predicate, and whether the set is a bare point cloud (no
// face/connectivity structure).
type PointSet interface {
	Len() int
	Position(i int) r3.Vector
	Normal(i int) r3.Vector
	// IsBoundary reports whether vertex i lies on a mesh boundary. Point
	// clouds with no connectivity should always return false.
	IsBoundary(i int) bool
	// IsPointCloud reports whether this set has no face/connectivity
	// structure, which the matcher uses to decide whether normals are
	// trustworthy enough to gate k-d tree candidates on.
	IsPointCloud() bool
	// EnsureNormals asks the set to (re)compute per-vertex normals if it
	// has not already. BasicPointSet does not compute normals: it treats
	// caller-supplied normals as already computed and only returns an error
	// if one of them is degenerate (near zero length); mesh containers with
	// connectivity would derive normals from face adjacency here.
	EnsureNormals() error
}

// BasicPointSet is a slice-backed reference PointSet: every vertex's
// position and normal is supplied up front, there is no connectivity, and
// no vertex is ever a boundary vertex unless explicitly marked so via
// SetBoundary. It is a simple, fully in-memory implementation usable
// directly or as a model for a richer mesh-backed one.
type BasicPointSet struct {
	vertices   []Vertex
	boundary   map[int]bool
	isPointSet bool
}

// NewBasicPointSet builds a BasicPointSet from the given vertices.
// isPointCloud should be true iff the caller has no face/connectivity
// information for these vertices.
func NewBasicPointSet(vertices []Vertex, isPointCloud bool) *BasicPointSet {
	return &BasicPointSet{vertices: vertices, isPointSet: isPointCloud}
}

// SetBoundary marks vertex i as lying on the boundary.
func (s *BasicPointSet) SetBoundary(i int) {
	if s.boundary == nil {
		s.boundary = make(map[int]bool)
	}
	s.boundary[i] = true
}

func (s *BasicPointSet) Len() int { return len(s.vertices) }

func (s *BasicPointSet) Position(i int) r3.Vector { return s.vertices[i].Position }

func (s *BasicPointSet) Normal(i int) r3.Vector { return s.vertices[i].Normal }

func (s *BasicPointSet) IsBoundary(i int) bool { return s.boundary[i] }

func (s *BasicPointSet) IsPointCloud() bool { return s.isPointSet }

func (s *BasicPointSet) EnsureNormals() error {
	for i, v := range s.vertices {
		if v.Normal.Norm() < 1e-9 {
			return errors.Errorf("vertex %d has a degenerate normal", i)
		}
	}
	return nil
}

// BoundingBox returns the axis-aligned min/max corners of a point set's
// vertex positions. Used by BuildGrid, whose bounds in turn give the
// controller's maxdist default.
func BoundingBox(s PointSet) (min, max r3.Vector) {
	n := s.Len()
	if n == 0 {
		return r3.Vector{}, r3.Vector{}
	}
	min = s.Position(0)
	max = min
	for i := 1; i < n; i++ {
		p := s.Position(i)
		min.X, max.X = math.Min(min.X, p.X), math.Max(max.X, p.X)
		min.Y, max.Y = math.Min(min.Y, p.Y), math.Max(max.Y, p.Y)
		min.Z, max.Z = math.Min(min.Z, p.Z), math.Max(max.Z, p.Z)
	}
	return min, max
}

// BBoxSize returns the length of the bounding box's diagonal, the same
// value Grid.BBoxSize reports for a grid built over s.
func BBoxSize(s PointSet) float64 {
	min, max := BoundingBox(s)
	return max.Sub(min).Norm()
}

// Centroid returns the mean vertex position.
func Centroid(s PointSet) r3.Vector {
	n := s.Len()
	if n == 0 {
		return r3.Vector{}
	}
	var sum r3.Vector
	for i := 0; i < n; i++ {
		sum = sum.Add(s.Position(i))
	}
	return sum.Mul(1 / float64(n))
}
