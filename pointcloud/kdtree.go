package pointcloud

import (
	"sort"

	"github.com/golang/geo/r3"
)

// NormCompatPredicate is the descent-time compatibility callback: it
// receives a candidate's position and normal in the tree's own
// (untransformed) coordinates, as stored in its backing PointSet, and
// decides whether the candidate may be accepted, independent of distance.
// The tree is responsible for re-entering siblings when the
// nearest-by-distance candidate is rejected by the predicate.
type NormCompatPredicate func(candidatePos, candidateNormal r3.Vector) bool

// KDTree is the narrow nearest-neighbor collaborator the matcher needs:
// nearest-within-radius, with an optional per-candidate predicate. The
// returned index identifies which vertex of the tree's backing PointSet
// produced the match.
type KDTree interface {
	// NearestNeighbor returns the index of the nearest point to p within
	// maxSqDist (squared distance), subject to pred if non-nil. ok is
	// false if no candidate qualifies.
	NearestNeighbor(p r3.Vector, maxSqDist float64, pred NormCompatPredicate) (idx int, ok bool)
	Len() int
	// Set returns the PointSet this tree indexes, letting a caller recover
	// the backing geometry from a tree alone.
	Set() PointSet
}

// kdNode is one node of the reference k-d tree: an index into the backing
// PointSet plus the split axis used at this node.
type kdNode struct {
	idx         int
	axis        int
	left, right *kdNode
}

// BasicKDTree is a reference, in-memory k-d tree over a PointSet's
// positions, extended with a normal-compatibility predicate that the
// matcher can inject at query time.
type BasicKDTree struct {
	set  PointSet
	root *kdNode
}

// NewKDTree builds a balanced k-d tree over every vertex of set.
func NewKDTree(set PointSet) *BasicKDTree {
	n := set.Len()
	idxs := make([]int, n)
	for i := range idxs {
		idxs[i] = i
	}
	t := &BasicKDTree{set: set}
	t.root = t.build(idxs, 0)
	return t
}

func (t *BasicKDTree) Len() int { return t.set.Len() }

func (t *BasicKDTree) Set() PointSet { return t.set }

func (t *BasicKDTree) build(idxs []int, depth int) *kdNode {
	if len(idxs) == 0 {
		return nil
	}
	axis := depth % 3
	sort.Slice(idxs, func(i, j int) bool {
		return axisValue(t.set.Position(idxs[i]), axis) < axisValue(t.set.Position(idxs[j]), axis)
	})
	mid := len(idxs) / 2
	node := &kdNode{idx: idxs[mid], axis: axis}
	node.left = t.build(idxs[:mid], depth+1)
	node.right = t.build(idxs[mid+1:], depth+1)
	return node
}

func axisValue(p r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// NearestNeighbor implements KDTree.NearestNeighbor: descend toward the
// query, accepting the closest leaf that satisfies both the squared-distance
// cutoff and, if given, pred; re-enter the sibling subtree whenever it could
// contain a closer (and possibly predicate-accepting) point.
func (t *BasicKDTree) NearestNeighbor(p r3.Vector, maxSqDist float64, pred NormCompatPredicate) (int, bool) {
	if t.root == nil {
		return 0, false
	}
	best := -1
	bestDist := maxSqDist
	var search func(n *kdNode)
	search = func(n *kdNode) {
		if n == nil {
			return
		}
		pos := t.set.Position(n.idx)
		d := p.Sub(pos).Norm2()
		if d <= bestDist && (pred == nil || pred(pos, t.set.Normal(n.idx))) {
			bestDist = d
			best = n.idx
		}

		diff := axisValue(p, n.axis) - axisValue(pos, n.axis)
		near, far := n.left, n.right
		if diff > 0 {
			near, far = n.right, n.left
		}
		search(near)
		if diff*diff <= bestDist {
			search(far)
		}
	}
	search(t.root)
	if best < 0 {
		return 0, false
	}
	return best, true
}
