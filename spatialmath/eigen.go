package spatialmath

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// EigenSym holds the result of a symmetric eigendecomposition: Values[i] is
// the i-th eigenvalue and Vectors' i-th column is its eigenvector, sorted
// ascending by value. Used for both the 3x3 and 6x6 decompositions the
// aligner needs.
type EigenSym struct {
	N       int
	Values  []float64
	Vectors *mat.Dense // N x N, column j is the eigenvector for Values[j]
}

// Decompose runs a symmetric eigendecomposition on the given square,
// symmetric, row-major matrix (only the upper triangle is read).
func Decompose(n int, a [][]float64) (*EigenSym, error) {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = a[i][j]
		}
	}
	sym := mat.NewSymDense(n, data)

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, errors.New("symmetric eigendecomposition failed to converge")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// gonum does not guarantee value ordering; sort ascending and permute
	// vectors to match, since both the importance reweighter and the Huber
	// solve index eigenpairs by position.
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return values[idx[i]] < values[idx[j]] })

	sortedValues := make([]float64, n)
	sortedVectors := mat.NewDense(n, n, nil)
	for newCol, oldCol := range idx {
		sortedValues[newCol] = values[oldCol]
		for row := 0; row < n; row++ {
			sortedVectors.Set(row, newCol, vectors.At(row, oldCol))
		}
	}

	return &EigenSym{N: n, Values: sortedValues, Vectors: sortedVectors}, nil
}

// InvEigenvalues returns 1/value for each eigenvalue, raising any value
// below floor (including negative ones) to floor to avoid division blowups
// on near-singular directions.
func (e *EigenSym) InvEigenvalues(floor float64) []float64 {
	out := make([]float64, e.N)
	for i, v := range e.Values {
		if v < floor {
			v = floor
		}
		out[i] = 1 / v
	}
	return out
}

// EigMult rotates b into the eigenbasis, scales by einv, and rotates back:
// solves A^-1 * b given A's eigendecomposition.
func (e *EigenSym) EigMult(einv []float64, b []float64) []float64 {
	n := e.N
	proj := make([]float64, n)
	for j := 0; j < n; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += e.Vectors.At(i, j) * b[i]
		}
		proj[j] = sum * einv[j]
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += e.Vectors.At(i, j) * proj[j]
		}
		out[i] = sum
	}
	return out
}
