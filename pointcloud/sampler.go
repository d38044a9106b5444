package pointcloud

import (
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// CDF is a non-decreasing sequence of length N with CDF[N-1] == 1.0 and
// CDF[0] >= 0, representing the cumulative sum of per-vertex weights
// normalized by their L1 norm.
type CDF []float64

// BuildUniformCDF returns the CDF of n equal weights.
func BuildUniformCDF(n int) CDF {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}
	return BuildCDF(weights)
}

// BuildCDF normalizes weights into a proper CDF. The partial sums are
// computed in parallel chunks and combined serially; the result is still
// computed as a strict prefix sum so CDF stays non-decreasing regardless of
// worker count.
func BuildCDF(weights []float64) CDF {
	n := len(weights)
	if n == 0 {
		return CDF{}
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > n {
		numWorkers = n
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	chunk := (n + numWorkers - 1) / numWorkers
	partialSums := make([]float64, numWorkers)

	var eg errgroup.Group
	for w := 0; w < numWorkers; w++ {
		w := w
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		eg.Go(func() error {
			var sum float64
			for i := start; i < end; i++ {
				sum += weights[i]
			}
			partialSums[w] = sum
			return nil
		})
	}
	_ = eg.Wait()

	var total float64
	for _, s := range partialSums {
		total += s
	}

	cdf := make(CDF, n)
	if total <= 0 {
		// Zero-overlap condition: caller (the reweighter/controller) treats
		// this as a failure signal.
		return cdf
	}
	var running float64
	for i, w := range weights {
		running += w
		cdf[i] = running / total
	}
	cdf[n-1] = 1.0
	return cdf
}

// DrawIndices draws approximately 1/increment samples from cdf, spaced by
// increment starting at a uniform random offset in [0, increment).
func DrawIndices(cdf CDF, increment float64, rng *rand.Rand) []int {
	if len(cdf) == 0 || increment <= 0 {
		return nil
	}
	var indices []int
	current := increment * rng.Float64()
	for current < 1.0 {
		idx := searchCDF(cdf, current)
		indices = append(indices, idx)
		current += increment
	}
	return indices
}

// searchCDF finds the smallest index i with cdf[i] > value; sort.Search
// already implements exactly that bisection.
func searchCDF(cdf CDF, value float64) int {
	i := sort.Search(len(cdf), func(i int) bool { return cdf[i] > value })
	if i >= len(cdf) {
		i = len(cdf) - 1
	}
	return i
}
