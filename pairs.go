package variogram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DistanceFunc computes the condensed pairwise distance vector of coords.
// The result must follow the pair order of PairIndex: for every i, all j < i.
type DistanceFunc func(coords [][]float64) []float64

// PairCount returns the number of unordered pairs among n points.
func PairCount(n int) int {
	if n < 2 {
		return 0
	}
	return (n*n - n) / 2
}

// PairIndex returns the sample indices (i, j), i > j, of the k-th pair.
func PairIndex(k int) (int, int) {
	i := int((1 + math.Sqrt(1+8*float64(k))) / 2)
	// float rounding near perfect squares
	for i*(i-1)/2 > k {
		i--
	}
	for (i+1)*i/2 <= k {
		i++
	}
	return i, k - i*(i-1)/2
}

// NewDistance returns the built-in metric for kind.
func NewDistance(kind DistanceKind) (DistanceFunc, error) {
	switch kind {
	case Euclidean:
		return euclideanDistances, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMetric, kind)
	}
}

func euclideanDistances(coords [][]float64) []float64 {
	n := len(coords)
	dist := make([]float64, PairCount(n))

	k := 0
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			dist[k] = floats.Distance(coords[i], coords[j], 2)
			k++
		}
	}
	return dist
}

// pairDiffs returns |v[i] - v[j]| in pair order.
func pairDiffs(values []float64) []float64 {
	n := len(values)
	diff := make([]float64, PairCount(n))

	k := 0
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			diff[k] = math.Abs(values[i] - values[j])
			k++
		}
	}
	return diff
}

// pairVectors returns the 2-D separation vector of every pair, used by the
// directional filter.
func pairVectors(coords [][]float64) [][2]float64 {
	n := len(coords)
	vec := make([][2]float64, PairCount(n))

	k := 0
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			vec[k] = [2]float64{coords[i][0] - coords[j][0], coords[i][1] - coords[j][1]}
			k++
		}
	}
	return vec
}

func computeDistances(fn DistanceFunc, coords [][]float64) ([]float64, error) {
	dist := fn(coords)
	if want := PairCount(len(coords)); len(dist) != want {
		return nil, fmt.Errorf("%w: distance function returned %d values, want %d", ErrLengthMismatch, len(dist), want)
	}
	for k, d := range dist {
		if math.IsNaN(d) || d < 0 {
			return nil, fmt.Errorf("%w: distance %d is %v", ErrInvalidParameter, k, d)
		}
	}
	return dist, nil
}
