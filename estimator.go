package variogram

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EstimatorFunc aggregates the dissimilarities of one lag class into a
// single value. It must return NaN for an empty class.
type EstimatorFunc func(diffs []float64) float64

// Estimator is a named EstimatorFunc.
type Estimator struct {
	Name string
	Func EstimatorFunc
}

// NewEstimator returns the built-in estimator t.
func NewEstimator(t EstimatorType) (Estimator, error) {
	var fn EstimatorFunc
	switch t {
	case Matheron:
		fn = matheron
	case Cressie:
		fn = cressie
	case Dowd:
		fn = dowd
	case Genton:
		fn = genton
	case MinMax:
		fn = minmax
	case Entropy:
		fn = entropy
	default:
		return Estimator{}, fmt.Errorf("%w: %q", ErrUnknownEstimator, t)
	}
	return Estimator{Name: string(t), Func: fn}, nil
}

// CustomEstimator wraps a user supplied function.
func CustomEstimator(name string, fn EstimatorFunc) Estimator {
	return Estimator{Name: name, Func: fn}
}

// matheron is the classical estimator, half the mean squared difference.
func matheron(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return floats.Dot(x, x) / (2 * float64(len(x)))
}

func cressie(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	n := float64(len(x))

	var s float64
	for _, v := range x {
		s += math.Sqrt(v)
	}
	term1 := math.Pow(s/n, 4)
	term2 := 0.457 + 0.494/n
	return 0.5 * term1 / term2
}

func dowd(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return 2.198 * pow2(median(x)) / 2
}

// genton uses the Qn scale estimator over the differences within the class.
func genton(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return math.NaN()
	}

	d := make([]float64, 0, PairCount(n))
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			d = append(d, math.Abs(x[i]-x[j]))
		}
	}
	sort.Float64s(d)

	h := n/2 + 1
	k := h * (h - 1) / 2
	q := d[k-1]
	return 0.5 * pow2(2.2191*q)
}

func minmax(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	max, min := floats.Max(x), floats.Min(x)
	if max+min == 0 {
		return 0
	}
	return (max - min) / (max + min)
}

const entropyEdges = 50

// entropy is the Shannon entropy in bits of a histogram of the class.
func entropy(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)

	min, max := s[0], s[len(s)-1]
	if min == max {
		return 0
	}

	dividers := linspace(min, max, entropyEdges)
	// stat.Histogram needs every value strictly below the last divider
	dividers[entropyEdges-1] = math.Nextafter(max, math.Inf(1))

	count := stat.Histogram(nil, dividers, s, nil)
	p := make([]float64, len(count))
	floats.ScaleTo(p, 1/floats.Sum(count), count)
	return stat.Entropy(p) / math.Ln2
}

func median(x []float64) float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)

	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
