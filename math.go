package variogram

import (
	"math"
)

func exp(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Exp(x)
}

func pow2(x float64) float64 {
	return x * x
}

func pow3(x float64) float64 {
	return x * x * x
}

// linspace returns n evenly spaced values over [start, stop].
func linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	ret := make([]float64, n)
	if n == 1 {
		ret[0] = start
		return ret
	}
	step := (stop - start) / float64(n-1)
	for i := range ret {
		ret[i] = start + step*float64(i)
	}
	ret[n-1] = stop
	return ret
}

// dropNaN returns the pairs of x and y where neither side is NaN.
func dropNaN(x, y []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// nanMax returns the largest non-NaN value, NaN if there is none.
func nanMax(x []float64) float64 {
	ret := math.NaN()
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(ret) || v > ret {
			ret = v
		}
	}
	return ret
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
