package variogram

import (
	"gonum.org/v1/gonum/mat"
)

// matrixInverse inverts the row major n x n matrix x. The second result is
// false when x is singular or badly conditioned.
func matrixInverse(x []float64, n int) ([]float64, bool) {
	a := mat.NewDense(n, n, append([]float64(nil), x...))
	var ia mat.Dense

	err := ia.Inverse(a)
	if err != nil {
		return nil, false
	}

	return ia.RawMatrix().Data, true
}
