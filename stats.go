package variogram

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// All measures below compare an experimental curve with a model curve of the
// same length. A lag class where either side is NaN is left out of every
// aggregate, so one empty class does not turn the result into NaN. When no
// class is left the result is NaN.

func residualsOf(experimental, model []float64) []float64 {
	ret := make([]float64, len(experimental))
	for i := range experimental {
		ret[i] = model[i] - experimental[i]
	}
	return ret
}

func meanResidualOf(experimental, model []float64) float64 {
	e, m := dropNaN(experimental, model)
	if len(e) == 0 {
		return math.NaN()
	}
	var s float64
	for i := range e {
		s += math.Abs(m[i] - e[i])
	}
	return s / float64(len(e))
}

func sumSquares(e, m []float64) float64 {
	var s float64
	for i := range e {
		s += pow2(e[i] - m[i])
	}
	return s
}

func rmseOf(experimental, model []float64) float64 {
	e, m := dropNaN(experimental, model)
	if len(e) == 0 {
		return math.NaN()
	}
	return math.Sqrt(sumSquares(e, m) / float64(len(e)))
}

// nrmseOf normalizes the RMSE by the mean experimental value.
func nrmseOf(experimental, model []float64) float64 {
	e, _ := dropNaN(experimental, model)
	if len(e) == 0 {
		return math.NaN()
	}
	return rmseOf(experimental, model) / stat.Mean(e, nil)
}

// nrmseROf normalizes the RMSE by the range of the experimental values.
func nrmseROf(experimental, model []float64) float64 {
	e, _ := dropNaN(experimental, model)
	if len(e) == 0 {
		return math.NaN()
	}
	return rmseOf(experimental, model) / (floats.Max(e) - floats.Min(e))
}

func pearsonOf(experimental, model []float64) float64 {
	e, m := dropNaN(experimental, model)
	if len(e) < 2 {
		return math.NaN()
	}
	return stat.Correlation(e, m, nil)
}

// nashSutcliffeOf is 1 - SSE / SST of the experimental values.
func nashSutcliffeOf(experimental, model []float64) float64 {
	e, m := dropNaN(experimental, model)
	if len(e) == 0 {
		return math.NaN()
	}
	mean := stat.Mean(e, nil)

	var sst float64
	for _, v := range e {
		sst += pow2(v - mean)
	}
	return 1 - sumSquares(e, m)/sst
}

func statisticsOf(experimental, model []float64) Statistics {
	return Statistics{
		MeanResidual:  meanResidualOf(experimental, model),
		RMSE:          rmseOf(experimental, model),
		NRMSE:         nrmseOf(experimental, model),
		NRMSER:        nrmseROf(experimental, model),
		Pearson:       pearsonOf(experimental, model),
		NashSutcliffe: nashSutcliffeOf(experimental, model),
	}
}
