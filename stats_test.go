package variogram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatisticsPerfectFit(t *testing.T) {
	a := assert.New(t)

	exp := []float64{1, 2, 3, 4}
	s := statisticsOf(exp, exp)

	a.Equal(0.0, s.MeanResidual)
	a.Equal(0.0, s.RMSE)
	a.Equal(0.0, s.NRMSE)
	a.Equal(0.0, s.NRMSER)
	a.InDelta(1, s.Pearson, 1e-12)
	a.Equal(1.0, s.NashSutcliffe)
}

func TestStatistics(t *testing.T) {
	a := assert.New(t)

	exp := []float64{1, 2, 3, 4}
	model := []float64{2, 2, 3, 3}

	a.Equal([]float64{1, 0, 0, -1}, residualsOf(exp, model))
	a.Equal(0.5, meanResidualOf(exp, model))
	a.InDelta(math.Sqrt(0.5), rmseOf(exp, model), 1e-12)
	a.InDelta(math.Sqrt(0.5)/2.5, nrmseOf(exp, model), 1e-12)
	a.InDelta(math.Sqrt(0.5)/3, nrmseROf(exp, model), 1e-12)
	// SSE 2, SST 5
	a.InDelta(0.6, nashSutcliffeOf(exp, model), 1e-12)
}

func TestStatisticsSkipNaN(t *testing.T) {
	a := assert.New(t)

	exp := []float64{1, math.NaN(), 2, 3, 4}
	model := []float64{2, 7, 2, 3, 3}

	res := residualsOf(exp, model)
	a.True(math.IsNaN(res[1]))
	a.Equal(1.0, res[0])

	a.InDelta(math.Sqrt(0.5), rmseOf(exp, model), 1e-12)
	a.InDelta(0.6, nashSutcliffeOf(exp, model), 1e-12)
	a.False(math.IsNaN(pearsonOf(exp, model)))

	a.True(math.IsNaN(rmseOf([]float64{math.NaN()}, []float64{1})))
	a.True(math.IsNaN(pearsonOf([]float64{1}, []float64{1})))
}
