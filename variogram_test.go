package variogram

import (
	"bytes"
	"errors"
	"log"
	"math"
	"math/rand"
	"strings"
	"testing"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// testField samples a smooth surface with a little noise at n random points.
func testField(n int, seed int64) ([][]float64, []float64) {
	rnd := rand.New(rand.NewSource(seed))
	coords := make([][]float64, n)
	values := make([]float64, n)
	for i := range coords {
		x, y := rnd.Float64()*100, rnd.Float64()*100
		coords[i] = []float64{x, y}
		values[i] = 3*math.Sin(x/40) + 2*math.Cos(y/50) + 0.2*rnd.NormFloat64()
	}
	return coords, values
}

func newTestVariogram(t *testing.T, opts Options) *Variogram {
	coords, values := testField(80, 7)
	v, err := New(coords, values, opts)
	require.NoError(t, err)
	return v
}

func TestNewValidation(t *testing.T) {
	a := assert.New(t)

	_, err := New([][]float64{{0, 0}}, []float64{1}, Options{})
	a.True(errors.Is(err, ErrTooFewSamples))

	_, err = New([][]float64{{0, 0}, {1, 1}}, []float64{1}, Options{})
	a.True(errors.Is(err, ErrLengthMismatch))

	_, err = New([][]float64{{0, 0}, {1}}, []float64{1, 2}, Options{})
	a.True(errors.Is(err, ErrLengthMismatch))

	_, err = New([][]float64{{0, 0}, {1, 1}}, []float64{1, 2}, Options{Estimator: "bogus"})
	a.True(errors.Is(err, ErrUnknownEstimator))

	_, err = New([][]float64{{0, 0}, {1, 1}}, []float64{1, 2}, Options{FitMethod: "trf"})
	a.True(errors.Is(err, ErrUnsupportedFitMethod))

	_, err = New([][]float64{{0, 0, 0}, {1, 1, 1}}, []float64{1, 2}, Options{Directional: true})
	a.True(errors.Is(err, ErrInvalidParameter))
}

func TestDefaults(t *testing.T) {
	a := assert.New(t)
	v := newTestVariogram(t, Options{})

	a.Equal("matheron", v.Estimator().Name)
	a.Equal("spherical", v.Model().Name)
	a.Equal("euclidean", v.DistanceName())
	a.Equal(Even, v.BinFunc())
	a.Equal(LeastSquares, v.FitMethod())
	a.True(v.Normalized())
	a.False(v.UseNugget())

	bins, err := v.Bins()
	a.NoError(err)
	a.Len(bins, 10)
}

func TestNewFromPositions(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)

	pos := []vec3d.T{{0, 0, 1}, {3, 4, 2}, {6, 8, 4}}
	v, err := NewFromPositions(pos, Options{Lags: 2})
	require.NoError(err)

	a.Equal([][]float64{{0, 0}, {3, 4}, {6, 8}}, v.Coordinates())
	a.Equal([]float64{1, 2, 4}, v.Values())

	dist, err := v.Distances()
	require.NoError(err)
	a.Equal([]float64{5, 10, 5}, dist)
	a.Equal([]float64{1, 3, 2}, v.Diffs())
}

func TestChangingLagsKeepsPairVectors(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)
	v := newTestVariogram(t, Options{Lags: 8})

	dist, err := v.Distances()
	require.NoError(err)
	diff := v.Diffs()
	bins, err := v.Bins()
	require.NoError(err)
	a.Len(bins, 8)

	require.NoError(v.SetLags(15))
	a.True(v.valid.valid(slotDistances))
	a.True(v.valid.valid(slotDiffs))
	a.False(v.valid.valid(slotBins))

	dist2, err := v.Distances()
	require.NoError(err)
	bins2, err := v.Bins()
	require.NoError(err)

	a.Equal(dist, dist2)
	a.Equal(diff, v.Diffs())
	a.Len(bins2, 15)

	a.True(errors.Is(v.SetLags(0), ErrInvalidParameter))
	bins3, err := v.Bins()
	require.NoError(err)
	a.Len(bins3, 15)
}

func TestUnknownEstimatorKeepsPrevious(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)
	v := newTestVariogram(t, Options{Estimator: Cressie})

	exp, err := v.Experimental()
	require.NoError(err)

	err = v.SetEstimator("bogus")
	a.True(errors.Is(err, ErrUnknownEstimator))
	a.Equal("cressie", v.Estimator().Name)
	a.True(v.valid.valid(slotExperimental))

	exp2, err := v.Experimental()
	require.NoError(err)
	a.Equal(exp, exp2)
}

func TestFailedSettersKeepState(t *testing.T) {
	a := assert.New(t)
	v := newTestVariogram(t, Options{})
	values := v.Values()

	a.True(errors.Is(v.SetModel("linear"), ErrUnknownModel))
	a.Equal("spherical", v.Model().Name)

	a.True(errors.Is(v.SetDistance("cosine"), ErrInvalidMetric))
	a.Equal("euclidean", v.DistanceName())

	a.True(errors.Is(v.SetBinFunc("kmeans"), ErrUnknownBinningStrategy))
	a.Equal(Even, v.BinFunc())

	a.True(errors.Is(v.SetFitMethod("trf"), ErrUnsupportedFitMethod))
	a.Equal(LeastSquares, v.FitMethod())

	a.True(errors.Is(v.SetValues(values[:3]), ErrLengthMismatch))
	a.Equal(values, v.Values())

	a.True(errors.Is(v.SetMaxLag(-1), ErrInvalidParameter))
	a.True(errors.Is(v.SetDirection(0, 0), ErrInvalidParameter))
}

func TestBinWidthTooSmall(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)
	v := newTestVariogram(t, Options{})

	require.NoError(v.SetBinWidth(1e-9))
	_, err := v.Bins()
	a.True(errors.Is(err, ErrInvalidParameter))

	require.NoError(v.SetBinWidth(0))
	bins, err := v.Bins()
	require.NoError(err)
	a.Len(bins, 10)
}

func TestStatisticsBeforeFit(t *testing.T) {
	a := assert.New(t)
	v := newTestVariogram(t, Options{})

	_, err := v.RMSE()
	a.True(errors.Is(err, ErrNotFitted))
	_, err = v.Statistics()
	a.True(errors.Is(err, ErrNotFitted))
	_, err = v.Residuals()
	a.True(errors.Is(err, ErrNotFitted))
	a.False(v.Fitted())

	require.NoError(t, v.Fit())
	_, err = v.RMSE()
	a.NoError(err)

	require.NoError(t, v.SetModel(Exponential))
	_, err = v.NashSutcliffe()
	a.True(errors.Is(err, ErrNotFitted))
}

func TestInvalidation(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)
	v := newTestVariogram(t, Options{})
	require.NoError(v.Fit())

	require.NoError(v.SetModel(Gaussian))
	a.True(v.valid.valid(slotExperimental))
	a.False(v.valid.valid(slotFit))

	require.NoError(v.Fit())
	require.NoError(v.SetEstimator(Dowd))
	a.True(v.valid.valid(slotBins))
	a.False(v.valid.valid(slotExperimental))
	a.False(v.valid.valid(slotFit))

	require.NoError(v.Fit())
	require.NoError(v.SetValues(v.Values()))
	a.True(v.valid.valid(slotDistances))
	a.True(v.valid.valid(slotBins))
	a.False(v.valid.valid(slotDiffs))
	a.False(v.valid.valid(slotExperimental))

	require.NoError(v.Preprocess(false))
	require.NoError(v.SetDistance(Euclidean))
	a.False(v.valid.valid(slotDistances))
	a.False(v.valid.valid(slotBins))
	a.True(v.valid.valid(slotDiffs))

	require.NoError(v.Preprocess(true))
	for s := slot(0); s < slotExperimental; s++ {
		a.True(v.valid.valid(s), "%s", s)
	}
}

func TestFitDescribe(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)
	v := newTestVariogram(t, Options{Model: Exponential, UseNugget: true})

	d, err := v.Describe()
	require.NoError(err)
	a.Equal("exponential", d.Name)
	a.Equal("matheron", d.Estimator)
	a.Nil(d.Shape)
	a.Nil(d.Smoothness)

	maxlag, err := v.MaxLag()
	require.NoError(err)
	exp, err := v.Experimental()
	require.NoError(err)

	a.Greater(d.Range, 0.0)
	a.LessOrEqual(d.Range, maxlag*(1+1e-9))
	a.LessOrEqual(d.Sill, nanMax(exp)*(1+1e-9))
	a.GreaterOrEqual(d.Nugget, 0.0)

	p, err := v.Parameters()
	require.NoError(err)
	a.Equal([]float64{d.Range, d.Sill, d.Nugget}, p)

	cof, err := v.Coefficients()
	require.NoError(err)
	a.Len(cof, 3)

	cov, err := v.Covariance()
	require.NoError(err)
	r, c := cov.Dims()
	a.Equal(3, r)
	a.Equal(3, c)

	ns, err := v.NashSutcliffe()
	require.NoError(err)
	a.Greater(ns, 0.0)
}

func TestNuggetNeverIncreasesError(t *testing.T) {
	for _, m := range []ModelType{Spherical, Exponential, Gaussian, Cubic, Stable, Matern} {
		plain := newTestVariogram(t, Options{Model: m})
		nugget := newTestVariogram(t, Options{Model: m, UseNugget: true})

		want, err := plain.RMSE()
		if !assert.NoError(t, err, "%s", m) {
			continue
		}
		got, err := nugget.RMSE()
		if !assert.NoError(t, err, "%s", m) {
			continue
		}
		assert.LessOrEqual(t, got, want*(1+1e-6)+1e-12, "%s", m)
	}
}

func TestNuggetBoundWithoutNormalization(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)

	coords, values := testField(80, 7)
	floats.Scale(100, values)
	v, err := New(coords, values, Options{Normalize: new(bool), UseNugget: true})
	require.NoError(err)

	d, err := v.Describe()
	require.NoError(err)
	a.GreaterOrEqual(d.Nugget, 0.0)
	a.LessOrEqual(d.Nugget, nuggetBound)
	a.Greater(d.Sill, 1.0)
}

func TestDescribeShape(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)

	v := newTestVariogram(t, Options{Model: Stable})
	d, err := v.Describe()
	require.NoError(err)
	require.NotNil(d.Shape)
	a.Nil(d.Smoothness)
	a.LessOrEqual(*d.Shape, 2.0)

	p, err := v.Parameters()
	require.NoError(err)
	a.Len(p, 4)
	a.Equal(0.0, p[3])
}

func TestNormalizeToggle(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)
	v := newTestVariogram(t, Options{})

	require.NoError(v.Fit())
	rmseNorm, err := v.RMSE()
	require.NoError(err)
	dNorm, err := v.Describe()
	require.NoError(err)
	scale := v.fit.varScale
	a.Greater(scale, 1.0)

	v.SetNormalize(false)
	require.NoError(v.Fit())
	rmse, err := v.RMSE()
	require.NoError(err)
	d, err := v.Describe()
	require.NoError(err)

	a.InEpsilon(rmse, rmseNorm*scale, 1e-2)
	a.InEpsilon(d.Range, dNorm.Range, 1e-2)
	a.InEpsilon(d.Sill, dNorm.Sill, 1e-2)
}

func TestTooFewLagClasses(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)
	v := newTestVariogram(t, Options{Lags: 1})

	err := v.Fit()
	a.True(errors.Is(err, ErrFitDidNotConverge))
	a.False(v.Fitted())
	a.True(v.valid.valid(slotExperimental))

	require.NoError(v.SetLags(6))
	a.NoError(v.Fit())
}

func TestCurve(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)
	v := newTestVariogram(t, Options{})

	x, y, err := v.Curve(50)
	require.NoError(err)
	a.Len(x, 50)
	a.Len(y, 50)
	a.Equal(0.0, x[0])
	a.Equal(0.0, y[0])

	centers, err := v.BinCenters()
	require.NoError(err)
	a.InDelta(centers[len(centers)-1], x[49], 1e-9)

	d, err := v.Describe()
	require.NoError(err)
	a.LessOrEqual(y[49], d.Sill*(1+1e-9))
}

func TestHistogram(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)
	v := newTestVariogram(t, Options{MaxLag: 0.5})

	hist, err := v.Histogram()
	require.NoError(err)
	groups, err := v.Groups()
	require.NoError(err)

	total := 0
	for _, c := range hist {
		total += c
	}
	retained := 0
	for _, g := range groups {
		if g != excluded {
			retained++
		}
	}
	a.Equal(retained, total)
	a.Less(total, PairCount(80))
}

func TestEmptyLagClassesWarning(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)

	var buf bytes.Buffer
	coords := [][]float64{{0}, {1}, {10}, {11}}
	v, err := New(coords, []float64{1, 2, 3, 4}, Options{Logger: log.New(&buf, "", 0)})
	require.NoError(err)

	empty, err := v.EmptyLagClasses()
	require.NoError(err)
	a.Equal([]int{1, 2, 3, 4, 5, 6, 7}, empty)
	a.Contains(buf.String(), "lag classes [1 2 3 4 5 6 7]")

	exp, err := v.Experimental()
	require.NoError(err)
	a.True(math.IsNaN(exp[3]))
	a.False(math.IsNaN(exp[0]))
}

func TestDirectional(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)

	coords := [][]float64{{0, 0}, {1, 0}, {0, 1}}
	v, err := New(coords, []float64{1, 2, 3}, Options{Lags: 1, Directional: true, Tolerance: 10})
	require.NoError(err)

	groups, err := v.Groups()
	require.NoError(err)
	// pairs: (1,0) along x, (2,0) along y, (2,1) at 135 degrees
	a.Equal([]int{0, excluded, excluded}, groups)

	require.NoError(v.SetDirection(90, 10))
	groups, err = v.Groups()
	require.NoError(err)
	a.Equal([]int{excluded, 0, excluded}, groups)

	require.NoError(v.SetDirection(-45, 10))
	groups, err = v.Groups()
	require.NoError(err)
	a.Equal([]int{excluded, excluded, 0}, groups)

	v.SetOmnidirectional()
	groups, err = v.Groups()
	require.NoError(err)
	a.Equal([]int{0, 0, 0}, groups)
}

func TestCustomEstimatorAndModel(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)

	mean := func(x []float64) float64 {
		if len(x) == 0 {
			return math.NaN()
		}
		var s float64
		for _, v := range x {
			s += v
		}
		return s / float64(len(x))
	}
	linear := func(h float64, p ...float64) float64 {
		return math.Min(h/p[0], 1) * p[1]
	}

	v := newTestVariogram(t, Options{EstimatorFunc: mean, ModelFunc: linear})
	a.Equal("custom", v.Estimator().Name)
	a.Equal("custom", v.Model().Name)

	d, err := v.Describe()
	require.NoError(err)
	a.Equal("custom", d.Name)
	a.Greater(d.Sill, 0.0)
}

func TestClone(t *testing.T) {
	a := assert.New(t)
	require := require.New(t)
	v := newTestVariogram(t, Options{})
	require.NoError(v.Fit())

	c := v.Clone()
	a.True(c.Fitted())

	exp, err := v.Experimental()
	require.NoError(err)
	values := v.Values()
	for i := range values {
		values[i] *= 2
	}
	require.NoError(c.SetValues(values))
	require.NoError(c.SetLags(4))

	a.True(v.Fitted())
	exp2, err := v.Experimental()
	require.NoError(err)
	a.Equal(exp, exp2)

	bins, err := v.Bins()
	require.NoError(err)
	a.Len(bins, 10)

	cexp, err := c.Experimental()
	require.NoError(err)
	a.Len(cexp, 4)
}

func TestString(t *testing.T) {
	a := assert.New(t)
	v := newTestVariogram(t, Options{Model: Gaussian})

	s := v.String()
	a.True(strings.HasPrefix(s, "gaussian Variogram\n------------------\n"))
	a.Contains(s, "Estimator:  matheron")
	a.Contains(s, "Range:")
	a.NotContains(s, "NaN")
}
