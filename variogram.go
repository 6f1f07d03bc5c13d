// Package variogram computes experimental semivariograms from spatial samples
// and fits theoretical variogram models to them.
//
// A Variogram keeps its derived data (pairwise distances and differences, lag
// classes, the experimental curve and the fitted model) in lazily computed
// slots. Every setter invalidates the slots that depend on what it changed,
// the next read recomputes them. A Variogram is not safe for concurrent use.
package variogram

import (
	"fmt"
	"log"
	"math"
	"strings"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultLags      = 10
	defaultTolerance = 45.0
	nuggetBound      = 0.99
	customName       = "custom"
)

// Options configures a Variogram. Zero values select the defaults: matheron
// estimator, spherical model, euclidean distance, even binning with 10 lag
// classes, normalization on, least squares fit, no nugget.
type Options struct {
	Estimator EstimatorType
	// EstimatorFunc replaces Estimator when set.
	EstimatorFunc EstimatorFunc

	Model ModelType
	// ModelFunc replaces Model when set, it is fitted as a range and sill model.
	ModelFunc ModelFunc

	DistFunc DistanceKind
	// DistanceFunc replaces DistFunc when set.
	DistanceFunc DistanceFunc

	BinFunc   BinFunc
	Normalize *bool
	FitMethod FitMethod
	// UseNugget fits a nugget bounded by 0.99 in fitting units. Without
	// normalization that is 0.99 in the units of the values.
	UseNugget bool

	// MaxLag is the largest lag taken into account. Zero uses the largest
	// distance, a value in (0, 1) is a fraction of it.
	MaxLag float64
	Lags   int
	// BinWidth derives the number of lag classes from the max lag when > 0.
	BinWidth float64

	// Directional keeps only pairs pointing along Azimuth (degrees,
	// counterclockwise from the x axis) within Tolerance degrees. 2-D only.
	Directional bool
	Azimuth     float64
	Tolerance   float64

	MaxIterations int
	Logger        *log.Logger
}

type fitState struct {
	// bin centers and experimental values in fitting units, NaN kept
	x, y []float64

	lagScale float64
	varScale float64

	params     []float64
	cov        *mat.Dense
	iterations int
}

type Variogram struct {
	coords [][]float64
	values []float64

	estimator Estimator
	model     Model
	distFunc  DistanceFunc
	distName  string
	binFunc   BinFunc
	normalize bool
	fitMethod FitMethod
	useNugget bool

	maxlag   float64
	lags     int
	binWidth float64

	directional bool
	azimuth     float64
	tolerance   float64

	maxIter int
	logger  *log.Logger

	valid slots
	dist  []float64
	diff  []float64
	bins  *lagClasses
	exp   []float64
	fit   *fitState
}

// New creates a Variogram over coords and values and runs the preprocessing.
func New(coords [][]float64, values []float64, opts Options) (*Variogram, error) {
	v := &Variogram{
		lags:      defaultLags,
		tolerance: defaultTolerance,
		normalize: true,
		fitMethod: LeastSquares,
		binFunc:   Even,
		maxIter:   defaultMaxIterations,
		logger:    log.Default(),
	}
	if err := v.SetSamples(coords, values); err != nil {
		return nil, err
	}
	if err := v.configure(opts); err != nil {
		return nil, err
	}
	if err := v.Preprocess(false); err != nil {
		return nil, err
	}
	return v, nil
}

// NewFromPositions uses x and y of every position as coordinate and z as value.
func NewFromPositions(pos []vec3d.T, opts Options) (*Variogram, error) {
	coords, values := splitPositions(pos)
	return New(coords, values, opts)
}

func splitPositions(pos []vec3d.T) ([][]float64, []float64) {
	coords := make([][]float64, len(pos))
	values := make([]float64, len(pos))
	for i := range pos {
		coords[i] = []float64{pos[i][0], pos[i][1]}
		values[i] = pos[i][2]
	}
	return coords, values
}

func (v *Variogram) configure(opts Options) error {
	if opts.EstimatorFunc != nil {
		v.SetEstimatorFunc(customName, opts.EstimatorFunc)
	} else if err := v.SetEstimator(orDefault(opts.Estimator, Matheron)); err != nil {
		return err
	}

	if opts.ModelFunc != nil {
		v.SetModelFunc(customName, opts.ModelFunc)
	} else if err := v.SetModel(orDefault(opts.Model, Spherical)); err != nil {
		return err
	}

	if opts.DistanceFunc != nil {
		v.SetDistanceFunc(opts.DistanceFunc)
	} else if err := v.SetDistance(orDefault(opts.DistFunc, Euclidean)); err != nil {
		return err
	}

	if err := v.SetBinFunc(orDefault(opts.BinFunc, Even)); err != nil {
		return err
	}
	if err := v.SetFitMethod(orDefault(opts.FitMethod, LeastSquares)); err != nil {
		return err
	}
	if opts.Normalize != nil {
		v.SetNormalize(*opts.Normalize)
	}
	v.SetUseNugget(opts.UseNugget)

	if err := v.SetMaxLag(opts.MaxLag); err != nil {
		return err
	}
	if opts.Lags != 0 {
		if err := v.SetLags(opts.Lags); err != nil {
			return err
		}
	}
	if err := v.SetBinWidth(opts.BinWidth); err != nil {
		return err
	}

	if opts.Directional {
		tol := opts.Tolerance
		if tol == 0 {
			tol = defaultTolerance
		}
		if err := v.SetDirection(opts.Azimuth, tol); err != nil {
			return err
		}
	}

	if opts.MaxIterations != 0 {
		if err := v.SetMaxIterations(opts.MaxIterations); err != nil {
			return err
		}
	}
	if opts.Logger != nil {
		v.SetLogger(opts.Logger)
	}
	return nil
}

func orDefault[T ~string](v, def T) T {
	if v == "" {
		return def
	}
	return v
}

func validateSamples(coords [][]float64, values []float64) error {
	if len(coords) != len(values) {
		return fmt.Errorf("%w: %d coordinates, %d values", ErrLengthMismatch, len(coords), len(values))
	}
	if len(coords) < 2 {
		return fmt.Errorf("%w: %d samples", ErrTooFewSamples, len(coords))
	}
	dim := len(coords[0])
	if dim == 0 {
		return fmt.Errorf("%w: coordinates have no dimension", ErrInvalidParameter)
	}
	for i, c := range coords {
		if len(c) != dim {
			return fmt.Errorf("%w: coordinate %d has %d dimensions, want %d", ErrLengthMismatch, i, len(c), dim)
		}
	}
	return nil
}

// SetSamples replaces coordinates and values and drops all derived data.
func (v *Variogram) SetSamples(coords [][]float64, values []float64) error {
	if err := validateSamples(coords, values); err != nil {
		return err
	}
	if v.directional && len(coords[0]) != 2 {
		return fmt.Errorf("%w: directional variograms need 2-D coordinates", ErrInvalidParameter)
	}

	v.coords = make([][]float64, len(coords))
	for i, c := range coords {
		v.coords[i] = append([]float64(nil), c...)
	}
	v.values = append([]float64(nil), values...)
	v.dist = nil
	v.valid.invalidateAll()
	return nil
}

// SetValues replaces the observed values, the coordinates stay.
func (v *Variogram) SetValues(values []float64) error {
	if len(values) != len(v.coords) {
		return fmt.Errorf("%w: %d values for %d coordinates", ErrLengthMismatch, len(values), len(v.coords))
	}
	v.values = append([]float64(nil), values...)
	v.valid.invalidate(slotDiffs)
	return nil
}

func (v *Variogram) SetEstimator(t EstimatorType) error {
	e, err := NewEstimator(t)
	if err != nil {
		return err
	}
	v.estimator = e
	v.valid.invalidate(slotExperimental)
	return nil
}

// SetEstimatorFunc installs a custom estimator without validation.
func (v *Variogram) SetEstimatorFunc(name string, fn EstimatorFunc) {
	v.estimator = CustomEstimator(name, fn)
	v.valid.invalidate(slotExperimental)
}

func (v *Variogram) SetModel(t ModelType) error {
	m, err := NewModel(t)
	if err != nil {
		return err
	}
	v.model = m
	v.valid.invalidate(slotFit)
	return nil
}

func (v *Variogram) SetModelFunc(name string, fn ModelFunc) {
	v.model = CustomModel(name, fn)
	v.valid.invalidate(slotFit)
}

func (v *Variogram) SetDistance(kind DistanceKind) error {
	fn, err := NewDistance(kind)
	if err != nil {
		return err
	}
	v.setDistance(string(kind), fn)
	return nil
}

// SetDistanceFunc installs a custom metric. fn must follow the pair order of
// PairIndex.
func (v *Variogram) SetDistanceFunc(fn DistanceFunc) {
	v.setDistance(customName, fn)
}

func (v *Variogram) setDistance(name string, fn DistanceFunc) {
	v.distName = name
	v.distFunc = fn
	v.dist = nil
	v.valid.invalidate(slotDistances)
}

func (v *Variogram) SetBinFunc(fn BinFunc) error {
	if err := validBinFunc(fn); err != nil {
		return err
	}
	v.binFunc = fn
	v.valid.invalidate(slotBins)
	return nil
}

func (v *Variogram) SetLags(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d lag classes", ErrInvalidParameter, n)
	}
	v.lags = n
	v.valid.invalidate(slotBins)
	return nil
}

// SetBinWidth makes the lag class count follow from the max lag. Zero goes
// back to the configured count.
func (v *Variogram) SetBinWidth(w float64) error {
	if w < 0 || math.IsNaN(w) {
		return fmt.Errorf("%w: bin width %v", ErrInvalidParameter, w)
	}
	v.binWidth = w
	v.valid.invalidate(slotBins)
	return nil
}

func (v *Variogram) SetMaxLag(maxlag float64) error {
	if maxlag < 0 || math.IsNaN(maxlag) {
		return fmt.Errorf("%w: max lag %v", ErrInvalidParameter, maxlag)
	}
	v.maxlag = maxlag
	v.valid.invalidate(slotBins)
	return nil
}

// SetDirection turns the directional filter on.
func (v *Variogram) SetDirection(azimuth, tolerance float64) error {
	if len(v.coords[0]) != 2 {
		return fmt.Errorf("%w: directional variograms need 2-D coordinates", ErrInvalidParameter)
	}
	if tolerance <= 0 || tolerance > 180 {
		return fmt.Errorf("%w: tolerance %v not in (0, 180]", ErrInvalidParameter, tolerance)
	}
	v.directional = true
	v.azimuth = azimuth
	v.tolerance = tolerance
	v.valid.invalidate(slotBins)
	return nil
}

// SetOmnidirectional turns the directional filter off.
func (v *Variogram) SetOmnidirectional() {
	v.directional = false
	v.valid.invalidate(slotBins)
}

func (v *Variogram) SetNormalize(normalize bool) {
	v.normalize = normalize
	v.valid.invalidate(slotFit)
}

func (v *Variogram) SetUseNugget(use bool) {
	v.useNugget = use
	v.valid.invalidate(slotFit)
}

func (v *Variogram) SetFitMethod(m FitMethod) error {
	if err := validFitMethod(m); err != nil {
		return err
	}
	v.fitMethod = m
	v.valid.invalidate(slotFit)
	return nil
}

func (v *Variogram) SetMaxIterations(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d iterations", ErrInvalidParameter, n)
	}
	v.maxIter = n
	v.valid.invalidate(slotFit)
	return nil
}

func (v *Variogram) SetLogger(l *log.Logger) {
	v.logger = l
}

func (v *Variogram) Coordinates() [][]float64 {
	ret := make([][]float64, len(v.coords))
	for i, c := range v.coords {
		ret[i] = append([]float64(nil), c...)
	}
	return ret
}

func (v *Variogram) Values() []float64 {
	return append([]float64(nil), v.values...)
}

func (v *Variogram) Estimator() Estimator { return v.estimator }
func (v *Variogram) Model() Model         { return v.model }
func (v *Variogram) DistanceName() string { return v.distName }
func (v *Variogram) BinFunc() BinFunc     { return v.binFunc }
func (v *Variogram) Normalized() bool     { return v.normalize }
func (v *Variogram) UseNugget() bool      { return v.useNugget }
func (v *Variogram) FitMethod() FitMethod { return v.fitMethod }

// Preprocess computes distances, differences and lag classes. With force
// all derived data is dropped first.
func (v *Variogram) Preprocess(force bool) error {
	if force {
		v.valid.invalidateAll()
	}
	if _, err := v.distances(); err != nil {
		return err
	}
	v.diffs()
	_, err := v.lagClasses()
	return err
}

func (v *Variogram) distances() ([]float64, error) {
	if !v.valid.valid(slotDistances) {
		dist, err := computeDistances(v.distFunc, v.coords)
		if err != nil {
			return nil, err
		}
		v.dist = dist
		v.valid.set(slotDistances)
	}
	return v.dist, nil
}

func (v *Variogram) diffs() []float64 {
	if !v.valid.valid(slotDiffs) {
		v.diff = pairDiffs(v.values)
		v.valid.set(slotDiffs)
	}
	return v.diff
}

func (v *Variogram) lagClasses() (*lagClasses, error) {
	if v.valid.valid(slotBins) {
		return v.bins, nil
	}
	dist, err := v.distances()
	if err != nil {
		return nil, err
	}

	var keep []bool
	if v.directional {
		keep = directionMask(pairVectors(v.coords), v.azimuth, v.tolerance)
	}
	lc, err := binLags(dist, keep, v.binFunc, v.lags, v.binWidth, v.maxlag)
	if err != nil {
		return nil, err
	}
	if empty := lc.emptyInner(); len(empty) > 0 && v.logger != nil {
		v.logger.Printf("variogram: warning: lag classes %v hold no pairs, the model fit may fail", empty)
	}

	v.bins = lc
	v.valid.set(slotBins)
	return lc, nil
}

func (v *Variogram) experimental() ([]float64, error) {
	if v.valid.valid(slotExperimental) {
		return v.exp, nil
	}
	lc, err := v.lagClasses()
	if err != nil {
		return nil, err
	}
	diff := v.diffs()

	exp := make([]float64, len(lc.edges))
	for b := range exp {
		if lc.members[b].IsEmpty() {
			exp[b] = math.NaN()
			continue
		}
		exp[b] = v.estimator.Func(lc.gather(b, diff))
	}

	v.exp = exp
	v.valid.set(slotExperimental)
	return exp, nil
}

func (v *Variogram) fitted() (*fitState, error) {
	if v.valid.valid(slotFit) {
		return v.fit, nil
	}
	exp, err := v.experimental()
	if err != nil {
		return nil, err
	}
	centers := v.bins.centers()

	st := &fitState{lagScale: 1, varScale: 1}
	if v.normalize {
		if s := floats.Max(centers); s > 0 {
			st.lagScale = s
		}
		if s := nanMax(exp); s > 0 {
			st.varScale = s
		}
	}
	st.x = make([]float64, len(centers))
	st.y = make([]float64, len(exp))
	floats.ScaleTo(st.x, 1/st.lagScale, centers)
	floats.ScaleTo(st.y, 1/st.varScale, exp)

	x, y := dropNaN(st.x, st.y)
	if len(x) == 0 {
		return nil, &FitError{Model: v.model.Name, Reason: "the experimental variogram has no values"}
	}

	ub := v.model.upperBounds(v.bins.maxlag/st.lagScale, floats.Max(y), nuggetBound, v.useNugget)

	res, err := leastSquares(v.model, x, y, ub, v.maxIter)
	if err != nil {
		return nil, err
	}
	st.params = res.params
	st.cov = res.cov
	st.iterations = res.iterations

	v.fit = st
	v.valid.set(slotFit)
	return st, nil
}

// Distances returns the pairwise distances in PairIndex order.
func (v *Variogram) Distances() ([]float64, error) {
	dist, err := v.distances()
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), dist...), nil
}

// Diffs returns the absolute value differences in PairIndex order.
func (v *Variogram) Diffs() []float64 {
	return append([]float64(nil), v.diffs()...)
}

// Groups returns the lag class of every pair, -1 for excluded pairs.
func (v *Variogram) Groups() ([]int, error) {
	lc, err := v.lagClasses()
	if err != nil {
		return nil, err
	}
	return append([]int(nil), lc.groups...), nil
}

// Bins returns the upper edges of the lag classes.
func (v *Variogram) Bins() ([]float64, error) {
	lc, err := v.lagClasses()
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), lc.edges...), nil
}

func (v *Variogram) BinCenters() ([]float64, error) {
	lc, err := v.lagClasses()
	if err != nil {
		return nil, err
	}
	return lc.centers(), nil
}

// MaxLag returns the effective max lag as a distance.
func (v *Variogram) MaxLag() (float64, error) {
	lc, err := v.lagClasses()
	if err != nil {
		return 0, err
	}
	return lc.maxlag, nil
}

// Histogram returns the number of pairs in every lag class.
func (v *Variogram) Histogram() ([]int, error) {
	lc, err := v.lagClasses()
	if err != nil {
		return nil, err
	}
	return lc.counts(), nil
}

// EmptyLagClasses returns the empty classes between the first and the last
// populated one.
func (v *Variogram) EmptyLagClasses() ([]int, error) {
	lc, err := v.lagClasses()
	if err != nil {
		return nil, err
	}
	return lc.emptyInner(), nil
}

// Experimental returns the experimental variogram in data units, NaN for
// empty lag classes.
func (v *Variogram) Experimental() ([]float64, error) {
	exp, err := v.experimental()
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), exp...), nil
}

// Fit fits the model unless a valid fit is cached.
func (v *Variogram) Fit() error {
	_, err := v.fitted()
	return err
}

// Fitted reports whether a valid fit is cached.
func (v *Variogram) Fitted() bool {
	return v.valid.valid(slotFit)
}

// Coefficients returns the fitted parameter vector in fitting units.
func (v *Variogram) Coefficients() ([]float64, error) {
	st, err := v.fitted()
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), st.params...), nil
}

// Covariance returns the estimated covariance of the coefficients.
func (v *Variogram) Covariance() (*mat.Dense, error) {
	st, err := v.fitted()
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(st.cov), nil
}

// Describe returns the fitted parameters in data units.
func (v *Variogram) Describe() (Description, error) {
	st, err := v.fitted()
	if err != nil {
		return Description{}, err
	}
	p := st.params
	d := Description{
		Name:      v.model.Name,
		Estimator: v.estimator.Name,
		Range:     p[0] * st.lagScale,
		Sill:      p[1] * st.varScale,
	}
	if v.useNugget {
		d.Nugget = p[len(p)-1] * st.varScale
	}
	if v.model.hasShape() {
		s := p[2]
		switch v.model.shapeName {
		case "smoothness":
			d.Smoothness = &s
		default:
			d.Shape = &s
		}
	}
	return d, nil
}

// Parameters returns range, sill, the shape or smoothness if the model has
// one, and the nugget, in data units. The nugget is 0 when it is not used.
func (v *Variogram) Parameters() ([]float64, error) {
	d, err := v.Describe()
	if err != nil {
		return nil, err
	}
	ret := []float64{d.Range, d.Sill}
	if d.Shape != nil {
		ret = append(ret, *d.Shape)
	}
	if d.Smoothness != nil {
		ret = append(ret, *d.Smoothness)
	}
	return append(ret, d.Nugget), nil
}

// Curve samples the fitted model at n lags from 0 to the largest bin center,
// in data units.
func (v *Variogram) Curve(n int) ([]float64, []float64, error) {
	st, err := v.fitted()
	if err != nil {
		return nil, nil, err
	}
	x := linspace(0, floats.Max(st.x)*st.lagScale, n)
	y := make([]float64, len(x))
	for i, h := range x {
		y[i] = v.model.Eval(h/st.lagScale, st.params...) * st.varScale
	}
	return x, y, nil
}

// deviations returns the experimental and the model curve at the bin centers
// in fitting units. It does not fit.
func (v *Variogram) deviations() ([]float64, []float64, error) {
	if !v.valid.valid(slotFit) {
		return nil, nil, ErrNotFitted
	}
	st := v.fit
	model := make([]float64, len(st.x))
	for i, h := range st.x {
		model[i] = v.model.Eval(h, st.params...)
	}
	return st.y, model, nil
}

// Residuals returns model minus experimental value per lag class, NaN where
// the class is empty.
func (v *Variogram) Residuals() ([]float64, error) {
	exp, model, err := v.deviations()
	if err != nil {
		return nil, err
	}
	return residualsOf(exp, model), nil
}

func (v *Variogram) MeanResidual() (float64, error) {
	return v.statistic(meanResidualOf)
}

func (v *Variogram) RMSE() (float64, error) {
	return v.statistic(rmseOf)
}

// NRMSE is the RMSE divided by the mean experimental value.
func (v *Variogram) NRMSE() (float64, error) {
	return v.statistic(nrmseOf)
}

// NRMSER is the RMSE divided by the range of the experimental values.
func (v *Variogram) NRMSER() (float64, error) {
	return v.statistic(nrmseROf)
}

// Pearson returns the correlation between experimental and model curve.
func (v *Variogram) Pearson() (float64, error) {
	return v.statistic(pearsonOf)
}

// NashSutcliffe returns the Nash-Sutcliffe efficiency of the fit.
func (v *Variogram) NashSutcliffe() (float64, error) {
	return v.statistic(nashSutcliffeOf)
}

func (v *Variogram) Statistics() (Statistics, error) {
	exp, model, err := v.deviations()
	if err != nil {
		return Statistics{}, err
	}
	return statisticsOf(exp, model), nil
}

func (v *Variogram) statistic(fn func(exp, model []float64) float64) (float64, error) {
	exp, model, err := v.deviations()
	if err != nil {
		return math.NaN(), err
	}
	return fn(exp, model), nil
}

// Clone returns a deep copy including all cached data.
func (v *Variogram) Clone() *Variogram {
	c := *v

	c.coords = v.Coordinates()
	c.values = v.Values()
	c.dist = append([]float64(nil), v.dist...)
	c.diff = append([]float64(nil), v.diff...)
	c.exp = append([]float64(nil), v.exp...)
	if v.bins != nil {
		c.bins = v.bins.clone()
	}
	if v.fit != nil {
		f := *v.fit
		f.x = append([]float64(nil), v.fit.x...)
		f.y = append([]float64(nil), v.fit.y...)
		f.params = append([]float64(nil), v.fit.params...)
		if v.fit.cov != nil {
			f.cov = mat.DenseCopyOf(v.fit.cov)
		}
		c.fit = &f
	}
	return &c
}

func (v *Variogram) String() string {
	d, err := v.Describe()
	if err != nil {
		d = Description{
			Name:      v.model.Name,
			Estimator: v.estimator.Name,
			Range:     math.NaN(),
			Sill:      math.NaN(),
			Nugget:    math.NaN(),
		}
	}

	var sb strings.Builder
	title := fmt.Sprintf("%s Variogram", d.Name)
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", len(title)) + "\n")
	fmt.Fprintf(&sb, "Estimator:  %s\n", d.Estimator)
	fmt.Fprintf(&sb, "Range:      %.2f\n", d.Range)
	fmt.Fprintf(&sb, "Sill:       %.2f\n", d.Sill)
	fmt.Fprintf(&sb, "Nugget:     %.2f\n", d.Nugget)
	return sb.String()
}
