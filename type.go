package variogram

type ModelType string

const (
	Spherical   ModelType = "spherical"
	Exponential ModelType = "exponential"
	Gaussian    ModelType = "gaussian"
	Cubic       ModelType = "cubic"
	Stable      ModelType = "stable"
	Matern      ModelType = "matern"
)

type EstimatorType string

const (
	Matheron EstimatorType = "matheron"
	Cressie  EstimatorType = "cressie"
	Dowd     EstimatorType = "dowd"
	Genton   EstimatorType = "genton"
	MinMax   EstimatorType = "minmax"
	Entropy  EstimatorType = "entropy"
)

// DistanceKind selects a built-in pairwise metric.
type DistanceKind string

const (
	Euclidean DistanceKind = "euclidean"
)

// BinFunc selects how the lag range is cut into classes.
type BinFunc string

const (
	// Even cuts [0, maxlag] into classes of equal width.
	Even BinFunc = "even"
	// Uniform places the class edges so every class holds about the same
	// number of pairs.
	Uniform BinFunc = "uniform"
)

type FitMethod string

const (
	LeastSquares FitMethod = "lm"
)

// Description summarizes a fitted variogram in data units.
type Description struct {
	Name       string   `json:"name"`
	Estimator  string   `json:"estimator"`
	Range      float64  `json:"range"`
	Sill       float64  `json:"sill"`
	Nugget     float64  `json:"nugget"`
	Shape      *float64 `json:"shape,omitempty"`
	Smoothness *float64 `json:"smoothness,omitempty"`
}

// Statistics bundles the goodness-of-fit measures of a fitted variogram.
type Statistics struct {
	MeanResidual  float64 `json:"meanResidual"`
	RMSE          float64 `json:"rmse"`
	NRMSE         float64 `json:"nrmse"`
	NRMSER        float64 `json:"nrmseR"`
	Pearson       float64 `json:"r"`
	NashSutcliffe float64 `json:"ns"`
}
