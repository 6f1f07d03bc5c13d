package variogram

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMetric is returned for an unknown distance kind.
	ErrInvalidMetric = errors.New("invalid distance metric")

	// ErrLengthMismatch is returned when values, coordinates or a computed
	// pairwise vector do not have the expected length.
	ErrLengthMismatch = errors.New("length mismatch")

	ErrUnknownBinningStrategy = errors.New("unknown binning strategy")
	ErrUnknownEstimator       = errors.New("unknown estimator")
	ErrUnknownModel           = errors.New("unknown model")
	ErrUnsupportedFitMethod   = errors.New("unsupported fit method")

	// ErrFitDidNotConverge is wrapped by *FitError.
	ErrFitDidNotConverge = errors.New("fit did not converge")

	// ErrNotFitted is returned by the statistics before a model was fitted.
	ErrNotFitted = errors.New("variogram not fitted")

	ErrTooFewSamples    = errors.New("not enough points")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNoSamples        = errors.New("no point")
)

// FitError reports a least squares fit that stopped without converging.
// Params holds the last estimate, it may be nil when the fit could not start.
type FitError struct {
	Model      string
	Params     []float64
	Iterations int
	Reason     string
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s: %s model after %d iterations: %s", ErrFitDidNotConverge, e.Model, e.Iterations, e.Reason)
}

func (e *FitError) Unwrap() error {
	return ErrFitDidNotConverge
}
