package variogram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// ModelFunc evaluates a variogram model at lag h. params holds range and
// sill, then the shape or smoothness if the model has one, then the nugget
// if it is used.
type ModelFunc func(h float64, params ...float64) float64

// kernel is a built-in model: lag, range, sill, shape, nugget.
type kernel func(h, r, c0, s, b float64) float64

// Model is a theoretical variogram function together with the metadata the
// fit needs to bound its parameters.
type Model struct {
	Name string

	kern kernel
	fn   ModelFunc

	// shapeName is "shape" or "smoothness" for three parameter models.
	shapeName  string
	shapeBound float64
}

// NewModel returns the built-in model t.
func NewModel(t ModelType) (Model, error) {
	switch t {
	case Spherical:
		return Model{Name: string(t), kern: spherical}, nil
	case Exponential:
		return Model{Name: string(t), kern: exponential}, nil
	case Gaussian:
		return Model{Name: string(t), kern: gaussian}, nil
	case Cubic:
		return Model{Name: string(t), kern: cubic}, nil
	case Stable:
		return Model{Name: string(t), kern: stable, shapeName: "shape", shapeBound: 2}, nil
	case Matern:
		return Model{Name: string(t), kern: matern, shapeName: "smoothness", shapeBound: 20}, nil
	default:
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, t)
	}
}

// CustomModel wraps fn as a range and sill model. When the nugget is used it
// is passed as a third parameter.
func CustomModel(name string, fn ModelFunc) Model {
	return Model{Name: name, fn: fn}
}

func (m Model) hasShape() bool {
	return m.shapeBound > 0
}

// NumParams returns the length of the parameter vector.
func (m Model) NumParams(useNugget bool) int {
	n := 2
	if m.hasShape() {
		n++
	}
	if useNugget {
		n++
	}
	return n
}

// Eval evaluates the model at h. The length of params decides whether a
// nugget is present.
func (m Model) Eval(h float64, params ...float64) float64 {
	if m.fn != nil {
		return m.fn(h, params...)
	}
	if len(params) < 2 {
		return math.NaN()
	}

	r, c0 := params[0], params[1]
	var s, b float64
	rest := params[2:]
	if m.hasShape() {
		if len(rest) == 0 {
			return math.NaN()
		}
		s, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		b = rest[0]
	}
	return m.kern(h, r, c0, s, b)
}

// Func returns the model as a plain ModelFunc.
func (m Model) Func() ModelFunc {
	return m.Eval
}

// upperBounds returns the fit bounds derived from the data.
func (m Model) upperBounds(maxLag, maxVar, nugget float64, useNugget bool) []float64 {
	ub := []float64{maxLag, maxVar}
	if m.hasShape() {
		ub = append(ub, m.shapeBound)
	}
	if useNugget {
		ub = append(ub, nugget)
	}
	return ub
}

func spherical(h, r, c0, s, b float64) float64 {
	if h == 0 {
		return b
	}
	if r <= 0 || h > r {
		return b + c0
	}
	x := h / r
	return b + c0*(1.5*x-0.5*pow3(x))
}

func exponential(h, r, c0, s, b float64) float64 {
	if h == 0 {
		return b
	}
	if r <= 0 {
		return b + c0
	}
	a := r / 3
	return b + c0*(1-exp(-h/a))
}

func gaussian(h, r, c0, s, b float64) float64 {
	if h == 0 {
		return b
	}
	if r <= 0 {
		return b + c0
	}
	a := r / 2
	return b + c0*(1-exp(-pow2(h/a)))
}

func cubic(h, r, c0, s, b float64) float64 {
	if h == 0 {
		return b
	}
	if r <= 0 || h > r {
		return b + c0
	}
	x := h / r
	x2 := pow2(x)
	x3 := x2 * x
	return b + c0*(7*x2-8.75*x3+3.5*x3*x2-0.75*x3*x2*x2)
}

func stable(h, r, c0, s, b float64) float64 {
	if h == 0 {
		return b
	}
	if r <= 0 {
		return b + c0
	}
	a := r / math.Pow(3, 1/s)
	return b + c0*(1-exp(-math.Pow(h/a, s)))
}

func matern(h, r, c0, s, b float64) float64 {
	if h == 0 {
		return b
	}
	if r <= 0 {
		return b + c0
	}
	a := r / 2
	return b + c0*(1-maternCorrelation(h/a, s))
}

const besselNodes = 256

// maternCorrelation returns 2^(1-nu)/Gamma(nu) * x^nu * K_nu(x), using
// K_nu(x) = Int_0^inf exp(-x cosh t) cosh(nu t) dt evaluated in log space.
func maternCorrelation(x, nu float64) float64 {
	if nu <= 0 {
		return 0
	}
	lg, _ := math.Lgamma(nu)
	logc := (1-nu)*math.Ln2 - lg + nu*math.Log(x)

	// the integrand peaks at asinh(nu/x) and decays doubly exponentially after
	upper := math.Max(1, math.Log(2*(nu+10)/x)) + 5

	f := func(t float64) float64 {
		logCosh := nu*t + math.Log1p(math.Exp(-2*nu*t)) - math.Ln2
		return math.Exp(logc - x*math.Cosh(t) + logCosh)
	}
	v := quad.Fixed(f, 0, upper, besselNodes, quad.Legendre{}, 0)
	return math.Min(math.Max(v, 0), 1)
}
