package variogram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultMaxIterations = 2000

	ftol        = 1e-12
	xtol        = 1e-10
	gtol        = 1e-6
	lambda0     = 1e-3
	lambdaMin   = 1e-12
	lambdaMax   = 1e12
	lambdaTrust = 1

	// a parameter closer than boundTol to a bound counts as sitting on it
	boundTol = 1e-10
	// a step leaving the box moves this fraction of the way to the bound
	boundStep = 0.5
)

// startFractions are the starting points of the search as fractions of the
// upper bounds.
var startFractions = []float64{1, 0.5, 0.2}

type fitResult struct {
	params     []float64
	cov        *mat.Dense
	iterations int
}

func validFitMethod(m FitMethod) error {
	if m != LeastSquares {
		return fmt.Errorf("%w: %q", ErrUnsupportedFitMethod, m)
	}
	return nil
}

// boxProblem is a least squares problem on parameters scaled by their upper
// bound, so that every free parameter lives in [0, 1].
type boxProblem struct {
	model Model
	x, y  []float64
	scale []float64
	hi    []float64
	floor float64

	p []float64
}

func newBoxProblem(model Model, x, y, ub []float64) *boxProblem {
	m := len(ub)
	pr := &boxProblem{
		model: model,
		x:     x,
		y:     y,
		scale: make([]float64, m),
		hi:    make([]float64, m),
		floor: 1e-24 * math.Max(floats.Dot(y, y), 1e-300),
		p:     make([]float64, m),
	}
	// a non-positive bound pins the parameter at zero
	for i, v := range ub {
		if v > 0 {
			pr.scale[i], pr.hi[i] = v, 1
		} else {
			pr.scale[i] = 1
		}
	}
	return pr
}

func (pr *boxProblem) residuals(dst, u []float64) {
	for i := range pr.p {
		pr.p[i] = u[i] * pr.scale[i]
	}
	for i := range pr.x {
		dst[i] = pr.model.Eval(pr.x[i], pr.p...) - pr.y[i]
	}
}

func (pr *boxProblem) sse(u []float64) float64 {
	r := make([]float64, len(pr.x))
	pr.residuals(r, u)
	return floats.Dot(r, r)
}

func (pr *boxProblem) params(u []float64) []float64 {
	ret := make([]float64, len(u))
	floats.MulTo(ret, u, pr.scale)
	return ret
}

// starts returns the starting points. The first one is the upper bounds.
// With a nugget every point is also tried with the nugget at zero, so the
// search retraces the fit without nugget before it frees the nugget.
func (pr *boxProblem) starts(withNugget bool) [][]float64 {
	last := len(pr.hi) - 1
	var ret [][]float64
	for _, f := range startFractions {
		u := make([]float64, len(pr.hi))
		floats.ScaleTo(u, f, pr.hi)
		ret = append(ret, u)
		if withNugget && pr.hi[last] > 0 {
			z := append([]float64(nil), u...)
			z[last] = 0
			ret = append(ret, z)
		}
	}
	return ret
}

// freeSet lists the parameters the next step may move: not pinned, and not
// sitting on a bound the gradient pushes against.
func (pr *boxProblem) freeSet(dst []int, u, g []float64) []int {
	for i := range u {
		if pr.hi[i] == 0 {
			continue
		}
		tol := boundTol * pr.hi[i]
		if (u[i] <= tol && g[i] > 0) || (u[i] >= pr.hi[i]-tol && g[i] < 0) {
			continue
		}
		dst = append(dst, i)
	}
	return dst
}

// stationary reports whether the residuals are orthogonal to every free
// column of J within gtol.
func stationary(J *mat.Dense, r, g []float64, free []int) bool {
	rn := floats.Norm(r, 2)
	for _, i := range free {
		cn := mat.Norm(J.ColView(i), 2)
		if !(math.Abs(g[i]) <= gtol*cn*rn) {
			return false
		}
	}
	return true
}

// solve runs a projected Levenberg-Marquardt search from u, which it updates
// in place. Parameters on a bound with the gradient pointing outwards are
// held, the others take the damped Gauss-Newton step, cut back before any of
// them leaves the box. reason is empty on convergence.
func (pr *boxProblem) solve(u []float64, maxIter int) (cost float64, iter int, reason string) {
	n, m := len(pr.x), len(u)
	cost = pr.sse(u)
	if !isFinite(cost) {
		return cost, 0, "model is not finite at the initial guess"
	}

	r := make([]float64, n)
	rv := mat.NewVecDense(n, r)
	J := mat.NewDense(n, m, nil)
	var g mat.VecDense

	free := make([]int, 0, m)
	trial := make([]float64, m)
	lambda := lambda0

	for ; iter < maxIter; iter++ {
		if cost <= pr.floor {
			return cost, iter, ""
		}
		pr.residuals(r, u)
		fd.Jacobian(J, pr.residuals, u, &fd.JacobianSettings{Formula: fd.Forward, OriginValue: r})
		g.MulVec(J.T(), rv)

		free = pr.freeSet(free[:0], u, g.RawVector().Data)
		if len(free) == 0 || stationary(J, r, g.RawVector().Data, free) {
			return cost, iter, ""
		}

		k := len(free)
		Jf := mat.NewDense(n, k, nil)
		gf := mat.NewVecDense(k, nil)
		for a, i := range free {
			Jf.SetCol(a, mat.Col(nil, i, J))
			gf.SetVec(a, g.AtVec(i))
		}
		A := mat.NewSymDense(k, nil)
		A.SymOuterK(1, Jf.T())
		M := mat.NewSymDense(k, nil)
		var chol mat.Cholesky
		var delta, jd, rest mat.VecDense

		for {
			if lambda > lambdaMax {
				return cost, iter, "no descent direction left inside the bounds"
			}
			M.CopySym(A)
			for a := 0; a < k; a++ {
				M.SetSym(a, a, A.At(a, a)+lambda*math.Max(A.At(a, a), 1e-12))
			}
			if !chol.Factorize(M) {
				lambda *= 10
				continue
			}
			if err := chol.SolveVecTo(&delta, gf); err != nil {
				lambda *= 10
				continue
			}

			copy(trial, u)
			truncated := false
			for a, i := range free {
				v := u[i] - delta.AtVec(a)
				switch {
				case v < 0:
					v = u[i] * (1 - boundStep)
					truncated = true
				case v > pr.hi[i]:
					v = u[i] + (pr.hi[i]-u[i])*boundStep
					truncated = true
				}
				trial[i] = v
			}
			next := pr.sse(trial)

			if !isFinite(next) || next >= cost {
				// the linear model promises nothing more either
				jd.MulVec(Jf, &delta)
				rest.SubVec(rv, &jd)
				pred := cost - mat.Dot(&rest, &rest)
				if !truncated && lambda <= lambdaTrust && pred <= ftol*cost {
					return cost, iter + 1, ""
				}
				lambda *= 10
				continue
			}

			step := floats.Distance(trial, u, 2)
			reduction := cost - next
			small := !truncated && lambda <= lambdaTrust &&
				(reduction <= ftol*cost || step <= xtol*(floats.Norm(trial, 2)+xtol))

			copy(u, trial)
			cost = next
			lambda = math.Max(lambda/10, lambdaMin)
			if small {
				return cost, iter + 1, ""
			}
			break
		}
	}

	if cost <= pr.floor {
		return cost, iter, ""
	}
	return cost, iter, "iteration budget exhausted"
}

// leastSquares fits model to (x, y) within [0, ub]. The search starts from
// several points between the bounds and keeps the converged fit with the
// smallest squared error.
func leastSquares(model Model, x, y, ub []float64, maxIter int) (*fitResult, error) {
	n, m := len(x), len(ub)
	if n < m {
		return nil, &FitError{Model: model.Name, Reason: fmt.Sprintf("%d lag classes for %d parameters", n, m)}
	}
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	pr := newBoxProblem(model, x, y, ub)

	var best, failed []float64
	bestCost, failedCost := math.Inf(1), math.Inf(1)
	var bestIter int
	var fe *FitError
	for _, u := range pr.starts(m == model.NumParams(true)) {
		cost, iter, reason := pr.solve(u, maxIter)
		if reason != "" || !isFinite(cost) {
			if reason == "" {
				reason = "cost is not finite"
			}
			if failed == nil || cost < failedCost {
				failed, failedCost = u, cost
				fe = &FitError{Model: model.Name, Params: pr.params(u), Iterations: iter, Reason: reason}
			}
			continue
		}
		if best == nil || cost < bestCost {
			best, bestCost, bestIter = u, cost, iter
		}
	}
	if best == nil {
		return nil, fe
	}

	return &fitResult{
		params:     pr.params(best),
		cov:        covariance(pr.residuals, best, pr.scale, bestCost, n),
		iterations: bestIter,
	}, nil
}

// covariance estimates the parameter covariance as inv(JᵀJ) * SSE / (n - m),
// mapped back from scaled to data parameters. Entries are +Inf when the
// problem has no degrees of freedom left or JᵀJ is singular.
func covariance(residuals func(dst, u []float64), u, scale []float64, cost float64, n int) *mat.Dense {
	m := len(u)
	cov := mat.NewDense(m, m, nil)

	fill := func() *mat.Dense {
		for i := 0; i < m; i++ {
			for j := 0; j < m; j++ {
				cov.Set(i, j, math.Inf(1))
			}
		}
		return cov
	}
	if n <= m {
		return fill()
	}

	J := mat.NewDense(n, m, nil)
	fd.Jacobian(J, residuals, u, &fd.JacobianSettings{Formula: fd.Central})

	var jtj mat.Dense
	jtj.Mul(J.T(), J)
	inv, ok := matrixInverse(jtj.RawMatrix().Data, m)
	if !ok {
		return fill()
	}

	s2 := cost / float64(n-m)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			cov.Set(i, j, inv[i*m+j]*s2*scale[i]*scale[j])
		}
	}
	return cov
}
