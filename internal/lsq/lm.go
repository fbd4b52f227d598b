// Package lsq implements Levenberg-Marquardt nonlinear least squares.
package lsq

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Settings controls the Levenberg-Marquardt iteration
type Settings struct {
	// MaxIterations bounds the number of accepted-or-rejected outer steps
	MaxIterations int

	// FuncTol stops when the relative cost reduction of an accepted step
	// falls below it
	FuncTol float64

	// StepTol stops when the step norm relative to the parameter norm
	// falls below it
	StepTol float64

	// InitialLambda is the starting damping factor
	InitialLambda float64
}

// DefaultSettings returns settings comparable to MINPACK's lmdif defaults
func DefaultSettings() Settings {
	return Settings{
		MaxIterations: 200,
		FuncTol:       1e-12,
		StepTol:       1e-10,
		InitialLambda: 1e-3,
	}
}

// Result holds the solution of a least-squares problem
type Result struct {
	Params      []float64
	Cost        float64 // sum of squared residuals
	Iterations  int
	Evaluations int
	Converged   bool
}

const maxLambda = 1e16

// ErrTooFewResiduals is returned when there are fewer residuals than parameters
var ErrTooFewResiduals = errors.New("lsq: fewer residuals than parameters")

// Solve minimizes the sum of squares of the m residuals computed by f.
// f writes residuals for params into dst, which has length m.
func Solve(f func(dst, params []float64), m int, initial []float64, settings *Settings) (*Result, error) {
	n := len(initial)
	if n == 0 {
		return nil, errors.New("lsq: no parameters to fit")
	}
	if m < n {
		return nil, ErrTooFewResiduals
	}
	s := DefaultSettings()
	if settings != nil {
		s = *settings
	}

	res := &Result{}
	residuals := func(dst, x []float64) {
		res.Evaluations++
		f(dst, x)
	}

	p := append([]float64(nil), initial...)
	r := make([]float64, m)
	residuals(r, p)
	cost := floats.Dot(r, r)
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return nil, fmt.Errorf("lsq: non-finite cost %v at initial parameters", cost)
	}

	jac := mat.NewDense(m, n, nil)
	trial := make([]float64, n)
	trialR := make([]float64, m)
	lambda := s.InitialLambda

	for res.Iterations < s.MaxIterations && cost > 0 {
		res.Iterations++

		fd.Jacobian(jac, residuals, p, &fd.JacobianSettings{Formula: fd.Central})

		// normal equations: JᵀJ δ = -Jᵀr
		var jtj mat.SymDense
		jtj.SymOuterK(1, jac.T())
		var grad mat.VecDense
		grad.MulVec(jac.T(), mat.NewVecDense(m, r))

		accepted := false
		var step mat.VecDense
		for lambda <= maxLambda {
			if err := dampedStep(&step, &jtj, &grad, lambda); err != nil {
				lambda *= 10
				continue
			}
			for i := range trial {
				trial[i] = p[i] + step.AtVec(i)
			}
			residuals(trialR, trial)
			trialCost := floats.Dot(trialR, trialR)

			if trialCost < cost {
				accepted = true
				lambda = math.Max(lambda/10, 1e-12)

				reduction := (cost - trialCost) / cost
				stepNorm := mat.Norm(&step, 2)
				paramNorm := floats.Norm(p, 2)

				copy(p, trial)
				copy(r, trialR)
				cost = trialCost

				slog.Debug("LM step accepted", "iteration", res.Iterations, "cost", cost, "lambda", lambda)

				if reduction < s.FuncTol || stepNorm <= s.StepTol*(paramNorm+s.StepTol) {
					res.Converged = true
				}
				break
			}
			lambda *= 10
		}

		// No damping level improves the cost: we are at a local minimum.
		if !accepted {
			res.Converged = true
		}
		if res.Converged {
			break
		}
	}

	if cost == 0 {
		res.Converged = true
	}
	res.Params = p
	res.Cost = cost
	return res, nil
}

// CurveFit fits model to the points (xs[i], ys[i]) starting from initial
func CurveFit(model func(x float64, params []float64) float64, xs, ys, initial []float64, settings *Settings) (*Result, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("lsq: mismatched data lengths %d and %d", len(xs), len(ys))
	}
	if len(xs) == 0 {
		return nil, errors.New("lsq: no data points")
	}
	return Solve(func(dst, params []float64) {
		for i, x := range xs {
			dst[i] = model(x, params) - ys[i]
		}
	}, len(xs), initial, settings)
}

// dampedStep solves (JᵀJ + λ·diag(JᵀJ)) δ = -g using Marquardt's scaling
func dampedStep(dst *mat.VecDense, jtj *mat.SymDense, g *mat.VecDense, lambda float64) error {
	n := jtj.SymmetricDim()
	a := mat.NewSymDense(n, nil)
	a.CopySym(jtj)
	for i := 0; i < n; i++ {
		d := jtj.At(i, i)
		if d == 0 {
			d = 1
		}
		a.SetSym(i, i, jtj.At(i, i)+lambda*d)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return errors.New("lsq: damped normal matrix not positive definite")
	}
	if err := chol.SolveVecTo(dst, g); err != nil {
		return err
	}
	dst.ScaleVec(-1, dst)
	return nil
}
