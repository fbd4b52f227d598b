package opt

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// NelderMead adapts gonum's downhill simplex method
type NelderMead struct {
	maxIters int
	maxEvals int
}

// NewNelderMead creates a Nelder-Mead optimizer. Zero limits leave gonum's
// defaults in place.
func NewNelderMead(maxIters, maxEvals int) *NelderMead {
	return &NelderMead{maxIters: maxIters, maxEvals: maxEvals}
}

// Name implements Optimizer
func (nm *NelderMead) Name() string { return "neldermead" }

// Minimize implements Optimizer
func (nm *NelderMead) Minimize(ctx context.Context, eval func([]float64) float64, initial []float64) (*Result, error) {
	if len(initial) == 0 {
		return nil, fmt.Errorf("neldermead: no parameters to optimize")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	problem := optimize.Problem{Func: eval}
	settings := &optimize.Settings{
		MajorIterations: nm.maxIters,
		FuncEvaluations: nm.maxEvals,
	}

	res, err := optimize.Minimize(problem, append([]float64(nil), initial...), settings, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("neldermead: %w", err)
	}

	return &Result{
		Params:      res.X,
		Cost:        res.F,
		Iterations:  res.Stats.MajorIterations,
		Evaluations: res.Stats.FuncEvaluations,
	}, nil
}
