package opt

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface.
// Mayfly is a bounded population search, so the adapter searches the box
// initial[i] ± bound in every dimension.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	bound    float64
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(maxIters, popSize int, bound float64, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		bound:    bound,
		seed:     seed,
	}
}

// Name implements Optimizer
func (m *MayflyAdapter) Name() string { return "mayfly" }

// Minimize executes the Mayfly optimization using the external library
func (m *MayflyAdapter) Minimize(ctx context.Context, eval func([]float64) float64, initial []float64) (*Result, error) {
	dim := len(initial)
	if dim == 0 {
		return nil, fmt.Errorf("mayfly: no parameters to optimize")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The library only takes scalar bounds, so it searches offsets from
	// initial and we translate back.
	center := append([]float64(nil), initial...)
	shifted := make([]float64, dim)
	evals := 0
	objective := counted(func(offset []float64) float64 {
		for i := range offset {
			shifted[i] = center[i] + offset[i]
		}
		return eval(shifted)
	}, &evals)

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = objective
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = -m.bound
	config.UpperBound = m.bound

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly: %w", err)
	}

	best := make([]float64, dim)
	for i, off := range result.GlobalBest.Position {
		best[i] = center[i] + off
	}

	return &Result{
		Params:      best,
		Cost:        result.GlobalBest.Cost,
		Iterations:  m.maxIters,
		Evaluations: evals,
	}, nil
}
