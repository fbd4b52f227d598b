package opt

import (
	"context"
	"errors"
	"log/slog"
)

// DefaultIterationLimit caps hill-climb iterations when no limit is given
const DefaultIterationLimit = 1000000

const (
	initialJumpFactor = 16
	shrinkFactor      = 0.25
	growFactor        = 4
)

// HillClimb is a coordinate-wise hill-climb search with adaptive step sizes.
//
// Every dimension keeps its own jump size, starting at 16*precision. One
// iteration visits each dimension in order and scores five candidates: the
// current value, a short jump either way and a long (double) jump either way.
// The best candidate is kept; ties favour the earlier candidate, so the
// current value wins unless something is strictly better. When the current
// value survives the jump shrinks by 4x, when a long jump wins it grows by 4x.
// The search stops once every jump is at or below precision, or the iteration
// limit is reached.
type HillClimb struct {
	precision float64
	maxIters  int
	progress  ProgressFunc
}

// NewHillClimb creates a hill-climb optimizer.
// A non-positive maxIters selects DefaultIterationLimit.
func NewHillClimb(precision float64, maxIters int) (*HillClimb, error) {
	if !(precision > 0) {
		return nil, errors.New("hillclimb: precision must be greater than zero")
	}
	if maxIters <= 0 {
		maxIters = DefaultIterationLimit
	}
	return &HillClimb{precision: precision, maxIters: maxIters}, nil
}

// WithProgress registers fn to be called after every iteration
func (h *HillClimb) WithProgress(fn ProgressFunc) *HillClimb {
	h.progress = fn
	return h
}

// Name implements Optimizer
func (h *HillClimb) Name() string { return "hillclimb" }

// Precision returns the configured precision
func (h *HillClimb) Precision() float64 { return h.precision }

// IterationLimit returns the configured iteration limit
func (h *HillClimb) IterationLimit() int { return h.maxIters }

// Minimize implements Optimizer
func (h *HillClimb) Minimize(ctx context.Context, eval func([]float64) float64, initial []float64) (*Result, error) {
	return h.climb(ctx, eval, initial, -1)
}

// Maximize searches for parameters maximizing eval
func (h *HillClimb) Maximize(ctx context.Context, eval func([]float64) float64, initial []float64) (*Result, error) {
	return h.climb(ctx, eval, initial, 1)
}

// climb maximizes sign*eval. Costs reported in the result and to the progress
// callback are raw eval values.
func (h *HillClimb) climb(ctx context.Context, eval func([]float64) float64, initial []float64, sign float64) (*Result, error) {
	n := len(initial)
	if n == 0 {
		return nil, errors.New("hillclimb: no parameters to optimize")
	}

	evals := 0
	score := counted(func(x []float64) float64 { return sign * eval(x) }, &evals)

	params := append([]float64(nil), initial...)
	probe := append([]float64(nil), initial...)
	jumps := make([]float64, n)
	for i := range jumps {
		jumps[i] = initialJumpFactor * h.precision
	}

	// candidate offsets in units of jumps[i]; index 0 is the current value
	offsets := [5]float64{0, -1, 1, -2, 2}
	var vals [5]float64

	base := score(params)
	iter := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iter++

		for i := 0; i < n; i++ {
			vals[0] = base
			for k := 1; k < len(offsets); k++ {
				probe[i] = params[i] + offsets[k]*jumps[i]
				vals[k] = score(probe)
			}

			best := indexOfMax(vals[:])
			params[i] += offsets[best] * jumps[i]
			probe[i] = params[i]
			base = vals[best]

			switch {
			case best == 0:
				jumps[i] *= shrinkFactor
			case best > 2:
				jumps[i] *= growFactor
			}
		}

		if h.progress != nil {
			h.progress(iter, sign*base, params)
		}
		if iter >= h.maxIters || maxOf(jumps) <= h.precision {
			break
		}
	}

	slog.Debug("Hill-climb finished", "iterations", iter, "evaluations", evals, "cost", sign*base)

	return &Result{
		Params:      params,
		Cost:        sign * base,
		Iterations:  iter,
		Evaluations: evals,
	}, nil
}

// indexOfMax returns the index of the first largest value
func indexOfMax(vals []float64) int {
	index := 0
	for i := 1; i < len(vals); i++ {
		if vals[i] > vals[index] {
			index = i
		}
	}
	return index
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
