package opt

import "context"

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Name returns the method name used in reports and traces
	Name() string

	// Minimize searches for parameters minimizing eval, starting from initial.
	// The initial slice is not modified.
	Minimize(ctx context.Context, eval func([]float64) float64, initial []float64) (*Result, error)
}

// Result holds the outcome of a single optimizer run
type Result struct {
	Params      []float64
	Cost        float64
	Iterations  int
	Evaluations int
}

// ProgressFunc receives the state after each completed iteration.
// params must not be retained; it is reused by the optimizer.
type ProgressFunc func(iteration int, cost float64, params []float64)

// counted wraps eval and counts its invocations
func counted(eval func([]float64) float64, n *int) func([]float64) float64 {
	return func(x []float64) float64 {
		*n++
		return eval(x)
	}
}
