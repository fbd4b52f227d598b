package fit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/plantabyte/hillclimbfit/internal/config"
	"github.com/plantabyte/hillclimbfit/internal/lsq"
	"github.com/plantabyte/hillclimbfit/internal/opt"
)

// Result holds the output of one curve fit
type Result struct {
	Method      string        `json:"method"`
	Params      []float64     `json:"params"`
	Errors      []float64     `json:"errors,omitempty"` // Params - truth, when the truth is known
	Cost        float64       `json:"cost"`             // sum of squared residuals
	Iterations  int           `json:"iterations"`
	Evaluations int           `json:"evaluations"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Fitter fits a model to samples starting from an initial guess
type Fitter interface {
	Name() string
	Fit(ctx context.Context, model Model, initial []float64, samples SampleSet) (*Result, error)
}

// LeastSquaresFitter is the reference Levenberg-Marquardt fitter
type LeastSquaresFitter struct {
	Settings *lsq.Settings // nil uses lsq.DefaultSettings
}

// Name implements Fitter
func (f *LeastSquaresFitter) Name() string { return config.MethodLM }

// Fit implements Fitter
func (f *LeastSquaresFitter) Fit(ctx context.Context, model Model, initial []float64, samples SampleSet) (*Result, error) {
	if err := samples.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := lsq.CurveFit(model, samples.X, samples.Y, initial, f.Settings)
	if err != nil {
		return nil, fmt.Errorf("least squares fit failed: %w", err)
	}
	if !res.Converged {
		slog.Warn("Least squares fit hit iteration limit", "iterations", res.Iterations, "cost", res.Cost)
	}

	return &Result{
		Method:      f.Name(),
		Params:      res.Params,
		Cost:        res.Cost,
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
		Elapsed:     time.Since(start),
	}, nil
}

// OptimizerFitter minimizes the sum of squared residuals with a generic optimizer
type OptimizerFitter struct {
	Optimizer opt.Optimizer
}

// Name implements Fitter
func (f *OptimizerFitter) Name() string { return f.Optimizer.Name() }

// Fit implements Fitter
func (f *OptimizerFitter) Fit(ctx context.Context, model Model, initial []float64, samples SampleSet) (*Result, error) {
	if err := samples.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := f.Optimizer.Minimize(ctx, SquaredResiduals(model, samples), initial)
	if err != nil {
		return nil, fmt.Errorf("%s fit failed: %w", f.Name(), err)
	}

	return &Result{
		Method:      f.Name(),
		Params:      res.Params,
		Cost:        res.Cost,
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
		Elapsed:     time.Since(start),
	}, nil
}

// PolyFitter solves the polynomial fit in closed form. It ignores the model
// argument and fits a polynomial of degree len(initial)-1, so it is only
// meaningful when the model is Polynomial.
type PolyFitter struct{}

// Name implements Fitter
func (PolyFitter) Name() string { return config.MethodPolyFit }

// Fit implements Fitter
func (p PolyFitter) Fit(ctx context.Context, _ Model, initial []float64, samples SampleSet) (*Result, error) {
	if err := samples.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	coeffs, err := PolyFit(samples.X, samples.Y, len(initial)-1)
	if err != nil {
		return nil, err
	}

	return &Result{
		Method:      p.Name(),
		Params:      coeffs,
		Cost:        SquaredResiduals(Polynomial, samples)(coeffs),
		Iterations:  1,
		Evaluations: 1,
		Elapsed:     time.Since(start),
	}, nil
}

// NewFitter builds the fitter for a method name using the scenario's tuning.
// progress, if non-nil, receives per-iteration updates from the hill-climb.
func NewFitter(method string, sc config.Scenario, progress opt.ProgressFunc) (Fitter, error) {
	switch method {
	case config.MethodLM:
		return &LeastSquaresFitter{}, nil
	case config.MethodHillClimb:
		hc, err := opt.NewHillClimb(sc.HillClimb.Precision, sc.HillClimb.IterationLimit)
		if err != nil {
			return nil, err
		}
		if progress != nil {
			hc.WithProgress(progress)
		}
		return &OptimizerFitter{Optimizer: hc}, nil
	case config.MethodMayfly:
		return &OptimizerFitter{
			Optimizer: opt.NewMayfly(sc.Mayfly.Iterations, sc.Mayfly.Population, sc.Mayfly.Bound, int64(sc.Seed)),
		}, nil
	case config.MethodNelderMead:
		return &OptimizerFitter{Optimizer: opt.NewNelderMead(0, 0)}, nil
	case config.MethodPolyFit:
		return PolyFitter{}, nil
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}
