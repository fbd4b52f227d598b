package fit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/plantabyte/hillclimbfit/internal/config"
	"github.com/plantabyte/hillclimbfit/internal/opt"
)

// Comparison holds the generated data and every method's fit
type Comparison struct {
	Scenario config.Scenario `json:"scenario"`
	Samples  SampleSet       `json:"samples"`
	Results  []Result        `json:"results"`
}

// Result returns the fit for a method, if it was run
func (c *Comparison) Result(method string) (*Result, bool) {
	for i := range c.Results {
		if c.Results[i].Method == method {
			return &c.Results[i], true
		}
	}
	return nil, false
}

// Model returns the curve model the comparison fits
func (c *Comparison) Model() Model { return Polynomial }

// GenerateSamples draws the scenario's noisy polynomial samples
func GenerateSamples(sc config.Scenario) SampleSet {
	xs := Linspace(sc.XMin, sc.XMax, sc.Points)
	return Generate(Polynomial, sc.TrueParams, xs, sc.NoiseSigma, NewSource(sc.Seed))
}

// Compare generates samples for the scenario and fits them with every
// configured method in order. progress is handed to the hill-climb fitter.
func Compare(ctx context.Context, sc config.Scenario, progress opt.ProgressFunc) (*Comparison, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	samples := GenerateSamples(sc)
	slog.Info("Generated samples", "points", samples.Len(), "noise_sigma", sc.NoiseSigma, "seed", sc.Seed)

	cmp := &Comparison{
		Scenario: sc,
		Samples:  samples,
		Results:  make([]Result, 0, len(sc.Methods)),
	}

	for _, method := range sc.Methods {
		fitter, err := NewFitter(method, sc, progress)
		if err != nil {
			return nil, err
		}

		slog.Info("Starting fit", "method", method)
		res, err := fitter.Fit(ctx, Polynomial, sc.InitialParams, samples)
		if err != nil {
			return nil, err
		}

		res.Errors, err = ParamErrors(res.Params, sc.TrueParams)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}

		slog.Info("Fit complete",
			"method", method,
			"cost", res.Cost,
			"iterations", res.Iterations,
			"evaluations", res.Evaluations,
			"elapsed", res.Elapsed,
		)
		cmp.Results = append(cmp.Results, *res)
	}

	return cmp, nil
}
