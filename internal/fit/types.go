package fit

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Model evaluates a parametric curve at x
type Model func(x float64, params []float64) float64

// Polynomial evaluates coefficients (highest power first) at x using Horner's rule
func Polynomial(x float64, coeffs []float64) float64 {
	var y float64
	for _, c := range coeffs {
		y = y*x + c
	}
	return y
}

// EvalAll evaluates the model at every x
func (m Model) EvalAll(xs, params []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = m(x, params)
	}
	return ys
}

// SampleSet holds the observed data as parallel slices
type SampleSet struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Len returns the number of samples
func (s SampleSet) Len() int { return len(s.X) }

// Validate checks that the slices are parallel and non-empty
func (s SampleSet) Validate() error {
	if len(s.X) != len(s.Y) {
		return fmt.Errorf("sample set: %d x values but %d y values", len(s.X), len(s.Y))
	}
	if len(s.X) == 0 {
		return fmt.Errorf("sample set: no samples")
	}
	return nil
}

// Linspace returns n evenly spaced points from lo to hi inclusive
func Linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return []float64{}
	case n == 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Generate evaluates model at xs and adds independent N(0, sigma²) noise to
// each point. The same src state always yields the same samples.
func Generate(model Model, params, xs []float64, sigma float64, src rand.Source) SampleSet {
	ys := model.EvalAll(xs, params)
	if sigma > 0 {
		noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
		for i := range ys {
			ys[i] += noise.Rand()
		}
	}
	return SampleSet{
		X: append([]float64(nil), xs...),
		Y: ys,
	}
}

// NewSource returns the deterministic random source used for a seed
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}
