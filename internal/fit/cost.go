package fit

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// CostFunc scores a parameter vector; lower is better
type CostFunc func(params []float64) float64

// SquaredResiduals returns the sum of squared residuals of model over samples
func SquaredResiduals(model Model, samples SampleSet) CostFunc {
	return func(params []float64) float64 {
		var sum float64
		for i, x := range samples.X {
			d := model(x, params) - samples.Y[i]
			sum += d * d
		}
		return sum
	}
}

// ParamErrors returns fitted - truth elementwise
func ParamErrors(fitted, truth []float64) ([]float64, error) {
	if len(fitted) != len(truth) {
		return nil, &LengthError{Got: len(fitted), Want: len(truth)}
	}
	return floats.SubTo(make([]float64, len(fitted)), fitted, truth), nil
}

// LengthError reports mismatched parameter vector lengths
type LengthError struct {
	Got, Want int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("parameter length mismatch: got %d, want %d", e.Got, e.Want)
}
