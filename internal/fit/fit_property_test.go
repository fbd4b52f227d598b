package fit

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/plantabyte/hillclimbfit/internal/config"
)

// TestParamErrors_PropertyBased checks that the reported error vector is
// exactly fitted - truth for arbitrary vectors.
func TestParamErrors_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("errors equal fitted minus truth", prop.ForAll(
		func(fitted, truth []float64) bool {
			errs, err := ParamErrors(fitted, truth)
			if err != nil {
				return false
			}
			for i := range errs {
				if errs[i] != fitted[i]-truth[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(4, gen.Float64Range(-100, 100)),
		gen.SliceOfN(4, gen.Float64Range(-100, 100)),
	))

	properties.TestingRun(t)
}

// TestGenerate_PropertyBased checks that sample generation is a pure function
// of its seed.
func TestGenerate_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("same seed gives same samples", prop.ForAll(
		func(seed uint64, n int) bool {
			xs := Linspace(-10, 10, n)
			params := []float64{-0.05, 0.2, 1.5, -5.7}
			a := Generate(Polynomial, params, xs, 1, NewSource(seed))
			b := Generate(Polynomial, params, xs, 1, NewSource(seed))
			for i := range a.Y {
				if a.Y[i] != b.Y[i] {
					return false
				}
			}
			return a.Len() == n
		},
		gen.UInt64(),
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}

// TestHillClimbIterations_PropertyBased fits random noiseless cubics and
// checks the iteration count is positive and within the limit.
func TestHillClimbIterations_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("iteration count is within limits", prop.ForAll(
		func(truth []float64, seed uint64) bool {
			sc := config.Default()
			sc.TrueParams = truth
			sc.Seed = seed
			sc.HillClimb.IterationLimit = 5000
			sc.Methods = []string{config.MethodHillClimb}

			cmp, err := Compare(context.Background(), sc, nil)
			if err != nil {
				t.Logf("Compare failed: %v", err)
				return false
			}
			it := cmp.Results[0].Iterations
			return it >= 1 && it <= sc.HillClimb.IterationLimit
		},
		gen.SliceOfN(4, gen.Float64Range(-5, 5)),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
