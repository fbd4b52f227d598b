package opt

import (
	"context"
	"math"
	"testing"
)

// Sphere function: f(x) = sum(x_i^2), minimum at origin
func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// shiftedSphere has its minimum at (1, -2, 3)
func shiftedSphere(x []float64) float64 {
	centre := []float64{1, -2, 3}
	var sum float64
	for i, v := range x {
		d := v - centre[i]
		sum += d * d
	}
	return sum
}

func TestMayflyAdapterOnSphere(t *testing.T) {
	optimizer := NewMayfly(100, 20, 10, 42) // maxIters, popSize, bound, seed

	initial := []float64{0, 0, 0}
	res, err := optimizer.Minimize(context.Background(), sphere, initial)
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}

	if len(res.Params) != len(initial) {
		t.Fatalf("Expected %d parameters, got %d", len(initial), len(res.Params))
	}

	// Should converge close to zero
	if res.Cost > 0.1 {
		t.Errorf("Expected cost near 0, got %f", res.Cost)
	}

	for i, v := range res.Params {
		if math.Abs(v) > 1.0 {
			t.Errorf("Parameter %d = %f, expected near 0", i, v)
		}
	}

	if res.Evaluations == 0 {
		t.Error("Expected evaluations to be counted")
	}
}

func TestMayflyAdapterSearchesAroundInitial(t *testing.T) {
	optimizer := NewMayfly(100, 20, 5, 7)

	// The box initial±5 contains the shifted minimum
	res, err := optimizer.Minimize(context.Background(), shiftedSphere, []float64{0, 0, 0})
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}

	if got := shiftedSphere(res.Params); math.Abs(got-res.Cost) > 1e-9 {
		t.Errorf("Reported cost %f does not match params cost %f", res.Cost, got)
	}
	if res.Cost > 0.5 {
		t.Errorf("Expected cost near 0, got %f", res.Cost)
	}
}

func TestMayflyAdapterDeterministic(t *testing.T) {
	initial := []float64{0, 0}

	// Run twice with same seed (popSize must be >=20 for mayfly v0.1.0)
	res1, err := NewMayfly(50, 20, 5, 123).Minimize(context.Background(), sphere, initial)
	if err != nil {
		t.Fatal(err)
	}
	res2, err := NewMayfly(50, 20, 5, 123).Minimize(context.Background(), sphere, initial)
	if err != nil {
		t.Fatal(err)
	}

	if res1.Cost != res2.Cost {
		t.Errorf("Non-deterministic: cost1=%f, cost2=%f", res1.Cost, res2.Cost)
	}
}

func TestMayflyAdapterEmptyParams(t *testing.T) {
	if _, err := NewMayfly(10, 20, 1, 1).Minimize(context.Background(), sphere, nil); err == nil {
		t.Error("Expected error for empty parameter vector")
	}
}
