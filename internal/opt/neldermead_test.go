package opt

import (
	"context"
	"math"
	"testing"
)

func TestNelderMeadShiftedSphere(t *testing.T) {
	nm := NewNelderMead(0, 0)

	res, err := nm.Minimize(context.Background(), shiftedSphere, []float64{0, 0, 0})
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}

	want := []float64{1, -2, 3}
	for i := range want {
		if math.Abs(res.Params[i]-want[i]) > 1e-3 {
			t.Errorf("Param %d = %f, want %f", i, res.Params[i], want[i])
		}
	}
	if res.Evaluations == 0 {
		t.Error("Expected evaluations to be reported")
	}
}

func TestNelderMeadName(t *testing.T) {
	var o Optimizer = NewNelderMead(10, 100)
	if o.Name() != "neldermead" {
		t.Errorf("Unexpected name %q", o.Name())
	}
}
