package fit

import (
	"math"
	"testing"
)

func TestPolynomial(t *testing.T) {
	tests := []struct {
		name   string
		coeffs []float64
		x      float64
		want   float64
	}{
		{"empty", nil, 3, 0},
		{"constant", []float64{4}, 100, 4},
		{"linear", []float64{2, 1}, 3, 7},
		{"cubic", []float64{-0.05, 0.2, 1.5, -5.7}, 2, -0.4 + 0.8 + 3 - 5.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Polynomial(tt.x, tt.coeffs)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Polynomial(%v, %v) = %v, want %v", tt.x, tt.coeffs, got, tt.want)
			}
		})
	}
}

func TestLinspace(t *testing.T) {
	xs := Linspace(-10, 10, 17)
	if len(xs) != 17 {
		t.Fatalf("Expected 17 points, got %d", len(xs))
	}
	if xs[0] != -10 || xs[16] != 10 {
		t.Errorf("Endpoints wrong: %v, %v", xs[0], xs[16])
	}
	for i := 1; i < len(xs); i++ {
		if math.Abs(xs[i]-xs[i-1]-1.25) > 1e-12 {
			t.Errorf("Uneven spacing at %d: %v", i, xs[i]-xs[i-1])
		}
	}

	if got := Linspace(3, 5, 1); len(got) != 1 || got[0] != 3 {
		t.Errorf("Single point should be lo, got %v", got)
	}
	if got := Linspace(3, 5, 0); len(got) != 0 {
		t.Errorf("Zero points should be empty, got %v", got)
	}
}

func TestGenerateNoiseless(t *testing.T) {
	params := []float64{1, 0, -2}
	xs := []float64{-1, 0, 1, 2}

	samples := Generate(Polynomial, params, xs, 0, NewSource(1))

	want := []float64{-1, -2, -1, 2}
	for i := range want {
		if samples.Y[i] != want[i] {
			t.Errorf("Y[%d] = %v, want %v", i, samples.Y[i], want[i])
		}
	}

	// X must be a copy
	xs[0] = 99
	if samples.X[0] != -1 {
		t.Error("Generate should copy the x grid")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	params := []float64{-0.05, 0.2, 1.5, -5.7}
	xs := Linspace(-10, 10, 17)

	a := Generate(Polynomial, params, xs, 1, NewSource(42))
	b := Generate(Polynomial, params, xs, 1, NewSource(42))
	c := Generate(Polynomial, params, xs, 1, NewSource(43))

	same := true
	for i := range a.Y {
		if a.Y[i] != b.Y[i] {
			t.Fatalf("Same seed produced different samples at %d: %v vs %v", i, a.Y[i], b.Y[i])
		}
		if a.Y[i] != c.Y[i] {
			same = false
		}
	}
	if same {
		t.Error("Different seeds should produce different samples")
	}
}

func TestGenerateNoiseScale(t *testing.T) {
	xs := Linspace(0, 1, 4000)
	samples := Generate(Polynomial, []float64{0}, xs, 2, NewSource(7))

	var sum, sumSq float64
	for _, y := range samples.Y {
		sum += y
		sumSq += y * y
	}
	n := float64(len(xs))
	mean := sum / n
	sd := math.Sqrt(sumSq/n - mean*mean)

	if math.Abs(mean) > 0.2 {
		t.Errorf("Noise mean should be near 0, got %f", mean)
	}
	if math.Abs(sd-2) > 0.2 {
		t.Errorf("Noise sd should be near 2, got %f", sd)
	}
}

func TestSampleSetValidate(t *testing.T) {
	if err := (SampleSet{X: []float64{1}, Y: []float64{1, 2}}).Validate(); err == nil {
		t.Error("Expected error for mismatched lengths")
	}
	if err := (SampleSet{}).Validate(); err == nil {
		t.Error("Expected error for empty set")
	}
	if err := (SampleSet{X: []float64{1}, Y: []float64{1}}).Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
