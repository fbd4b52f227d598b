package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	sc := Default()
	if err := sc.Validate(); err != nil {
		t.Fatalf("Default scenario should be valid: %v", err)
	}
	if sc.Points != 17 {
		t.Errorf("Expected 17 points, got %d", sc.Points)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Scenario)
		field  string
	}{
		{"empty truth", func(s *Scenario) { s.TrueParams = nil }, "TrueParams"},
		{"initial mismatch", func(s *Scenario) { s.InitialParams = []float64{0} }, "InitialParams"},
		{"too few points", func(s *Scenario) { s.Points = 3 }, "Points"},
		{"inverted range", func(s *Scenario) { s.XMin, s.XMax = 1, -1 }, "XMax"},
		{"negative noise", func(s *Scenario) { s.NoiseSigma = -1 }, "NoiseSigma"},
		{"no methods", func(s *Scenario) { s.Methods = nil }, "Methods"},
		{"unknown method", func(s *Scenario) { s.Methods = []string{"simplex"} }, "Methods"},
		{"zero precision", func(s *Scenario) { s.HillClimb.Precision = 0 }, "HillClimb.Precision"},
		{"small swarm", func(s *Scenario) {
			s.Methods = []string{MethodMayfly}
			s.Mayfly.Population = 10
		}, "Mayfly.Population"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := Default()
			tt.modify(&sc)

			err := sc.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, ve.Field)
			}
		})
	}
}

func TestPrecisionIgnoredWithoutHillClimb(t *testing.T) {
	sc := Default()
	sc.Methods = []string{MethodLM}
	sc.HillClimb.Precision = 0
	if err := sc.Validate(); err != nil {
		t.Errorf("Precision should only matter for hillclimb: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	content := `
true_params: [1, 2]
initial_params: [0, 0]
points: 9
noise_sigma: 0.5
methods: [lm, neldermead]
hillclimb:
  precision: 0.001
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(sc.TrueParams) != 2 || sc.TrueParams[1] != 2 {
		t.Errorf("TrueParams not loaded: %v", sc.TrueParams)
	}
	if sc.Points != 9 || sc.NoiseSigma != 0.5 {
		t.Errorf("Points/NoiseSigma not loaded: %d %f", sc.Points, sc.NoiseSigma)
	}
	if sc.HillClimb.Precision != 0.001 {
		t.Errorf("Precision not loaded: %f", sc.HillClimb.Precision)
	}
	// Unset fields keep their defaults
	if sc.XMin != -10 || sc.XMax != 10 {
		t.Errorf("Range should default to [-10, 10], got [%f, %f]", sc.XMin, sc.XMax)
	}
	if sc.HillClimb.IterationLimit != 1000000 {
		t.Errorf("IterationLimit should keep default, got %d", sc.HillClimb.IterationLimit)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.json")
	if err := os.WriteFile(path, []byte(`{"points": 33, "seed": 7, "trueParams": [1, 2, 3], "initialParams": [0, 0, 0]}`), 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sc.Points != 33 || sc.Seed != 7 {
		t.Errorf("JSON scenario not loaded: points=%d seed=%d", sc.Points, sc.Seed)
	}
	if len(sc.TrueParams) != 3 {
		t.Errorf("JSON field names not honoured: %v", sc.TrueParams)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("points: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
