package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fitting method names
const (
	MethodLM         = "lm"
	MethodHillClimb  = "hillclimb"
	MethodMayfly     = "mayfly"
	MethodNelderMead = "neldermead"
	MethodPolyFit    = "polyfit"
)

// Methods lists every known fitting method in report order
var Methods = []string{MethodLM, MethodHillClimb, MethodMayfly, MethodNelderMead, MethodPolyFit}

// Scenario describes one synthetic curve-fitting comparison
type Scenario struct {
	// TrueParams are the cubic coefficients, highest power first
	TrueParams    []float64 `yaml:"true_params" json:"trueParams"`
	InitialParams []float64 `yaml:"initial_params" json:"initialParams"`

	XMin   float64 `yaml:"x_min" json:"xMin"`
	XMax   float64 `yaml:"x_max" json:"xMax"`
	Points int     `yaml:"points" json:"points"`

	// NoiseSigma is the standard deviation of the Gaussian noise; 0 = noiseless
	NoiseSigma float64 `yaml:"noise_sigma" json:"noiseSigma"`
	Seed       uint64  `yaml:"seed" json:"seed"`

	Methods []string `yaml:"methods" json:"methods"`

	HillClimb HillClimbConfig `yaml:"hillclimb" json:"hillclimb"`
	Mayfly    MayflyConfig    `yaml:"mayfly" json:"mayfly"`
}

// HillClimbConfig tunes the hill-climb optimizer
type HillClimbConfig struct {
	Precision      float64 `yaml:"precision" json:"precision"`
	IterationLimit int     `yaml:"iteration_limit" json:"iterationLimit"`
}

// MayflyConfig tunes the Mayfly swarm optimizer
type MayflyConfig struct {
	Iterations int     `yaml:"iterations" json:"iterations"`
	Population int     `yaml:"population" json:"population"`
	Bound      float64 `yaml:"bound" json:"bound"`
}

// Default returns the reference comparison: a cubic with coefficients
// [-0.05, 0.2, 1.5, -5.7] sampled at 17 points on [-10, 10] with unit noise.
func Default() Scenario {
	return Scenario{
		TrueParams:    []float64{-0.05, 0.2, 1.5, -5.7},
		InitialParams: []float64{0, 0, 0, 0},
		XMin:          -10,
		XMax:          10,
		Points:        17,
		NoiseSigma:    1,
		Seed:          42,
		Methods:       []string{MethodLM, MethodHillClimb},
		HillClimb: HillClimbConfig{
			Precision:      1e-6,
			IterationLimit: 1000000,
		},
		Mayfly: MayflyConfig{
			Iterations: 200,
			Population: 30,
			Bound:      10,
		},
	}
}

// Load reads a scenario file on top of Default. Files ending in .json use the
// JSON field names, everything else is parsed as YAML.
func Load(path string) (Scenario, error) {
	sc := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("failed to read scenario file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &sc)
	} else {
		err = yaml.Unmarshal(data, &sc)
	}
	if err != nil {
		return sc, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}

	return sc, nil
}

// Validate checks the scenario for consistency
func (s *Scenario) Validate() error {
	if len(s.TrueParams) == 0 {
		return &ValidationError{Field: "TrueParams", Reason: "cannot be empty"}
	}
	if len(s.InitialParams) != len(s.TrueParams) {
		return &ValidationError{
			Field:  "InitialParams",
			Reason: fmt.Sprintf("length mismatch: expected %d, got %d", len(s.TrueParams), len(s.InitialParams)),
		}
	}
	if s.Points < len(s.TrueParams) {
		return &ValidationError{
			Field:  "Points",
			Reason: fmt.Sprintf("must be at least the parameter count %d", len(s.TrueParams)),
		}
	}
	if !(s.XMax > s.XMin) {
		return &ValidationError{Field: "XMax", Reason: "must be greater than XMin"}
	}
	if !(s.NoiseSigma >= 0) {
		return &ValidationError{Field: "NoiseSigma", Reason: "cannot be negative"}
	}
	if len(s.Methods) == 0 {
		return &ValidationError{Field: "Methods", Reason: "cannot be empty"}
	}
	for _, m := range s.Methods {
		if !slices.Contains(Methods, m) {
			return &ValidationError{Field: "Methods", Reason: "unknown method " + m}
		}
	}
	if slices.Contains(s.Methods, MethodHillClimb) && !(s.HillClimb.Precision > 0) {
		return &ValidationError{Field: "HillClimb.Precision", Reason: "must be positive"}
	}
	if slices.Contains(s.Methods, MethodMayfly) {
		if s.Mayfly.Iterations <= 0 {
			return &ValidationError{Field: "Mayfly.Iterations", Reason: "must be positive"}
		}
		// mayfly v0.1.0 needs at least 20 mayflies
		if s.Mayfly.Population < 20 {
			return &ValidationError{Field: "Mayfly.Population", Reason: "must be at least 20"}
		}
		if !(s.Mayfly.Bound > 0) {
			return &ValidationError{Field: "Mayfly.Bound", Reason: "must be positive"}
		}
	}
	return nil
}

// ValidationError represents a scenario validation error
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
