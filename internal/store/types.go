package store

import (
	"fmt"
	"time"

	"github.com/plantabyte/hillclimbfit/internal/config"
	"github.com/plantabyte/hillclimbfit/internal/fit"
)

// Run is a persisted fit comparison. Samples are not stored; they are
// regenerated from the scenario seed when needed.
type Run struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Scenario  config.Scenario `json:"scenario"`
	Results   []fit.Result    `json:"results"`
}

// RunInfo is the listing view of a run
type RunInfo struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Methods   []string  `json:"methods"`
	Points    int       `json:"points"`

	// BestMethod is the method with the lowest residual cost
	BestMethod string  `json:"bestMethod"`
	BestCost   float64 `json:"bestCost"`

	// HillClimbIterations is 0 when the hill-climb did not run
	HillClimbIterations int `json:"hillclimbIterations"`
}

// NewRun wraps a finished comparison for persistence
func NewRun(id string, cmp *fit.Comparison) *Run {
	return &Run{
		ID:        id,
		Timestamp: time.Now(),
		Scenario:  cmp.Scenario,
		Results:   cmp.Results,
	}
}

// Comparison rebuilds the full comparison, including samples
func (r *Run) Comparison() *fit.Comparison {
	return &fit.Comparison{
		Scenario: r.Scenario,
		Samples:  fit.GenerateSamples(r.Scenario),
		Results:  r.Results,
	}
}

// ToInfo summarizes the run
func (r *Run) ToInfo() RunInfo {
	info := RunInfo{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		Points:    r.Scenario.Points,
		Methods:   make([]string, 0, len(r.Results)),
	}
	for i, res := range r.Results {
		info.Methods = append(info.Methods, res.Method)
		if i == 0 || res.Cost < info.BestCost {
			info.BestMethod = res.Method
			info.BestCost = res.Cost
		}
		if res.Method == config.MethodHillClimb {
			info.HillClimbIterations = res.Iterations
		}
	}
	return info
}

// Validate checks that the run is complete and self-consistent
func (r *Run) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if err := r.Scenario.Validate(); err != nil {
		return &ValidationError{Field: "Scenario", Reason: err.Error()}
	}
	if len(r.Results) == 0 {
		return &ValidationError{Field: "Results", Reason: "cannot be empty"}
	}

	want := len(r.Scenario.TrueParams)
	for i, res := range r.Results {
		field := fmt.Sprintf("Results[%d]", i)
		if res.Method == "" {
			return &ValidationError{Field: field + ".Method", Reason: "cannot be empty"}
		}
		if len(res.Params) != want {
			return &ValidationError{
				Field:  field + ".Params",
				Reason: fmt.Sprintf("length mismatch: expected %d, got %d", want, len(res.Params)),
			}
		}
		if res.Cost < 0 {
			return &ValidationError{Field: field + ".Cost", Reason: "cannot be negative"}
		}
		if res.Iterations < 0 {
			return &ValidationError{Field: field + ".Iterations", Reason: "cannot be negative"}
		}
	}
	return nil
}

// ValidationError reports the offending field of an invalid run
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
