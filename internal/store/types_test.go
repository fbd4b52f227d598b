package store

import (
	"errors"
	"testing"
	"time"

	"github.com/plantabyte/hillclimbfit/internal/config"
	"github.com/plantabyte/hillclimbfit/internal/fit"
)

func TestRun_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *Run)
		field  string
	}{
		{"valid", func(r *Run) {}, ""},
		{"empty id", func(r *Run) { r.ID = "" }, "ID"},
		{"zero timestamp", func(r *Run) { r.Timestamp = time.Time{} }, "Timestamp"},
		{"bad scenario", func(r *Run) { r.Scenario.Points = 1 }, "Scenario"},
		{"no results", func(r *Run) { r.Results = nil }, "Results"},
		{"empty method", func(r *Run) { r.Results[0].Method = "" }, "Results[0].Method"},
		{"wrong param count", func(r *Run) { r.Results[1].Params = []float64{1, 2} }, "Results[1].Params"},
		{"negative cost", func(r *Run) { r.Results[0].Cost = -1 }, "Results[0].Cost"},
		{"negative iterations", func(r *Run) { r.Results[1].Iterations = -1 }, "Results[1].Iterations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := createTestRun("run")
			tt.modify(run)
			err := run.Validate()

			if tt.field == "" {
				if err != nil {
					t.Errorf("Expected valid run, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestRun_ToInfo(t *testing.T) {
	run := createTestRun("run-info")
	info := run.ToInfo()

	if info.ID != "run-info" {
		t.Errorf("ID mismatch: %s", info.ID)
	}
	if info.Points != run.Scenario.Points {
		t.Errorf("Points mismatch: expected %d, got %d", run.Scenario.Points, info.Points)
	}
	if len(info.Methods) != 2 || info.Methods[0] != config.MethodLM || info.Methods[1] != config.MethodHillClimb {
		t.Errorf("Unexpected methods: %v", info.Methods)
	}
	if info.BestMethod != config.MethodLM || info.BestCost != 12.5 {
		t.Errorf("Expected best lm at 12.5, got %s at %g", info.BestMethod, info.BestCost)
	}
	if info.HillClimbIterations != 812 {
		t.Errorf("Expected 812 hill-climb iterations, got %d", info.HillClimbIterations)
	}
}

func TestNewRun_RoundTripsComparison(t *testing.T) {
	sc := config.Default()
	cmp := &fit.Comparison{
		Scenario: sc,
		Samples:  fit.GenerateSamples(sc),
		Results:  createTestRun("x").Results,
	}

	run := NewRun("abc", cmp)
	if run.ID != "abc" || run.Timestamp.IsZero() {
		t.Fatalf("Unexpected run header: %+v", run)
	}

	back := run.Comparison()
	if back.Samples.Len() != cmp.Samples.Len() {
		t.Fatalf("Expected %d samples, got %d", cmp.Samples.Len(), back.Samples.Len())
	}
	for i := range cmp.Samples.Y {
		if back.Samples.Y[i] != cmp.Samples.Y[i] {
			t.Fatalf("Sample %d differs after regeneration", i)
		}
	}
}
