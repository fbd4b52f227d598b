package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/plantabyte/hillclimbfit/internal/config"
	"github.com/plantabyte/hillclimbfit/internal/fit"
	"github.com/plantabyte/hillclimbfit/internal/opt"
	"github.com/plantabyte/hillclimbfit/internal/store"
)

// progressInterval throttles SSE progress broadcasts
const progressInterval = 500 * time.Millisecond

// traceStore is implemented by stores that can record per-iteration traces
type traceStore interface {
	TraceWriter(id string, appending bool) (*store.TraceWriter, error)
}

// runJob executes a fit comparison in the background.
// If st is not nil the finished run is persisted, along with a hill-climb
// trace when the store supports it.
func runJob(ctx context.Context, jm *JobManager, st store.Store, jobID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sc config.Scenario
	started := false
	err := jm.UpdateJob(jobID, func(j *Job) {
		if j.State != StatePending {
			return
		}
		j.State = StateRunning
		j.cancel = cancel
		sc = j.Scenario
		started = true
	})
	if err != nil {
		return err
	}
	if !started {
		// Cancelled before the worker picked it up
		return context.Canceled
	}

	activeJobs.Inc()
	defer activeJobs.Dec()

	slog.Info("Starting job", "job_id", jobID, "methods", sc.Methods, "points", sc.Points)
	recordStarted(sc.Methods)

	var tw *store.TraceWriter
	if ts, ok := st.(traceStore); ok {
		tw, err = ts.TraceWriter(jobID, false)
		if err != nil {
			slog.Warn("Trace disabled", "job_id", jobID, "error", err)
			tw = nil
		}
	}

	progress := jobProgress(jm, jobID, tw)

	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	start := time.Now()
	cmp, err := fit.Compare(ctx, sc, progress)
	close(progressDone)

	if tw != nil {
		if cerr := tw.Close(); cerr != nil {
			slog.Warn("Failed to close trace", "job_id", jobID, "error", cerr)
		}
		if rerr := tw.Err(); rerr != nil {
			slog.Warn("Trace incomplete", "job_id", jobID, "error", rerr)
		}
	}

	if err != nil {
		if tw != nil {
			discardRun(st, jobID)
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			markJobCancelled(jm, jobID)
			recordOutcome(sc.Methods, outcomeCancelled)
		} else {
			markJobFailed(jm, jobID, err)
			recordOutcome(sc.Methods, outcomeFailed)
		}
		return err
	}

	saved := false
	if st != nil {
		if err := st.SaveRun(store.NewRun(jobID, cmp)); err != nil {
			slog.Error("Failed to persist run", "job_id", jobID, "error", err)
		} else {
			saved = true
		}
	}

	hc, _ := cmp.Result(config.MethodHillClimb)
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Results = cmp.Results
		j.comparison = cmp
		j.Saved = saved
		j.EndTime = &endTime
		j.cancel = nil
		if hc != nil {
			j.Iterations = hc.Iterations
			j.BestCost = hc.Cost
		}
	})
	if err != nil {
		return err
	}

	recordResults(cmp.Results)
	slog.Info("Job completed", "job_id", jobID, "elapsed", time.Since(start), "saved", saved)

	final := ProgressEvent{JobID: jobID, State: StateCompleted, Timestamp: time.Now()}
	if hc != nil {
		final.Iterations = hc.Iterations
		final.BestCost = hc.Cost
	}
	jm.broadcaster.Broadcast(final)

	return nil
}

// jobProgress records hill-climb iterations on the job and, if tw is set, in the trace
func jobProgress(jm *JobManager, jobID string, tw *store.TraceWriter) opt.ProgressFunc {
	var record opt.ProgressFunc
	if tw != nil {
		record = tw.Recorder(config.MethodHillClimb, false)
	}
	return func(iteration int, cost float64, params []float64) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Iterations = iteration
			j.BestCost = cost
		})
		if record != nil {
			record(iteration, cost, params)
		}
	}
}

// monitorProgress periodically broadcasts progress events during a job
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists || job.State.Finished() {
				return
			}
			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:      jobID,
				State:      job.State,
				Iterations: job.Iterations,
				BestCost:   job.BestCost,
				Timestamp:  time.Now(),
			})
		}
	}
}

// discardRun removes the partial run directory of a job that did not finish
func discardRun(st store.Store, jobID string) {
	if err := st.DeleteRun(jobID); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("Failed to remove partial run", "job_id", jobID, "error", err)
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
		j.cancel = nil
	})
	jm.broadcaster.Broadcast(ProgressEvent{JobID: jobID, State: StateFailed, Timestamp: endTime})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
		j.cancel = nil
	})
	jm.broadcaster.Broadcast(ProgressEvent{JobID: jobID, State: StateCancelled, Timestamp: endTime})
	slog.Info("Job cancelled", "job_id", jobID)
}
