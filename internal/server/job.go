package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plantabyte/hillclimbfit/internal/config"
	"github.com/plantabyte/hillclimbfit/internal/fit"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Finished reports whether the state is terminal
func (s JobState) Finished() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// ErrJobNotFound is returned for unknown job IDs
var ErrJobNotFound = errors.New("job not found")

// ErrJobFinished is returned when cancelling a job that already ended
var ErrJobFinished = errors.New("job already finished")

// Job is a background fit comparison
type Job struct {
	ID       string          `json:"id"`
	State    JobState        `json:"state"`
	Scenario config.Scenario `json:"scenario"`
	Results  []fit.Result    `json:"results,omitempty"`

	// Live hill-climb progress
	Iterations int     `json:"iterations"`
	BestCost   float64 `json:"bestCost"`

	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Error     string     `json:"error,omitempty"`
	Saved     bool       `json:"saved,omitempty"`

	cancel     context.CancelFunc
	comparison *fit.Comparison
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// snapshot copies the exported fields so callers never share job state
func (j *Job) snapshot() *Job {
	cp := *j
	cp.Results = append([]fit.Result(nil), j.Results...)
	cp.cancel = nil
	cp.comparison = nil
	if j.EndTime != nil {
		end := *j.EndTime
		cp.EndTime = &end
	}
	return &cp
}

// CreateJob registers a pending job for the scenario
func (jm *JobManager) CreateJob(sc config.Scenario) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Scenario:  sc,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job.snapshot()
}

// GetJob returns a snapshot of a job
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	return job.snapshot(), true
}

// ListJobs returns snapshots of all jobs, oldest first
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.snapshot())
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].StartTime.Before(jobs[k].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	updateFn(job)
	return nil
}

// Cancel stops a pending or running job
func (jm *JobManager) Cancel(id string) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.State.Finished() {
		return fmt.Errorf("%w: %s is %s", ErrJobFinished, id, job.State)
	}

	if job.cancel != nil {
		job.cancel()
	} else {
		// Worker not started yet; it will see the state and exit
		end := time.Now()
		job.State = StateCancelled
		job.EndTime = &end
		jm.broadcaster.Broadcast(ProgressEvent{JobID: id, State: StateCancelled, Timestamp: end})
	}
	return nil
}

// Comparison returns the full result of a completed job
func (jm *JobManager) Comparison(id string) (*fit.Comparison, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists || job.comparison == nil {
		return nil, false
	}
	return job.comparison, true
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	running := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			running = append(running, job.snapshot())
		}
	}
	return running
}

// CancelAll cancels every unfinished job
func (jm *JobManager) CancelAll() {
	jm.mu.RLock()
	ids := make([]string, 0, len(jm.jobs))
	for id, job := range jm.jobs {
		if !job.State.Finished() {
			ids = append(ids, id)
		}
	}
	jm.mu.RUnlock()

	for _, id := range ids {
		jm.Cancel(id)
	}
}
