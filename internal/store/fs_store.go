package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	runsDir   = "runs"
	runFile   = "run.json"
	traceFile = "trace.jsonl"
)

// FSStore keeps each run under <baseDir>/runs/<id>/.
//
// Writes go to a temp file that is renamed into place, so concurrent callers
// need no locking and readers never see a partial run.json.
type FSStore struct {
	baseDir string
}

// NewFSStore creates baseDir if needed and returns a store rooted there
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// BaseDir returns the store root
func (s *FSStore) BaseDir() string { return s.baseDir }

// checkID rejects IDs that are not a single path element under runs/
func checkID(id string) error {
	if id == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if id == "." || id == ".." || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) {
		return &ValidationError{Field: "ID", Reason: fmt.Sprintf("invalid run id %q", id)}
	}
	return nil
}

func (s *FSStore) runDir(id string) string {
	return filepath.Join(s.baseDir, runsDir, id)
}

func (s *FSStore) runPath(id string) string {
	return filepath.Join(s.runDir(id), runFile)
}

// TracePath returns where the trace for run id lives
func (s *FSStore) TracePath(id string) string {
	return filepath.Join(s.runDir(id), traceFile)
}

// SaveRun validates and atomically writes run.json
func (s *FSStore) SaveRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if err := checkID(run.ID); err != nil {
		return err
	}
	if err := run.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.runDir(run.ID), 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	final := s.runPath(run.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp run file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename run file: %w", err)
	}

	slog.Debug("Run saved", "id", run.ID, "path", final)
	return nil
}

// LoadRun reads run.json for id
func (s *FSStore) LoadRun(id string) (*Run, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.runPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to deserialize run %s: %w", id, err)
	}
	return &run, nil
}

// IncompleteRuns lists run directories without a run.json, such as the trace
// of a run that is still in progress or failed before it was saved. Only ID
// and Timestamp (last modification) are set.
func (s *FSStore) IncompleteRuns() ([]RunInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, runsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var infos []RunInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(s.runPath(entry.Name())); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		modified := info.ModTime()
		if st, err := os.Stat(s.TracePath(entry.Name())); err == nil && st.ModTime().After(modified) {
			modified = st.ModTime()
		}
		infos = append(infos, RunInfo{ID: entry.Name(), Timestamp: modified})
	}
	return infos, nil
}

// ListRuns loads every run directory, skipping entries that cannot be read
func (s *FSStore) ListRuns() ([]RunInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, runsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return []RunInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	infos := make([]RunInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		if _, err := os.Stat(s.runPath(id)); err != nil {
			slog.Debug("Skipping incomplete run", "id", id)
			continue
		}

		run, err := s.LoadRun(id)
		if err != nil {
			slog.Warn("Skipping unreadable run", "id", id, "error", err)
			continue
		}
		infos = append(infos, run.ToInfo())
	}

	slog.Debug("Listed runs", "count", len(infos))
	return infos, nil
}

// DeleteRun removes the run directory with everything in it
func (s *FSStore) DeleteRun(id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	dir := s.runDir(id)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return &NotFoundError{ID: id}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("Run deleted", "id", id)
	return nil
}

// TraceWriter opens the trace for run id, truncating unless appending
func (s *FSStore) TraceWriter(id string, appending bool) (*TraceWriter, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.runDir(id), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	return NewTraceWriter(s.TracePath(id), appending)
}

// ReadTrace returns every entry of run id's trace
func (s *FSStore) ReadTrace(id string) ([]TraceEntry, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r, err := OpenTrace(s.TracePath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}
