package store

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestTraceWriter_WriteAndRead(t *testing.T) {
	s, dir := setupTestStore(t)

	tw, err := s.TraceWriter("run-1", false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []TraceEntry{
		{Method: "hillclimb", Iteration: 1, Cost: 9.0, Timestamp: time.Now()},
		{Method: "hillclimb", Iteration: 2, Cost: 4.0, Timestamp: time.Now(), Params: []float64{1, 2, 3, 4}},
		{Method: "hillclimb", Iteration: 3, Cost: 1.0, Timestamp: time.Now()},
	}
	for _, e := range entries {
		if err := tw.Write(e); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	if want := filepath.Join(dir, "runs", "run-1", "trace.jsonl"); tw.Path() != want {
		t.Errorf("Expected path %s, got %s", want, tw.Path())
	}

	got, err := s.ReadTrace("run-1")
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}
	for i := range got {
		if got[i].Iteration != entries[i].Iteration || got[i].Cost != entries[i].Cost {
			t.Errorf("Entry %d mismatch: %+v", i, got[i])
		}
		if len(got[i].Params) != len(entries[i].Params) {
			t.Errorf("Entry %d: expected %d params, got %d", i, len(entries[i].Params), len(got[i].Params))
		}
	}
}

func TestTraceWriter_Append(t *testing.T) {
	s, _ := setupTestStore(t)

	for i, appending := range []bool{false, true} {
		tw, err := s.TraceWriter("run-append", appending)
		if err != nil {
			t.Fatal(err)
		}
		if err := tw.Write(TraceEntry{Iteration: i, Cost: 1}); err != nil {
			t.Fatal(err)
		}
		tw.Close()
	}

	got, err := s.ReadTrace("run-append")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Iteration != 0 || got[1].Iteration != 1 {
		t.Errorf("Expected iterations [0 1], got %+v", got)
	}

	tw, err := s.TraceWriter("run-append", false)
	if err != nil {
		t.Fatal(err)
	}
	tw.Close()
	got, _ = s.ReadTrace("run-append")
	if len(got) != 0 {
		t.Errorf("Expected truncated trace, got %d entries", len(got))
	}
}

func TestTraceWriter_Flush(t *testing.T) {
	s, _ := setupTestStore(t)

	tw, err := s.TraceWriter("run-flush", false)
	if err != nil {
		t.Fatal(err)
	}
	defer tw.Close()

	tw.Write(TraceEntry{Iteration: 1, Cost: 1})
	if err := tw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	data, err := os.ReadFile(tw.Path())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("Trace file is empty after flush")
	}
}

func TestTraceWriter_Recorder(t *testing.T) {
	s, _ := setupTestStore(t)

	tw, err := s.TraceWriter("run-rec", false)
	if err != nil {
		t.Fatal(err)
	}

	params := []float64{1, 2, 3, 4}
	record := tw.Recorder("hillclimb", true)
	record(1, 10, params)
	params[0] = 99 // recorder must have copied
	record(2, 5, params)

	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if tw.Err() != nil {
		t.Fatalf("Unexpected recorder error: %v", tw.Err())
	}

	got, err := s.ReadTrace("run-rec")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	if got[0].Method != "hillclimb" || got[0].Params[0] != 1 {
		t.Errorf("Unexpected first entry: %+v", got[0])
	}
	if got[1].Params[0] != 99 {
		t.Errorf("Unexpected second entry: %+v", got[1])
	}
}

func TestTraceReader_ReadIteratively(t *testing.T) {
	s, _ := setupTestStore(t)

	tw, _ := s.TraceWriter("run-iter", false)
	for i := 0; i < 5; i++ {
		tw.Write(TraceEntry{Iteration: i * 10, Cost: 1.0 - float64(i)*0.1})
	}
	tw.Close()

	r, err := OpenTrace(s.TracePath("run-iter"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	count := 0
	for {
		e, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if e.Iteration != count*10 {
			t.Errorf("Entry %d: expected iteration %d, got %d", count, count*10, e.Iteration)
		}
		count++
	}
	if count != 5 {
		t.Errorf("Expected 5 entries, got %d", count)
	}
}

func TestTraceReader_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	if err := os.WriteFile(path, []byte("{\"iteration\":1}\n{oops\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := OpenTrace(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := r.ReadAll(); err == nil {
		t.Error("Expected decode error")
	}
}

func TestTraceReader_NotFound(t *testing.T) {
	s, _ := setupTestStore(t)

	if _, err := OpenTrace(s.TracePath("missing")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist, got %v", err)
	}
	if _, err := s.ReadTrace("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTraceWriter_ConcurrentWrites(t *testing.T) {
	s, _ := setupTestStore(t)

	tw, err := s.TraceWriter("run-conc", false)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(iter int) {
			defer wg.Done()
			if err := tw.Write(TraceEntry{Iteration: iter, Cost: float64(iter)}); err != nil {
				t.Errorf("Concurrent write failed: %v", err)
			}
		}(i)
	}
	wg.Wait()
	tw.Close()

	got, err := s.ReadTrace("run-conc")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 {
		t.Errorf("Expected 10 entries, got %d", len(got))
	}
}
