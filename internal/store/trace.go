package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/plantabyte/hillclimbfit/internal/opt"
)

// TraceEntry is one line of trace.jsonl
type TraceEntry struct {
	Method    string    `json:"method,omitempty"`
	Iteration int       `json:"iteration"`
	Cost      float64   `json:"cost"`
	Timestamp time.Time `json:"timestamp"`
	Params    []float64 `json:"params,omitempty"`
}

// TraceWriter appends JSON lines to a trace file. Safe for concurrent use.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	enc    *json.Encoder
	path   string
	err    error // first error seen by Recorder
	closed bool
}

// NewTraceWriter opens path for writing, truncating unless appending
func NewTraceWriter(path string, appending bool) (*TraceWriter, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appending {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	buf := bufio.NewWriterSize(file, 64*1024)
	return &TraceWriter{
		file: file,
		buf:  buf,
		enc:  json.NewEncoder(buf),
		path: path,
	}, nil
}

// Write buffers one entry; it reaches disk on Flush or Close
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return errors.New("trace writer is closed")
	}
	if err := tw.enc.Encode(entry); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	return nil
}

// Recorder returns a progress callback that writes one entry per iteration
// for method. Write failures are kept and reported by Err.
func (tw *TraceWriter) Recorder(method string, withParams bool) opt.ProgressFunc {
	return func(iteration int, cost float64, params []float64) {
		entry := TraceEntry{
			Method:    method,
			Iteration: iteration,
			Cost:      cost,
			Timestamp: time.Now(),
		}
		if withParams {
			entry.Params = append([]float64(nil), params...)
		}
		if err := tw.Write(entry); err != nil {
			tw.mu.Lock()
			if tw.err == nil {
				tw.err = err
			}
			tw.mu.Unlock()
		}
	}
}

// Err returns the first error hit by a Recorder callback
func (tw *TraceWriter) Err() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.err
}

// Flush writes buffered entries and syncs the file
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Later calls are no-ops.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}
	tw.closed = true
	flushErr := tw.buf.Flush()
	closeErr := tw.file.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush on close: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close trace file: %w", closeErr)
	}
	return nil
}

// Path returns the trace file path
func (tw *TraceWriter) Path() string { return tw.path }

// TraceReader decodes entries from a trace file
type TraceReader struct {
	file *os.File
	dec  *json.Decoder
}

// OpenTrace opens a trace file for reading. A missing file yields an error
// matching fs.ErrNotExist.
func OpenTrace(path string) (*TraceReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return &TraceReader{file: file, dec: json.NewDecoder(bufio.NewReader(file))}, nil
}

// Read returns the next entry, or io.EOF at the end
func (tr *TraceReader) Read() (*TraceEntry, error) {
	var entry TraceEntry
	if err := tr.dec.Decode(&entry); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode trace entry: %w", err)
	}
	return &entry, nil
}

// ReadAll reads the remaining entries
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry
	for {
		entry, err := tr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
}

// Close closes the underlying file
func (tr *TraceReader) Close() error {
	return tr.file.Close()
}
