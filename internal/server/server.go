package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plantabyte/hillclimbfit/internal/fit"
	"github.com/plantabyte/hillclimbfit/internal/plot"
	"github.com/plantabyte/hillclimbfit/internal/store"
)

const (
	fitsPath = "/api/v1/fits"
	runsPath = "/api/v1/runs"
)

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	store      store.Store // nil disables persistence
	addr       string
	server     *http.Server

	// jobsCtx parents every job; Shutdown cancels it
	jobsCtx    context.Context
	cancelJobs context.CancelFunc
}

// JobStatus is a job plus its wall time so far
type JobStatus struct {
	*Job
	Elapsed float64 `json:"elapsed"` // seconds
}

// NewServer creates a new HTTP server. st may be nil.
func NewServer(addr string, st store.Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager: NewJobManager(),
		store:      st,
		addr:       addr,
		jobsCtx:    ctx,
		cancelJobs: cancel,
	}
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(fitsPath, s.handleFits)
	mux.HandleFunc(fitsPath+"/", s.handleFitsWithID)
	mux.HandleFunc(runsPath, s.handleRuns)
	mux.HandleFunc(runsPath+"/", s.handleRunsWithID)
	mux.Handle("/metrics", promhttp.Handler())

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr, "persist", s.store != nil)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown cancels running jobs and gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "running_jobs", len(s.jobManager.GetRunningJobs()))
	s.jobManager.CancelAll()
	s.cancelJobs()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleFits handles /api/v1/fits
func (s *Server) handleFits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateFit(w, r)
	case http.MethodGet:
		s.handleListFits(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// splitID parses "<prefix>/<id>[/<sub>]"
func splitID(path, prefix string) (id, sub string) {
	rest := strings.TrimPrefix(path, prefix+"/")
	id, sub, _ = strings.Cut(rest, "/")
	return id, sub
}

// handleFitsWithID handles /api/v1/fits/:id/*
func (s *Server) handleFitsWithID(w http.ResponseWriter, r *http.Request) {
	id, sub := splitID(r.URL.Path, fitsPath)
	if id == "" {
		writeError(w, http.StatusBadRequest, "job ID required")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.handleGetFit(w, r, id)
	case sub == "" && r.Method == http.MethodDelete:
		s.handleCancelFit(w, r, id)
	case sub == "plot.png" && r.Method == http.MethodGet:
		s.handleFitPlot(w, r, id)
	case sub == "stream" && r.Method == http.MethodGet:
		s.handleJobStream(w, r, id)
	case sub == "" || sub == "plot.png" || sub == "stream":
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleCreateFit handles POST /api/v1/fits
func (s *Server) handleCreateFit(w http.ResponseWriter, r *http.Request) {
	sc, err := decodeScenario(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sc.Validate(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	job := s.jobManager.CreateJob(sc)
	go runJob(s.jobsCtx, s.jobManager, s.store, job.ID)

	writeJSON(w, http.StatusCreated, job)
}

// handleListFits handles GET /api/v1/fits
func (s *Server) handleListFits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetFit handles GET /api/v1/fits/:id
func (s *Server) handleGetFit(w http.ResponseWriter, r *http.Request, id string) {
	job, exists := s.jobManager.GetJob(id)
	if !exists {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	end := time.Now()
	if job.EndTime != nil {
		end = *job.EndTime
	}
	writeJSON(w, http.StatusOK, JobStatus{Job: job, Elapsed: end.Sub(job.StartTime).Seconds()})
}

// handleCancelFit handles DELETE /api/v1/fits/:id
func (s *Server) handleCancelFit(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.jobManager.Cancel(id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	job, _ := s.jobManager.GetJob(id)
	writeJSON(w, http.StatusAccepted, job)
}

// handleFitPlot handles GET /api/v1/fits/:id/plot.png
func (s *Server) handleFitPlot(w http.ResponseWriter, r *http.Request, id string) {
	job, exists := s.jobManager.GetJob(id)
	if !exists {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	cmp, ok := s.jobManager.Comparison(id)
	if !ok {
		writeError(w, http.StatusConflict, "job is "+string(job.State))
		return
	}
	writePlot(w, cmp)
}

// handleRuns handles GET /api/v1/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, []store.RunInfo{})
		return
	}

	infos, err := s.store.ListRuns()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleRunsWithID handles /api/v1/runs/:id and /api/v1/runs/:id/plot.png
func (s *Server) handleRunsWithID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, sub := splitID(r.URL.Path, runsPath)
	if id == "" {
		writeError(w, http.StatusBadRequest, "run ID required")
		return
	}
	if sub != "" && sub != "plot.png" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "persistence disabled")
		return
	}

	run, err := s.store.LoadRun(id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if sub == "plot.png" {
		writePlot(w, run.Comparison())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writePlot(w http.ResponseWriter, cmp *fit.Comparison) {
	var buf bytes.Buffer
	if err := plot.WritePNG(&buf, cmp); err != nil {
		slog.Error("Failed to render plot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render plot")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
