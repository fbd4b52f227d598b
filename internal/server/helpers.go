package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/plantabyte/hillclimbfit/internal/config"
	"github.com/plantabyte/hillclimbfit/internal/store"
)

// maxBodyBytes bounds scenario request bodies
const maxBodyBytes = 1 << 20

// errorResponse is the JSON body of every error reply
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeScenario reads a JSON scenario, filling omitted fields from the defaults
func decodeScenario(r io.Reader) (config.Scenario, error) {
	sc := config.Default()
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return sc, fmt.Errorf("invalid JSON: %w", err)
	}
	return sc, nil
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var verr *config.ValidationError
	var serr *store.ValidationError
	switch {
	case errors.As(err, &verr), errors.As(err, &serr):
		return http.StatusBadRequest
	case errors.Is(err, ErrJobNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrJobFinished):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
