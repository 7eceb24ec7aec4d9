package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prisken/client-crm-sub000/internal/planner"
	"github.com/prisken/client-crm-sub000/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service and store errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, planner.ErrInvalidDailyHours),
		errors.Is(err, planner.ErrAgentRequired):
		status = http.StatusBadRequest
	case errors.Is(err, planner.ErrTaskClosed):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
