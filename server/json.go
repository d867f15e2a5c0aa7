package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/ferretcontrol-console/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

type redirectResponse struct {
	Redirect string `json:"redirect"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeBackendError maps an error from the backend client onto a response.
func writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrNotAuthenticated), errors.Is(err, errors.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, redirectResponse{Redirect: RouteLogin})
	case errors.Is(err, errors.ErrNotFound):
		writeJSONError(w, "not_found", "Notification not found", http.StatusNotFound)
	case errors.Is(err, errors.ErrInvalidRequest):
		writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, errors.ErrNetwork):
		writeJSONError(w, "backend_unavailable", "Backend unreachable", http.StatusBadGateway)
	default:
		writeJSONError(w, "server_error", "Unexpected backend response", http.StatusBadGateway)
	}
}
