package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Bekzat2201/UniConnect/internal/apperrors"
)

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError maps the service error taxonomy onto HTTP status codes and
// surfaces the message to the client.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsConflict(err):
		status = http.StatusConflict
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
	case apperrors.IsPermission(err):
		status = http.StatusForbidden
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
