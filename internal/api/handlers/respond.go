package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/prompt"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case prompt.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case prompt.IsDuplicateVersion(err), prompt.IsReferenced(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case prompt.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
