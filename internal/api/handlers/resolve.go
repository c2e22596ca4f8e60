package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/relevance"
)

type ResolveHandler struct {
	selector *relevance.Selector
}

func NewResolveHandler(selector *relevance.Selector) *ResolveHandler {
	return &ResolveHandler{selector: selector}
}

type resolveRequest struct {
	Input string `json:"input"`
}

// Resolve picks the live prompt most relevant to the given input text.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h.selector == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "relevance selection not configured"})
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Input == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "input required"})
		return
	}

	v, err := h.selector.Resolve(r.Context(), req.Input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
