package api

import (
	"net/http"
	"strconv"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/copilot"
)

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		notConfigured(w, "history store")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, copilot.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	entries := deps.History.Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func handleHistoryStats(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		notConfigured(w, "history store")
		return
	}
	writeJSON(w, http.StatusOK, deps.History.Stats())
}
