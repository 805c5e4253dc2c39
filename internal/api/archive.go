package api

import (
	"fmt"
	"net/http"
)

// handleArchiveRun triggers one snapshot cycle. Per-table failures are
// reported inside the summary; only a cycle that cannot start at all is
// an error response.
func handleArchiveRun(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archive == nil {
		notConfigured(w, "archive service")
		return
	}
	summary, err := deps.Archive.RunOnce(r.Context())
	if err != nil {
		writeDispatchError(w, fmt.Errorf("archive run failed: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "completed",
		"summary": summary,
	})
}
