package api

import (
	"errors"
	"net/http"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/copilot"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/workflows"
)

func handleListWorkflows(deps Dependencies, w http.ResponseWriter, _ *http.Request) {
	if deps.Workflows == nil {
		notConfigured(w, "workflow registry")
		return
	}
	list := deps.Workflows.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"workflows": list,
		"count":     len(list),
	})
}

// handleRenderWorkflow renders one workflow with arguments taken from
// the query string, e.g. /v1/workflows/sales_analysis?region=Europe.
func handleRenderWorkflow(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Workflows == nil {
		notConfigured(w, "workflow registry")
		return
	}
	args := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			args[key] = values[0]
		}
	}

	rendered, err := deps.Workflows.Render(r.PathValue("name"), args)
	if err != nil {
		var unknown *workflows.UnknownWorkflowError
		if errors.As(err, &unknown) {
			writeError(w, http.StatusNotFound, &copilot.Error{
				Kind:       copilot.KindValidation,
				Message:    err.Error(),
				Suggestion: "List available workflows at /v1/workflows.",
			})
			return
		}
		var missing *workflows.MissingArgumentError
		if errors.As(err, &missing) {
			writeError(w, http.StatusBadRequest, copilot.NewValidationError("%s", err.Error()))
			return
		}
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rendered)
}
