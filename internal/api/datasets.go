package api

import (
	"errors"
	"net/http"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/catalog"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/copilot"
)

func handleListDatasets(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		notConfigured(w, "dataset catalog")
		return
	}
	datasets, err := deps.Catalog.ListDatasets(r.Context())
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

func handleGetDataset(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		notConfigured(w, "dataset catalog")
		return
	}
	name := r.PathValue("table")
	detail, err := deps.Catalog.GetDataset(r.Context(), name)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, &copilot.Error{
				Kind:       copilot.KindValidation,
				Message:    "dataset " + name + " not found",
				Suggestion: "List available datasets at /v1/datasets.",
			})
			return
		}
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
