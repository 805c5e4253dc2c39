package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/copilot"
)

// Tool request bodies. Numeric fields whose contract rejects explicit
// zero are pointers so a missing field can fall through to the
// operation default while a literal 0 is refused here.
type executeQueryRequest struct {
	Text     string `json:"text"`
	Hint     string `json:"hint"`
	RowLimit *int   `json:"row_limit"`
}

type analyzeTableRequest struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	GroupBy string   `json:"group_by"`
}

type detectAnomaliesRequest struct {
	Table        string   `json:"table"`
	MetricColumn string   `json:"metric_column"`
	DateColumn   string   `json:"date_column"`
	Method       string   `json:"method"`
	Threshold    *float64 `json:"threshold"`
	Explain      bool     `json:"explain"`
}

type synthesizeInsightRequest struct {
	Question   string `json:"question"`
	Table      string `json:"table"`
	TimePeriod string `json:"time_period"`
}

type translateRequest struct {
	Question string `json:"question"`
}

type translateResponse struct {
	GeneratedSQL string `json:"generated_sql"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

func handleExecuteQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Dispatcher == nil {
		notConfigured(w, "tool dispatcher")
		return
	}
	var req executeQueryRequest
	if derr := decodeJSON(r, &req); derr != nil {
		writeError(w, http.StatusBadRequest, derr)
		return
	}
	if req.RowLimit != nil && *req.RowLimit <= 0 {
		writeError(w, http.StatusBadRequest, copilot.NewValidationError("row_limit must be greater than zero"))
		return
	}
	op := copilot.ExecuteQuery{Text: req.Text, Hint: req.Hint}
	if req.RowLimit != nil {
		op.RowLimit = *req.RowLimit
	}
	dispatch(deps, w, r, op)
}

func handleAnalyzeTable(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Dispatcher == nil {
		notConfigured(w, "tool dispatcher")
		return
	}
	var req analyzeTableRequest
	if derr := decodeJSON(r, &req); derr != nil {
		writeError(w, http.StatusBadRequest, derr)
		return
	}
	dispatch(deps, w, r, copilot.AnalyzeTable{
		Table:   req.Table,
		Columns: req.Columns,
		GroupBy: req.GroupBy,
	})
}

func handleDetectAnomalies(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Dispatcher == nil {
		notConfigured(w, "tool dispatcher")
		return
	}
	var req detectAnomaliesRequest
	if derr := decodeJSON(r, &req); derr != nil {
		writeError(w, http.StatusBadRequest, derr)
		return
	}
	if req.Threshold != nil && *req.Threshold <= 0 {
		writeError(w, http.StatusBadRequest, copilot.NewValidationError("threshold must be greater than zero"))
		return
	}
	op := copilot.DetectAnomalies{
		Table:        req.Table,
		MetricColumn: req.MetricColumn,
		DateColumn:   req.DateColumn,
		Method:       req.Method,
		Explain:      req.Explain,
	}
	if req.Threshold != nil {
		op.Threshold = *req.Threshold
	}
	dispatch(deps, w, r, op)
}

func handleSynthesizeInsight(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Dispatcher == nil {
		notConfigured(w, "tool dispatcher")
		return
	}
	var req synthesizeInsightRequest
	if derr := decodeJSON(r, &req); derr != nil {
		writeError(w, http.StatusBadRequest, derr)
		return
	}
	dispatch(deps, w, r, copilot.SynthesizeInsight{
		Question:   req.Question,
		Table:      req.Table,
		TimePeriod: req.TimePeriod,
	})
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(w, http.StatusBadGateway, &copilot.Error{
			Kind:       copilot.KindTranslation,
			Message:    "AI collaborator required for natural language queries",
			Suggestion: "Enable AI with BICOPILOT_AI_ENABLED and an API key.",
		})
		return
	}
	var req translateRequest
	if derr := decodeJSON(r, &req); derr != nil {
		writeError(w, http.StatusBadRequest, derr)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, copilot.NewValidationError("question is required"))
		return
	}

	result, err := deps.Translator.Translate(r.Context(), req.Question)
	if err != nil {
		derr := copilot.NewTranslationError(err)
		writeError(w, statusForKind(derr.Kind), derr)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{
		GeneratedSQL: result.SQL,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
	})
}

func dispatch(deps Dependencies, w http.ResponseWriter, r *http.Request, req copilot.Request) {
	result, err := deps.Dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeJSON(r *http.Request, dst any) *copilot.Error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return copilot.NewValidationError("invalid request body: %s", err.Error())
	}
	return nil
}
