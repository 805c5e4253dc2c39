package copilot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/analyze"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/anomaly"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/cache"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/history"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/insight"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/nl2sql"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/observability"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/stats"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
)

// QueryResult is the execute-query payload. GeneratedSQL and
// OriginalQuestion appear only when the text went through translation.
type QueryResult struct {
	Columns          []string `json:"columns"`
	Rows             [][]any  `json:"rows"`
	RowCount         int      `json:"row_count"`
	ExecutionTimeMS  float64  `json:"execution_time_ms"`
	GeneratedSQL     string   `json:"generated_sql,omitempty"`
	OriginalQuestion string   `json:"original_question,omitempty"`
}

// Dependencies wires the layer's collaborators. Store and Analyzer are
// required; a nil Translator or Synthesizer disables the AI paths with
// a structured error, a nil History skips recording, and a nil Cache
// skips query caching.
type Dependencies struct {
	Store       warehouse.Store
	Translator  nl2sql.Translator
	Analyzer    *analyze.Analyzer
	Detector    *anomaly.Detector
	Synthesizer *insight.Synthesizer
	History     history.Store
	Cache       cache.Provider
	CacheTTL    time.Duration
	Logger      *slog.Logger
}

// Dispatcher routes each request variant to its computation and owns
// the error taxonomy at the boundary. All request state is local to one
// Dispatch call, so concurrent dispatches do not interfere.
type Dispatcher struct {
	deps Dependencies
}

func NewDispatcher(deps Dependencies) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Dispatcher{deps: deps}
}

// Dispatch runs one request to completion and returns either the
// operation's result or an *Error. Nothing else crosses this boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (any, error) {
	start := time.Now()
	op := req.Operation()

	result, derr := d.dispatch(ctx, req)

	elapsed := time.Since(start)
	status := "ok"
	if derr != nil {
		status = "error"
	}
	observability.ObserveToolInvocation(op, status, elapsed)
	d.record(req, result, derr, elapsed)

	if derr != nil {
		d.deps.Logger.Warn("tool dispatch failed",
			"op", op, "kind", derr.Kind, "error", derr.Message, "elapsed_ms", elapsedMS(elapsed))
		return nil, derr
	}
	d.deps.Logger.Info("tool dispatched", "op", op, "elapsed_ms", elapsedMS(elapsed))
	return result, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (any, *Error) {
	switch typed := req.(type) {
	case ExecuteQuery:
		return d.executeQuery(ctx, typed)
	case AnalyzeTable:
		return d.analyzeTable(ctx, typed)
	case DetectAnomalies:
		return d.detectAnomalies(ctx, typed)
	case SynthesizeInsight:
		return d.synthesizeInsight(ctx, typed)
	default:
		return nil, &Error{Kind: KindInternal, Message: fmt.Sprintf("unknown operation %T", req)}
	}
}

func (d *Dispatcher) executeQuery(ctx context.Context, req ExecuteQuery) (any, *Error) {
	req, verr := req.normalize()
	if verr != nil {
		return nil, verr
	}

	classification := Classify(req.Text, req.Hint)

	sqlText := req.Text
	var generated string
	if classification == HintNaturalLanguage {
		if d.deps.Translator == nil {
			return nil, &Error{
				Kind:       KindTranslation,
				Message:    "AI collaborator required for natural language queries",
				Suggestion: "Enable AI with BICOPILOT_AI_ENABLED and an API key, or submit SQL directly.",
			}
		}
		translated, err := d.deps.Translator.Translate(ctx, req.Text)
		if err != nil {
			return nil, NewTranslationError(err)
		}
		sqlText = translated.SQL
		generated = translated.SQL
		d.deps.Logger.Info("generated sql", "sql", generated)
	}

	sqlText = applyRowLimit(sqlText, req.RowLimit)

	useCache := d.deps.Cache != nil && classification == HintStructured && isSelect(sqlText)
	var cacheKey string
	if useCache {
		cacheKey = queryCacheKey(sqlText)
		if cached, ok := d.cachedResult(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	stored, err := d.deps.Store.Query(ctx, sqlText)
	if err != nil {
		return nil, newExecutionError(err)
	}

	rows := stored.Rows
	if len(rows) > req.RowLimit {
		rows = rows[:req.RowLimit]
	}
	result := QueryResult{
		Columns:         stored.Columns,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMS: elapsedMS(stored.Duration),
	}
	if generated != "" {
		result.GeneratedSQL = generated
		result.OriginalQuestion = req.Text
	}
	observability.ObserveQueryRows(result.RowCount)

	if useCache {
		d.storeCached(ctx, cacheKey, result)
	}
	return result, nil
}

func (d *Dispatcher) analyzeTable(ctx context.Context, req AnalyzeTable) (any, *Error) {
	req, verr := req.normalize()
	if verr != nil {
		return nil, verr
	}
	if d.deps.Analyzer == nil {
		return nil, &Error{Kind: KindInternal, Message: "analyzer not configured"}
	}

	report, err := d.deps.Analyzer.Analyze(ctx, analyze.Request{
		Table:   req.Table,
		Columns: req.Columns,
		GroupBy: req.GroupBy,
	})
	if err != nil {
		var inputErr *analyze.InputError
		if errors.As(err, &inputErr) {
			return nil, &Error{Kind: KindValidation, Message: inputErr.Message, Err: err}
		}
		return nil, newExecutionError(err)
	}
	return report, nil
}

func (d *Dispatcher) detectAnomalies(ctx context.Context, req DetectAnomalies) (any, *Error) {
	req, verr := req.normalize()
	if verr != nil {
		return nil, verr
	}
	if d.deps.Detector == nil {
		return nil, &Error{Kind: KindInternal, Message: "anomaly detector not configured"}
	}

	report, err := d.deps.Detector.Detect(ctx, anomaly.Request{
		Table:        req.Table,
		MetricColumn: req.MetricColumn,
		DateColumn:   req.DateColumn,
		Method:       req.Method,
		Threshold:    req.Threshold,
		Explain:      req.Explain,
	})
	if err != nil {
		var columnErr *anomaly.ColumnError
		if errors.As(err, &columnErr) {
			return nil, &Error{Kind: KindValidation, Message: columnErr.Error(), Err: err}
		}
		return nil, newExecutionError(err)
	}
	return report, nil
}

func (d *Dispatcher) synthesizeInsight(ctx context.Context, req SynthesizeInsight) (any, *Error) {
	req, verr := req.normalize()
	if verr != nil {
		return nil, verr
	}
	if d.deps.Synthesizer == nil {
		return nil, &Error{
			Kind:       KindAI,
			Message:    "AI collaborator required for insight generation",
			Suggestion: "Enable AI with BICOPILOT_AI_ENABLED and an API key.",
		}
	}

	report, err := d.deps.Synthesizer.Synthesize(ctx, insight.Request{
		Question:   req.Question,
		Table:      req.Table,
		TimePeriod: req.TimePeriod,
	})
	if err != nil {
		var loadErr *insight.LoadError
		if errors.Is(err, insight.ErrNoData) || errors.As(err, &loadErr) {
			return nil, newExecutionError(err)
		}
		return nil, newAIError(err)
	}
	return report, nil
}

// record appends a history entry for the dispatch. The query tool keeps
// the store-call time from its result; other tools record dispatch
// wall-clock.
func (d *Dispatcher) record(req Request, result any, derr *Error, elapsed time.Duration) {
	if d.deps.History == nil {
		return
	}
	entry := history.Entry{
		Tool:            req.Operation(),
		ExecutionTimeMS: elapsedMS(elapsed),
		Success:         derr == nil,
	}
	if derr != nil {
		entry.Error = derr.Message
	}

	switch typed := req.(type) {
	case ExecuteQuery:
		if normalized, verr := typed.normalize(); verr == nil {
			typed = normalized
		}
		entry.Query = typed.Text
		entry.QueryType = Classify(typed.Text, typed.Hint)
		if qr, ok := result.(QueryResult); ok {
			entry.ResultCount = qr.RowCount
			entry.ExecutionTimeMS = qr.ExecutionTimeMS
			entry.GeneratedSQL = qr.GeneratedSQL
		}
	case AnalyzeTable:
		entry.Query = paramsSummary("table", typed.Table, "columns", strings.Join(typed.Columns, ","), "group_by", typed.GroupBy)
		if report, ok := result.(analyze.Result); ok {
			entry.ResultCount = report.TotalRows
		}
	case DetectAnomalies:
		entry.Query = paramsSummary("table", typed.Table, "metric", typed.MetricColumn, "method", typed.Method)
		if report, ok := result.(anomaly.Result); ok {
			entry.ResultCount = report.AnomaliesFound
		}
	case SynthesizeInsight:
		entry.Query = typed.Question
		if report, ok := result.(insight.Result); ok {
			entry.ResultCount = report.RowsAnalyzed
		}
	}
	d.deps.History.Record(entry)
}

func (d *Dispatcher) cachedResult(ctx context.Context, key string) (QueryResult, bool) {
	raw, err := d.deps.Cache.Get(ctx, key)
	if err != nil {
		observability.ObserveCacheLookup(false)
		return QueryResult{}, false
	}
	var cached QueryResult
	if err := json.Unmarshal(raw, &cached); err != nil {
		observability.ObserveCacheLookup(false)
		return QueryResult{}, false
	}
	observability.ObserveCacheLookup(true)
	return cached, true
}

func (d *Dispatcher) storeCached(ctx context.Context, key string, result QueryResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := d.deps.Cache.Set(ctx, key, raw, d.deps.CacheTTL); err != nil {
		d.deps.Logger.Warn("query cache store failed", "error", err)
	}
}

func queryCacheKey(sqlText string) string {
	sum := sha256.Sum256([]byte(sqlText))
	return "query:" + hex.EncodeToString(sum[:])
}

// applyRowLimit appends a LIMIT to bare SELECTs the way the executor
// contracts require; queries that already carry one are left alone.
func applyRowLimit(sqlText string, limit int) string {
	upper := strings.ToUpper(strings.TrimSpace(sqlText))
	if strings.HasPrefix(upper, "SELECT") && !strings.Contains(upper, "LIMIT") {
		return fmt.Sprintf("%s LIMIT %d", warehouse.StripTrailingSemicolons(sqlText), limit)
	}
	return sqlText
}

func isSelect(sqlText string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "SELECT")
}

func paramsSummary(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			parts = append(parts, pairs[i]+"="+pairs[i+1])
		}
	}
	return strings.Join(parts, " ")
}

func elapsedMS(elapsed time.Duration) float64 {
	return stats.Round(float64(elapsed.Microseconds())/1000.0, 2)
}
