// Package insight turns warehouse data into AI-generated business
// insights with structured findings and recommendations.
package insight

import (
	"context"
	"errors"
	"fmt"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/ai"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/dataset"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/observability"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/stats"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
)

// ErrNoData signals that the table and time filter matched no rows.
var ErrNoData = errors.New("insight: no data found for the specified criteria")

// LoadError reports a failure reading the source table, before any AI
// call was made.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load table %q: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

const insightSystemPrompt = "You are a senior business analyst. Analyze the data provided and generate " +
	"actionable business insights. Structure your response as JSON with keys: " +
	`"summary", "key_findings" (list), "recommendations" (list), "risk_factors" (list).`

type Request struct {
	Question   string
	Table      string
	TimePeriod string
}

type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

type Result struct {
	Question     string      `json:"question"`
	Table        string      `json:"table"`
	TimePeriod   string      `json:"time_period"`
	RowsAnalyzed int         `json:"rows_analyzed"`
	AIResponse   string      `json:"ai_response"`
	Insights     *Insights   `json:"insights"`
	ParseStatus  ParseStatus `json:"parse_status"`
	TokensUsed   TokenUsage  `json:"tokens_used"`
	LatencyMS    float64     `json:"latency_ms"`
}

type Synthesizer struct {
	Store warehouse.Store
	AI    ai.Client
	Retry ai.RetryPolicy
}

func NewSynthesizer(store warehouse.Store, client ai.Client, retry ai.RetryPolicy) *Synthesizer {
	return &Synthesizer{Store: store, AI: client, Retry: retry}
}

func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Result, error) {
	table := req.Table
	if table == "" {
		table = "sales"
	}

	sqlText := "SELECT * FROM " + warehouse.QuoteIdent(table)
	if where := TimeFilter(req.TimePeriod); where != "" {
		sqlText += " WHERE " + where
	}

	queryResult, err := s.Store.Query(ctx, sqlText)
	if err != nil {
		return Result{}, &LoadError{Table: table, Err: err}
	}
	if len(queryResult.Rows) == 0 {
		return Result{}, ErrNoData
	}

	frame := dataset.FromResult(queryResult)
	summary := BuildDataSummary(frame, table)

	prompt := "Data Summary:\n" + summary
	if req.Question != "" {
		prompt += "\n\nSpecific Question: " + req.Question
	}

	completion, err := ai.CompleteWithRetry(ctx, s.AI, ai.Request{
		System: insightSystemPrompt,
		Prompt: prompt,
	}, s.Retry)
	if err != nil {
		observability.ObserveAIRequest("insights", "error", 0, 0)
		return Result{}, fmt.Errorf("generate insights: %w", err)
	}
	observability.ObserveAIRequest("insights", "ok", completion.InputTokens, completion.OutputTokens)

	insights, status := parseInsights(completion.Text)

	timePeriod := req.TimePeriod
	if timePeriod == "" {
		timePeriod = "all"
	}

	return Result{
		Question:     req.Question,
		Table:        table,
		TimePeriod:   timePeriod,
		RowsAnalyzed: frame.NumRows(),
		AIResponse:   completion.Text,
		Insights:     insights,
		ParseStatus:  status,
		TokensUsed: TokenUsage{
			Input:  completion.InputTokens,
			Output: completion.OutputTokens,
		},
		LatencyMS: stats.Round(float64(completion.Latency.Microseconds())/1000.0, 2),
	}, nil
}
