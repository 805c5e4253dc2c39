package nl2sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/ai"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/observability"
)

const sqlSystemPrompt = "You are a SQL expert. Convert the user's natural language question into a " +
	"DuckDB-compatible SQL query. Return ONLY the SQL query, no explanation. " +
	"Use the schema information provided to write accurate queries."

const sqlMaxTokens = 1024

// AITranslator generates SQL through the model API.
type AITranslator struct {
	AI     ai.Client
	Schema SchemaProvider
	Retry  ai.RetryPolicy
}

func NewAITranslator(client ai.Client, schema SchemaProvider, retry ai.RetryPolicy) *AITranslator {
	return &AITranslator{AI: client, Schema: schema, Retry: retry}
}

func (t *AITranslator) Translate(ctx context.Context, question string) (Result, error) {
	if strings.TrimSpace(question) == "" {
		return Result{}, fmt.Errorf("question is required")
	}

	schemaInfo, err := t.Schema.SchemaInfo(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load schema context: %w", err)
	}

	completion, err := ai.CompleteWithRetry(ctx, t.AI, ai.Request{
		System:    sqlSystemPrompt,
		Prompt:    fmt.Sprintf("Schema:\n%s\n\nQuestion: %s", schemaInfo, question),
		MaxTokens: sqlMaxTokens,
	}, t.Retry)
	if err != nil {
		observability.ObserveAIRequest("generate_sql", "error", 0, 0)
		return Result{}, fmt.Errorf("generate sql: %w", err)
	}
	observability.ObserveAIRequest("generate_sql", "ok", completion.InputTokens, completion.OutputTokens)

	sql := stripMarkdownSQL(completion.Text)
	if strings.TrimSpace(sql) == "" {
		return Result{}, fmt.Errorf("model returned empty SQL")
	}

	return Result{
		SQL:          sql,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
	}, nil
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
