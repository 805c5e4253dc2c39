// Package nl2sql converts natural language questions into SQL through
// the model API, using live catalog metadata as prompt context.
package nl2sql

import "context"

type Result struct {
	SQL          string
	InputTokens  int
	OutputTokens int
}

type Translator interface {
	Translate(ctx context.Context, question string) (Result, error)
}

// SchemaProvider renders the warehouse schema as prompt text.
type SchemaProvider interface {
	SchemaInfo(ctx context.Context) (string, error)
}
