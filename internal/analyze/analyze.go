// Package analyze computes the statistical report for a warehouse table:
// distribution summaries, correlations, categorical breakdowns, data
// quality counters, grouped aggregates, and a monthly trend reading.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/catalog"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/dataset"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
)

// ErrEmptyTable reports a table that exists but holds no rows, so there
// is nothing to describe.
var ErrEmptyTable = errors.New("table has no rows")

// InputError rejects a request that references tables or columns the
// catalog does not know about.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// Request selects what to analyze. Columns narrows the report to a
// subset of the table; GroupBy adds per-group aggregates.
type Request struct {
	Table   string
	Columns []string
	GroupBy string
}

// SchemaReader is the slice of the catalog the analyzer needs: declared
// column types decide the numeric/categorical split, so views and
// tables report consistently even when a column is entirely null.
type SchemaReader interface {
	Columns(ctx context.Context, table string) ([]catalog.Column, error)
}

type Analyzer struct {
	Store  warehouse.Store
	Schema SchemaReader
}

func NewAnalyzer(store warehouse.Store, schema SchemaReader) *Analyzer {
	return &Analyzer{Store: store, Schema: schema}
}

type columnKind int

const (
	kindOther columnKind = iota
	kindNumeric
	kindCategorical
	kindTemporal
)

// kindOf buckets a declared SQL type. Booleans and exotic types land in
// kindOther and stay out of the analyzed column set, matching how the
// summaries treat them downstream.
func kindOf(declared string) columnKind {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "INTERVAL"):
		return kindOther
	case strings.Contains(t, "TIMESTAMP"), strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return kindTemporal
	case strings.Contains(t, "INT"), strings.Contains(t, "DECIMAL"), strings.Contains(t, "NUMERIC"),
		strings.Contains(t, "DOUBLE"), strings.Contains(t, "FLOAT"), strings.Contains(t, "REAL"):
		return kindNumeric
	case strings.Contains(t, "BOOL"):
		return kindOther
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "STRING"),
		strings.Contains(t, "UUID"), strings.Contains(t, "ENUM"):
		return kindCategorical
	default:
		return kindOther
	}
}

// Analyze loads the table and builds the full report. Unknown tables,
// columns, or group_by references fail as InputError before any data is
// read.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Table) == "" {
		return Result{}, &InputError{Message: "table name is required"}
	}

	declared, err := a.Schema.Columns(ctx, req.Table)
	if err != nil {
		return Result{}, fmt.Errorf("describe table %q: %w", req.Table, err)
	}
	if len(declared) == 0 {
		return Result{}, &InputError{Message: fmt.Sprintf("table %q not found", req.Table)}
	}

	kinds := make(map[string]columnKind, len(declared))
	for _, column := range declared {
		kinds[column.Name] = kindOf(column.Type)
	}

	if missing := missingColumns(req.Columns, kinds); len(missing) > 0 {
		return Result{}, &InputError{Message: "columns not found: " + strings.Join(missing, ", ")}
	}
	if req.GroupBy != "" {
		if _, ok := kinds[req.GroupBy]; !ok {
			return Result{}, &InputError{Message: fmt.Sprintf("group_by column %q not found", req.GroupBy)}
		}
	}

	result, err := a.Store.Query(ctx, fmt.Sprintf("SELECT * FROM %s", warehouse.QuoteIdent(req.Table)))
	if err != nil {
		return Result{}, fmt.Errorf("load table %q: %w", req.Table, err)
	}
	frame := dataset.FromResult(result)
	if frame.NumRows() == 0 {
		return Result{}, fmt.Errorf("table %q: %w", req.Table, ErrEmptyTable)
	}

	scope := req.Columns
	if len(scope) == 0 {
		scope = frame.Columns
	}
	var numericCols, categoricalCols []string
	for _, name := range scope {
		switch kinds[name] {
		case kindNumeric:
			numericCols = append(numericCols, name)
		case kindCategorical:
			categoricalCols = append(categoricalCols, name)
		}
	}

	report := Result{
		Table:           req.Table,
		TotalRows:       frame.NumRows(),
		TotalColumns:    len(frame.Columns),
		ColumnsAnalyzed: append(append([]string{}, numericCols...), categoricalCols...),
		DataQuality:     dataQuality(frame, scope),
	}
	if len(numericCols) > 0 {
		report.NumericSummary = numericSummaries(frame, numericCols)
	}
	if len(numericCols) > 1 {
		report.TopCorrelations = topCorrelations(frame, numericCols)
	}
	if len(categoricalCols) > 0 {
		report.CategoricalSummary = categoricalSummaries(frame, categoricalCols)
	}
	if req.GroupBy != "" && len(numericCols) > 0 {
		report.GroupedAnalysis = groupedAnalysis(frame, req.GroupBy, numericCols)
	}
	if len(numericCols) > 0 {
		report.Trend = monthlyTrend(frame, numericCols[0])
	}
	return report, nil
}

func missingColumns(requested []string, kinds map[string]columnKind) []string {
	var missing []string
	for _, name := range requested {
		if _, ok := kinds[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
