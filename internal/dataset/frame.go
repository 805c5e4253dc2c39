// Package dataset provides a typed view over raw query results so the
// analysis tools can classify columns and extract values without
// knowing table schemas ahead of time.
package dataset

import (
	"strings"
	"time"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
)

// Frame wraps a query result for columnar access. Column kinds are
// inferred from the values, so views and ad hoc query results work the
// same as base tables.
type Frame struct {
	Columns []string
	Rows    [][]any

	index map[string]int
}

func FromResult(result warehouse.Result) *Frame {
	index := make(map[string]int, len(result.Columns))
	for i, name := range result.Columns {
		index[name] = i
	}
	return &Frame{Columns: result.Columns, Rows: result.Rows, index: index}
}

func (f *Frame) NumRows() int {
	return len(f.Rows)
}

func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Value returns the raw cell value, with ok=false for unknown columns
// or out of range rows.
func (f *Frame) Value(row int, column string) (any, bool) {
	i, ok := f.index[column]
	if !ok || row < 0 || row >= len(f.Rows) {
		return nil, false
	}
	return f.Rows[row][i], true
}

// NumericColumns lists columns whose non-null values are all numeric,
// preserving result order.
func (f *Frame) NumericColumns() []string {
	columns := make([]string, 0)
	for _, name := range f.Columns {
		if f.isNumeric(name) {
			columns = append(columns, name)
		}
	}
	return columns
}

// CategoricalColumns lists columns whose non-null values are all
// strings, preserving result order.
func (f *Frame) CategoricalColumns() []string {
	columns := make([]string, 0)
	for _, name := range f.Columns {
		if f.isCategorical(name) {
			columns = append(columns, name)
		}
	}
	return columns
}

// DateColumns lists columns whose name mentions a date, the same
// heuristic the summaries use to pick a time axis.
func (f *Frame) DateColumns() []string {
	columns := make([]string, 0)
	for _, name := range f.Columns {
		if strings.Contains(strings.ToLower(name), "date") {
			columns = append(columns, name)
		}
	}
	return columns
}

// Numeric returns the non-null values of a column as float64 in row
// order.
func (f *Frame) Numeric(column string) []float64 {
	i, ok := f.index[column]
	if !ok {
		return nil
	}
	values := make([]float64, 0, len(f.Rows))
	for _, row := range f.Rows {
		if value, ok := AsFloat(row[i]); ok {
			values = append(values, value)
		}
	}
	return values
}

// Strings returns the non-null values of a column as strings in row
// order.
func (f *Frame) Strings(column string) []string {
	i, ok := f.index[column]
	if !ok {
		return nil
	}
	values := make([]string, 0, len(f.Rows))
	for _, row := range f.Rows {
		if row[i] == nil {
			continue
		}
		if text, ok := row[i].(string); ok {
			values = append(values, text)
		}
	}
	return values
}

// Times returns the parseable values of a column as timestamps in row
// order.
func (f *Frame) Times(column string) []time.Time {
	i, ok := f.index[column]
	if !ok {
		return nil
	}
	values := make([]time.Time, 0, len(f.Rows))
	for _, row := range f.Rows {
		if ts, ok := AsTime(row[i]); ok {
			values = append(values, ts)
		}
	}
	return values
}

func (f *Frame) NullCount(column string) int {
	i, ok := f.index[column]
	if !ok {
		return 0
	}
	count := 0
	for _, row := range f.Rows {
		if row[i] == nil {
			count++
		}
	}
	return count
}

func (f *Frame) isNumeric(column string) bool {
	i := f.index[column]
	nonNull := 0
	for _, row := range f.Rows {
		if row[i] == nil {
			continue
		}
		if _, ok := AsFloat(row[i]); !ok {
			return false
		}
		nonNull++
	}
	return nonNull > 0
}

func (f *Frame) isCategorical(column string) bool {
	i := f.index[column]
	nonNull := 0
	for _, row := range f.Rows {
		if row[i] == nil {
			continue
		}
		if _, ok := row[i].(string); !ok {
			return false
		}
		nonNull++
	}
	return nonNull > 0
}

// AsFloat coerces numeric driver values to float64. Booleans and
// strings are not numbers here even when convertible.
func AsFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	default:
		return 0, false
	}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// AsTime coerces timestamps and common date strings to time.Time.
func AsTime(value any) (time.Time, bool) {
	switch typed := value.(type) {
	case time.Time:
		return typed, true
	case string:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, typed); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
