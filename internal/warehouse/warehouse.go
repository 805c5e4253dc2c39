// Package warehouse provides access to the analytical database backing
// the copilot tools. All tool executions funnel through a single Store
// so the DuckDB and Postgres backends stay interchangeable.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Result holds the outcome of a query in column-major order metadata
// and row-major values, matching what the HTTP layer serializes.
type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// RowCount returns the number of rows in the result.
func (r Result) RowCount() int {
	return len(r.Rows)
}

// Store executes SQL against the warehouse.
type Store interface {
	Query(ctx context.Context, sqlText string, args ...any) (Result, error)
	Exec(ctx context.Context, sqlText string, args ...any) error
	Ping(ctx context.Context) error
	Close() error
}

// DBStore implements Store over a database/sql handle. Both supported
// drivers register through database/sql, so one implementation serves
// DuckDB and Postgres alike.
type DBStore struct {
	db *sql.DB
}

func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Query(ctx context.Context, sqlText string, args ...any) (Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		return Result{}, fmt.Errorf("sql is required")
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

func (s *DBStore) Exec(ctx context.Context, sqlText string, args ...any) error {
	if strings.TrimSpace(sqlText) == "" {
		return fmt.Errorf("sql is required")
	}
	if _, err := s.db.ExecContext(ctx, sqlText, args...); err != nil {
		return fmt.Errorf("execute statement: %w", err)
	}
	return nil
}

func (s *DBStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping warehouse: %w", err)
	}
	return nil
}

func (s *DBStore) Close() error {
	return s.db.Close()
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

// QuoteIdent quotes a table or column name for interpolation into SQL
// built from catalog metadata.
func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// StripTrailingSemicolons removes terminating semicolons so a statement
// can be wrapped or suffixed with a LIMIT clause.
func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
