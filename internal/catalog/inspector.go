package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
)

// Inspector reads schema metadata through the warehouse store. The
// information_schema queries work unchanged on DuckDB and Postgres, so
// the inspector stays driver agnostic.
type Inspector struct {
	store      warehouse.Store
	schema     string
	sampleRows int
}

func NewInspector(store warehouse.Store, schema string, sampleRows int) *Inspector {
	if schema == "" {
		schema = "main"
	}
	if sampleRows <= 0 {
		sampleRows = 5
	}
	return &Inspector{store: store, schema: schema, sampleRows: sampleRows}
}

func (i *Inspector) ListDatasets(ctx context.Context) ([]Dataset, error) {
	tables, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	views, err := i.ListViews(ctx)
	if err != nil {
		return nil, err
	}

	datasets := make([]Dataset, 0, len(tables)+len(views))
	for _, table := range tables {
		columns, err := i.Columns(ctx, table.Name)
		if err != nil {
			return nil, err
		}
		rowCount := table.RowCount
		datasets = append(datasets, Dataset{
			URI:         uriPrefix + table.Name,
			Name:        table.Name,
			Type:        "table",
			RowCount:    &rowCount,
			Columns:     columns,
			Description: Describe(table.Name),
		})
	}
	for _, view := range views {
		columns, err := i.Columns(ctx, view)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, Dataset{
			URI:         uriPrefix + view,
			Name:        view,
			Type:        "view",
			Columns:     columns,
			Description: Describe(view),
		})
	}
	return datasets, nil
}

func (i *Inspector) GetDataset(ctx context.Context, name string) (DatasetDetail, error) {
	columns, err := i.Columns(ctx, name)
	if err != nil {
		return DatasetDetail{}, err
	}
	if len(columns) == 0 {
		return DatasetDetail{}, ErrNotFound
	}

	rowCount, err := i.rowCount(ctx, name)
	if err != nil {
		return DatasetDetail{}, err
	}

	sample, err := i.store.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", warehouse.QuoteIdent(name), i.sampleRows))
	if err != nil {
		return DatasetDetail{}, fmt.Errorf("sample dataset %q: %w", name, err)
	}

	return DatasetDetail{
		URI:      uriPrefix + name,
		Name:     name,
		RowCount: rowCount,
		Columns:  columns,
		SampleData: SampleData{
			Columns: sample.Columns,
			Rows:    sample.Rows,
		},
		Description: Describe(name),
	}, nil
}

func (i *Inspector) ListTables(ctx context.Context) ([]TableInfo, error) {
	result, err := i.store.Query(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name ASC`, i.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]TableInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		name := asString(row[0])
		rowCount, err := i.rowCount(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, TableInfo{Name: name, RowCount: rowCount})
	}
	return tables, nil
}

func (i *Inspector) ListViews(ctx context.Context) ([]string, error) {
	result, err := i.store.Query(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'VIEW'
ORDER BY table_name ASC`, i.schema)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}

	views := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		views = append(views, asString(row[0]))
	}
	return views, nil
}

// Columns returns the schema of a table or view. A missing dataset
// yields an empty slice rather than an error, mirroring how empty
// DESCRIBE output behaves.
func (i *Inspector) Columns(ctx context.Context, name string) ([]Column, error) {
	result, err := i.store.Query(ctx, `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position ASC`, i.schema, name)
	if err != nil {
		return nil, fmt.Errorf("describe dataset %q: %w", name, err)
	}

	columns := make([]Column, 0, len(result.Rows))
	for _, row := range result.Rows {
		columns = append(columns, Column{
			Name:     asString(row[0]),
			Type:     asString(row[1]),
			Nullable: asString(row[2]) == "YES",
		})
	}
	return columns, nil
}

// SchemaInfo renders the catalog as a compact text block used to prompt
// the SQL translator.
func (i *Inspector) SchemaInfo(ctx context.Context) (string, error) {
	tables, err := i.ListTables(ctx)
	if err != nil {
		return "", err
	}
	views, err := i.ListViews(ctx)
	if err != nil {
		return "", err
	}

	lines := []string{"Available tables and views:\n"}
	for _, table := range tables {
		columns, err := i.Columns(ctx, table.Name)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("TABLE %s (%d rows): %s", table.Name, table.RowCount, joinColumns(columns)))
	}
	for _, view := range views {
		columns, err := i.Columns(ctx, view)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("VIEW %s: %s", view, joinColumns(columns)))
	}
	return strings.Join(lines, "\n"), nil
}

func (i *Inspector) rowCount(ctx context.Context, name string) (int64, error) {
	result, err := i.store.Query(ctx, "SELECT COUNT(*) FROM "+warehouse.QuoteIdent(name))
	if err != nil {
		return 0, fmt.Errorf("count rows for %q: %w", name, err)
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return 0, nil
	}
	return asInt64(result.Rows[0][0]), nil
}

func joinColumns(columns []Column) string {
	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		parts = append(parts, fmt.Sprintf("%s (%s)", column.Name, column.Type))
	}
	return strings.Join(parts, ", ")
}

func asString(value any) string {
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprint(value)
}

func asInt64(value any) int64 {
	switch typed := value.(type) {
	case int64:
		return typed
	case int32:
		return int64(typed)
	case int:
		return int64(typed)
	case uint64:
		return int64(typed)
	case float64:
		return int64(typed)
	default:
		return 0
	}
}
