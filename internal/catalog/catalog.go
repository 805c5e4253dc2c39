// Package catalog exposes warehouse tables and views as datasets with
// schema, row counts, and sample data.
package catalog

import "errors"

var ErrNotFound = errors.New("catalog: dataset not found")

const uriPrefix = "bi-copilot://datasets/"

type Column struct {
	Name     string `json:"column"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type Dataset struct {
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	RowCount    *int64   `json:"row_count,omitempty"`
	Columns     []Column `json:"columns"`
	Description string   `json:"description"`
}

type SampleData struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type DatasetDetail struct {
	URI         string     `json:"uri"`
	Name        string     `json:"name"`
	RowCount    int64      `json:"row_count"`
	Columns     []Column   `json:"columns"`
	SampleData  SampleData `json:"sample_data"`
	Description string     `json:"description"`
}

type TableInfo struct {
	Name     string
	RowCount int64
}

var datasetDescriptions = map[string]string{
	"sales":            "Transaction-level sales data with revenue, product, customer, and region details",
	"customers":        "Customer master data with company name, segment, region, and status",
	"products":         "Product catalog with pricing, categories, and subcategories",
	"monthly_revenue":  "Aggregated monthly revenue by category and region",
	"top_products":     "Product performance ranking by total revenue",
	"customer_summary": "Customer lifetime value and order history summary",
	"daily_kpis":       "Daily key performance indicators (revenue, transactions, unique customers)",
}

// Describe returns the human readable description for known datasets
// and a generic one otherwise.
func Describe(name string) string {
	if description, ok := datasetDescriptions[name]; ok {
		return description
	}
	return "Dataset: " + name
}
