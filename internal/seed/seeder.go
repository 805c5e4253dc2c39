package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
)

const (
	DefaultSalesRows    = 10000
	DefaultCustomerRows = 500
	DefaultBatchSize    = 500
	DefaultSeed         = 42
)

type Options struct {
	SalesRows    int
	CustomerRows int
	Seed         int64
	BatchSize    int
}

func (o Options) withDefaults() Options {
	if o.SalesRows <= 0 {
		o.SalesRows = DefaultSalesRows
	}
	if o.CustomerRows <= 0 {
		o.CustomerRows = DefaultCustomerRows
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

type Summary struct {
	SalesRows    int
	CustomerRows int
	ProductRows  int
	Duration     time.Duration
}

// Seeder rebuilds the demo tables and views in the warehouse.
type Seeder struct {
	store  warehouse.Store
	logger *slog.Logger
}

func NewSeeder(store warehouse.Store, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{store: store, logger: logger}
}

// Run drops any existing demo objects, recreates the tables, loads
// generated data, and creates the analysis views.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	opts = opts.withDefaults()
	start := time.Now()

	for i := len(Views) - 1; i >= 0; i-- {
		if err := s.store.Exec(ctx, "DROP VIEW IF EXISTS "+warehouse.QuoteIdent(Views[i])); err != nil {
			return Summary{}, fmt.Errorf("drop view %s: %w", Views[i], err)
		}
	}
	for _, table := range Tables {
		if err := s.store.Exec(ctx, "DROP TABLE IF EXISTS "+warehouse.QuoteIdent(table)); err != nil {
			return Summary{}, fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	for _, table := range Tables {
		if err := s.store.Exec(ctx, tableDDL[table]); err != nil {
			return Summary{}, fmt.Errorf("create table %s: %w", table, err)
		}
	}

	generator := NewGenerator(opts.Seed)
	customers := generator.Customers(opts.CustomerRows)
	products := generator.Products()
	sales := generator.Sales(opts.SalesRows, customers, products)

	if err := s.insertBatches(ctx, "sales", saleColumns, saleRows(sales), opts.BatchSize); err != nil {
		return Summary{}, err
	}
	if err := s.insertBatches(ctx, "customers", customerColumns, customerRows(customers), opts.BatchSize); err != nil {
		return Summary{}, err
	}
	if err := s.insertBatches(ctx, "products", productColumns, productRows(products), opts.BatchSize); err != nil {
		return Summary{}, err
	}

	for _, view := range Views {
		if err := s.store.Exec(ctx, viewDDL[view]); err != nil {
			return Summary{}, fmt.Errorf("create view %s: %w", view, err)
		}
	}

	summary := Summary{
		SalesRows:    len(sales),
		CustomerRows: len(customers),
		ProductRows:  len(products),
		Duration:     time.Since(start),
	}
	s.logger.Info("demo data seeded",
		"sales_rows", summary.SalesRows,
		"customer_rows", summary.CustomerRows,
		"product_rows", summary.ProductRows,
		"views", len(Views),
		"duration", summary.Duration)
	return summary, nil
}

func (s *Seeder) insertBatches(ctx context.Context, table string, columns []string, rows [][]any, batchSize int) error {
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = warehouse.QuoteIdent(column)
	}
	prefix := "INSERT INTO " + warehouse.QuoteIdent(table) + " (" + strings.Join(quoted, ", ") + ") VALUES "

	for start := 0; start < len(rows); start += batchSize {
		chunk := rows[start:min(start+batchSize, len(rows))]

		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for j, value := range row {
				if j > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "$%d", len(args)+1)
				args = append(args, value)
			}
			sb.WriteByte(')')
		}

		if err := s.store.Exec(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

var saleColumns = []string{
	"transaction_id", "transaction_date", "customer_id", "product_id",
	"product_name", "category", "subcategory", "region", "quantity",
	"unit_price", "discount_pct", "revenue", "cost", "profit",
	"sales_channel", "payment_method", "customer_segment",
}

var customerColumns = []string{
	"customer_id", "company_name", "segment", "region", "country",
	"created_date", "is_active",
}

var productColumns = []string{
	"product_id", "product_name", "category", "subcategory",
	"base_price", "cost", "is_active",
}

func saleRows(sales []Sale) [][]any {
	rows := make([][]any, len(sales))
	for i, s := range sales {
		rows[i] = []any{
			s.TransactionID, s.TransactionDate, s.CustomerID, s.ProductID,
			s.ProductName, s.Category, s.Subcategory, s.Region, s.Quantity,
			s.UnitPrice, s.DiscountPct, s.Revenue, s.Cost, s.Profit,
			s.SalesChannel, s.PaymentMethod, s.CustomerSegment,
		}
	}
	return rows
}

func customerRows(customers []Customer) [][]any {
	rows := make([][]any, len(customers))
	for i, c := range customers {
		rows[i] = []any{
			c.CustomerID, c.CompanyName, c.Segment, c.Region, c.Country,
			c.CreatedDate, c.IsActive,
		}
	}
	return rows
}

func productRows(products []Product) [][]any {
	rows := make([][]any, len(products))
	for i, p := range products {
		rows[i] = []any{
			p.ProductID, p.ProductName, p.Category, p.Subcategory,
			p.BasePrice, p.Cost, p.IsActive,
		}
	}
	return rows
}
