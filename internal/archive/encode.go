package archive

import (
	"bytes"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/dataset"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/seed"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
)

// encodeTable turns a full-table result set into a parquet payload
// using the demo schema row types.
func encodeTable(table string, result warehouse.Result) ([]byte, error) {
	switch table {
	case "sales":
		rows, err := scanSales(result)
		if err != nil {
			return nil, err
		}
		return writeParquet(rows)
	case "customers":
		rows, err := scanCustomers(result)
		if err != nil {
			return nil, err
		}
		return writeParquet(rows)
	case "products":
		rows, err := scanProducts(result)
		if err != nil {
			return nil, err
		}
		return writeParquet(rows)
	default:
		return nil, fmt.Errorf("no snapshot schema for table %q", table)
	}
}

func writeParquet[T any](rows []T) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func scanSales(result warehouse.Result) ([]seed.Sale, error) {
	rows := make([]seed.Sale, 0, len(result.Rows))
	for i := range result.Rows {
		scanner := newRowScanner(result, i)
		rows = append(rows, seed.Sale{
			TransactionID:   scanner.text("transaction_id"),
			TransactionDate: scanner.date("transaction_date"),
			CustomerID:      scanner.text("customer_id"),
			ProductID:       scanner.text("product_id"),
			ProductName:     scanner.text("product_name"),
			Category:        scanner.text("category"),
			Subcategory:     scanner.text("subcategory"),
			Region:          scanner.text("region"),
			Quantity:        scanner.integer("quantity"),
			UnitPrice:       scanner.number("unit_price"),
			DiscountPct:     scanner.numberPtr("discount_pct"),
			Revenue:         scanner.number("revenue"),
			Cost:            scanner.number("cost"),
			Profit:          scanner.number("profit"),
			SalesChannel:    scanner.text("sales_channel"),
			PaymentMethod:   scanner.textPtr("payment_method"),
			CustomerSegment: scanner.textPtr("customer_segment"),
		})
		if scanner.err != nil {
			return nil, fmt.Errorf("sales row %d: %w", i, scanner.err)
		}
	}
	return rows, nil
}

func scanCustomers(result warehouse.Result) ([]seed.Customer, error) {
	rows := make([]seed.Customer, 0, len(result.Rows))
	for i := range result.Rows {
		scanner := newRowScanner(result, i)
		rows = append(rows, seed.Customer{
			CustomerID:  scanner.text("customer_id"),
			CompanyName: scanner.textPtr("company_name"),
			Segment:     scanner.text("segment"),
			Region:      scanner.text("region"),
			Country:     scanner.text("country"),
			CreatedDate: scanner.date("created_date"),
			IsActive:    scanner.boolean("is_active"),
		})
		if scanner.err != nil {
			return nil, fmt.Errorf("customers row %d: %w", i, scanner.err)
		}
	}
	return rows, nil
}

func scanProducts(result warehouse.Result) ([]seed.Product, error) {
	rows := make([]seed.Product, 0, len(result.Rows))
	for i := range result.Rows {
		scanner := newRowScanner(result, i)
		rows = append(rows, seed.Product{
			ProductID:   scanner.text("product_id"),
			ProductName: scanner.text("product_name"),
			Category:    scanner.text("category"),
			Subcategory: scanner.text("subcategory"),
			BasePrice:   scanner.number("base_price"),
			Cost:        scanner.number("cost"),
			IsActive:    scanner.boolean("is_active"),
		})
		if scanner.err != nil {
			return nil, fmt.Errorf("products row %d: %w", i, scanner.err)
		}
	}
	return rows, nil
}

// rowScanner pulls typed values out of one result row by column name.
// The first coercion failure sticks; later accessors return zero
// values.
type rowScanner struct {
	index map[string]int
	row   []any
	err   error
}

func newRowScanner(result warehouse.Result, row int) *rowScanner {
	index := make(map[string]int, len(result.Columns))
	for i, column := range result.Columns {
		index[column] = i
	}
	return &rowScanner{index: index, row: result.Rows[row]}
}

func (r *rowScanner) value(column string) (any, bool) {
	if r.err != nil {
		return nil, false
	}
	i, ok := r.index[column]
	if !ok {
		r.err = fmt.Errorf("column %q missing", column)
		return nil, false
	}
	return r.row[i], true
}

func (r *rowScanner) fail(column string, value any) {
	if r.err == nil {
		r.err = fmt.Errorf("column %q: unexpected value %v (%T)", column, value, value)
	}
}

func (r *rowScanner) text(column string) string {
	value, ok := r.value(column)
	if !ok {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		r.fail(column, value)
		return ""
	}
	return s
}

func (r *rowScanner) textPtr(column string) *string {
	value, ok := r.value(column)
	if !ok || value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		r.fail(column, value)
		return nil
	}
	return &s
}

func (r *rowScanner) number(column string) float64 {
	value, ok := r.value(column)
	if !ok {
		return 0
	}
	f, ok := dataset.AsFloat(value)
	if !ok {
		r.fail(column, value)
		return 0
	}
	return f
}

func (r *rowScanner) numberPtr(column string) *float64 {
	value, ok := r.value(column)
	if !ok || value == nil {
		return nil
	}
	f, ok := dataset.AsFloat(value)
	if !ok {
		r.fail(column, value)
		return nil
	}
	return &f
}

func (r *rowScanner) integer(column string) int64 {
	return int64(r.number(column))
}

func (r *rowScanner) boolean(column string) bool {
	value, ok := r.value(column)
	if !ok {
		return false
	}
	b, ok := value.(bool)
	if !ok {
		r.fail(column, value)
		return false
	}
	return b
}

func (r *rowScanner) date(column string) time.Time {
	value, ok := r.value(column)
	if !ok {
		return time.Time{}
	}
	ts, ok := dataset.AsTime(value)
	if !ok {
		r.fail(column, value)
		return time.Time{}
	}
	return ts
}
