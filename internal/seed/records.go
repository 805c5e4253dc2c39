// Package seed defines the demo dataset: row types, schema DDL, and a
// deterministic generator producing sales data with seasonal trends,
// weekly patterns, outliers, and intentional data quality issues.
package seed

import "time"

// Sale is one row of the sales table. Nullable columns use pointers so
// both the warehouse inserts and the parquet snapshots preserve nulls.
type Sale struct {
	TransactionID   string    `parquet:"transaction_id"`
	TransactionDate time.Time `parquet:"transaction_date,date"`
	CustomerID      string    `parquet:"customer_id"`
	ProductID       string    `parquet:"product_id"`
	ProductName     string    `parquet:"product_name"`
	Category        string    `parquet:"category"`
	Subcategory     string    `parquet:"subcategory"`
	Region          string    `parquet:"region"`
	Quantity        int64     `parquet:"quantity"`
	UnitPrice       float64   `parquet:"unit_price"`
	DiscountPct     *float64  `parquet:"discount_pct,optional"`
	Revenue         float64   `parquet:"revenue"`
	Cost            float64   `parquet:"cost"`
	Profit          float64   `parquet:"profit"`
	SalesChannel    string    `parquet:"sales_channel"`
	PaymentMethod   *string   `parquet:"payment_method,optional"`
	CustomerSegment *string   `parquet:"customer_segment,optional"`
}

// Customer is one row of the customers table.
type Customer struct {
	CustomerID  string    `parquet:"customer_id"`
	CompanyName *string   `parquet:"company_name,optional"`
	Segment     string    `parquet:"segment"`
	Region      string    `parquet:"region"`
	Country     string    `parquet:"country"`
	CreatedDate time.Time `parquet:"created_date,date"`
	IsActive    bool      `parquet:"is_active"`
}

// Product is one row of the products table.
type Product struct {
	ProductID   string  `parquet:"product_id"`
	ProductName string  `parquet:"product_name"`
	Category    string  `parquet:"category"`
	Subcategory string  `parquet:"subcategory"`
	BasePrice   float64 `parquet:"base_price"`
	Cost        float64 `parquet:"cost"`
	IsActive    bool    `parquet:"is_active"`
}

// Tables lists the demo tables in creation order.
var Tables = []string{"sales", "customers", "products"}

// Views lists the analysis views in creation order.
var Views = []string{"monthly_revenue", "top_products", "customer_summary", "daily_kpis"}

// No primary key on sales: the generator injects a small share of
// duplicate transactions to exercise data quality reporting.
var tableDDL = map[string]string{
	"sales": `CREATE TABLE sales (
	transaction_id VARCHAR NOT NULL,
	transaction_date DATE NOT NULL,
	customer_id VARCHAR NOT NULL,
	product_id VARCHAR NOT NULL,
	product_name VARCHAR NOT NULL,
	category VARCHAR NOT NULL,
	subcategory VARCHAR NOT NULL,
	region VARCHAR NOT NULL,
	quantity INTEGER NOT NULL,
	unit_price DOUBLE NOT NULL,
	discount_pct DOUBLE,
	revenue DOUBLE NOT NULL,
	cost DOUBLE NOT NULL,
	profit DOUBLE NOT NULL,
	sales_channel VARCHAR NOT NULL,
	payment_method VARCHAR,
	customer_segment VARCHAR
)`,
	"customers": `CREATE TABLE customers (
	customer_id VARCHAR NOT NULL,
	company_name VARCHAR,
	segment VARCHAR NOT NULL,
	region VARCHAR NOT NULL,
	country VARCHAR NOT NULL,
	created_date DATE NOT NULL,
	is_active BOOLEAN NOT NULL
)`,
	"products": `CREATE TABLE products (
	product_id VARCHAR NOT NULL,
	product_name VARCHAR NOT NULL,
	category VARCHAR NOT NULL,
	subcategory VARCHAR NOT NULL,
	base_price DOUBLE NOT NULL,
	cost DOUBLE NOT NULL,
	is_active BOOLEAN NOT NULL
)`,
}

var viewDDL = map[string]string{
	"monthly_revenue": `CREATE VIEW monthly_revenue AS
SELECT
	DATE_TRUNC('month', transaction_date) AS month,
	category,
	region,
	COUNT(*) AS transaction_count,
	SUM(revenue) AS total_revenue,
	SUM(profit) AS total_profit,
	AVG(revenue) AS avg_revenue,
	AVG(discount_pct) AS avg_discount
FROM sales
GROUP BY 1, 2, 3
ORDER BY 1`,
	"top_products": `CREATE VIEW top_products AS
SELECT
	product_name,
	category,
	subcategory,
	COUNT(*) AS times_sold,
	SUM(quantity) AS total_units,
	SUM(revenue) AS total_revenue,
	SUM(profit) AS total_profit,
	ROUND(AVG(unit_price), 2) AS avg_unit_price
FROM sales
GROUP BY 1, 2, 3
ORDER BY total_revenue DESC`,
	"customer_summary": `CREATE VIEW customer_summary AS
SELECT
	s.customer_id,
	c.company_name,
	c.segment,
	c.region,
	c.country,
	COUNT(*) AS total_orders,
	SUM(s.revenue) AS lifetime_revenue,
	AVG(s.revenue) AS avg_order_value,
	MIN(s.transaction_date) AS first_order,
	MAX(s.transaction_date) AS last_order
FROM sales s
LEFT JOIN customers c ON s.customer_id = c.customer_id
GROUP BY 1, 2, 3, 4, 5
ORDER BY lifetime_revenue DESC`,
	"daily_kpis": `CREATE VIEW daily_kpis AS
SELECT
	transaction_date AS date,
	COUNT(*) AS transactions,
	SUM(revenue) AS revenue,
	SUM(profit) AS profit,
	AVG(revenue) AS avg_order_value,
	COUNT(DISTINCT customer_id) AS unique_customers
FROM sales
GROUP BY 1
ORDER BY 1`,
}
