// Package anomaly flags outliers in warehouse metrics using z-score or
// IQR detection, with optional AI explanations.
package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/ai"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/dataset"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/observability"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/stats"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
)

const (
	MethodZScore = "zscore"
	MethodIQR    = "iqr"
)

const recordCap = 50

// ColumnError reports a metric column that is missing or not numeric.
type ColumnError struct {
	Column string
	Table  string
	Reason string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q %s in %q", e.Column, e.Reason, e.Table)
}

type Request struct {
	Table        string
	MetricColumn string
	DateColumn   string
	Method       string
	Threshold    float64
	Explain      bool
}

func (r Request) withDefaults() Request {
	if r.Table == "" {
		r.Table = "sales"
	}
	if r.MetricColumn == "" {
		r.MetricColumn = "revenue"
	}
	if r.DateColumn == "" {
		r.DateColumn = "transaction_date"
	}
	if r.Method == "" {
		r.Method = MethodZScore
	}
	if r.Threshold <= 0 {
		r.Threshold = 3.0
	}
	return r
}

type Baseline struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
}

type Record struct {
	Date          string  `json:"date"`
	Value         float64 `json:"value"`
	Severity      string  `json:"severity"`
	Deviation     float64 `json:"deviation"`
	TransactionID string  `json:"transaction_id,omitempty"`
	ProductName   string  `json:"product_name,omitempty"`
	Category      string  `json:"category,omitempty"`
	Region        string  `json:"region,omitempty"`
	CustomerID    string  `json:"customer_id,omitempty"`
}

type Explanation struct {
	Explanation        string   `json:"explanation"`
	PossibleCauses     []string `json:"possible_causes"`
	Severity           string   `json:"severity"`
	RecommendedActions []string `json:"recommended_actions"`
}

type Result struct {
	Table             string         `json:"table"`
	Metric            string         `json:"metric"`
	Method            string         `json:"method"`
	Threshold         float64        `json:"threshold"`
	TotalRecords      int            `json:"total_records,omitempty"`
	AnomaliesFound    int            `json:"anomalies_found"`
	AnomalyRatePct    float64        `json:"anomaly_rate_pct,omitempty"`
	Baseline          *Baseline      `json:"baseline,omitempty"`
	SeverityBreakdown map[string]int `json:"severity_breakdown,omitempty"`
	Anomalies         []Record       `json:"anomalies,omitempty"`
	Message           string         `json:"message,omitempty"`
	AIExplanation     *Explanation   `json:"ai_explanation,omitempty"`
}

type Detector struct {
	Store  warehouse.Store
	AI     ai.Client
	Retry  ai.RetryPolicy
	Logger *slog.Logger
}

func NewDetector(store warehouse.Store, client ai.Client, retry ai.RetryPolicy, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{Store: store, AI: client, Retry: retry, Logger: logger}
}

type flaggedRow struct {
	row       int
	value     float64
	deviation float64
}

func (d *Detector) Detect(ctx context.Context, req Request) (Result, error) {
	req = req.withDefaults()
	if req.Method != MethodZScore && req.Method != MethodIQR {
		return Result{}, fmt.Errorf("unknown method %q, use %q or %q", req.Method, MethodZScore, MethodIQR)
	}

	sqlText := fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		warehouse.QuoteIdent(req.Table), warehouse.QuoteIdent(req.DateColumn))
	queryResult, err := d.Store.Query(ctx, sqlText)
	if err != nil {
		return Result{}, fmt.Errorf("load %q: %w", req.Table, err)
	}

	frame := dataset.FromResult(queryResult)
	if !frame.HasColumn(req.MetricColumn) {
		return Result{}, &ColumnError{Column: req.MetricColumn, Table: req.Table, Reason: "not found"}
	}

	values := frame.Numeric(req.MetricColumn)
	if len(values) == 0 && frame.NumRows() > frame.NullCount(req.MetricColumn) {
		return Result{}, &ColumnError{Column: req.MetricColumn, Table: req.Table, Reason: "is not numeric"}
	}

	flagged := detect(frame, req.MetricColumn, req.Method, req.Threshold)

	if len(flagged) == 0 {
		return Result{
			Table:          req.Table,
			Metric:         req.MetricColumn,
			Method:         req.Method,
			Threshold:      req.Threshold,
			AnomaliesFound: 0,
			Message:        "No anomalies detected with the current threshold.",
		}, nil
	}

	observability.AddAnomaliesFlagged(len(flagged))

	breakdown := make(map[string]int)
	for _, flag := range flagged {
		breakdown[severity(flag.deviation, req.Threshold)]++
	}

	records := make([]Record, 0, recordCap)
	for _, flag := range flagged {
		if len(records) == recordCap {
			break
		}
		records = append(records, buildRecord(frame, flag, req))
	}

	result := Result{
		Table:             req.Table,
		Metric:            req.MetricColumn,
		Method:            req.Method,
		Threshold:         req.Threshold,
		TotalRecords:      frame.NumRows(),
		AnomaliesFound:    len(flagged),
		AnomalyRatePct:    stats.Round(float64(len(flagged))/float64(len(values))*100, 2),
		Baseline:          baselineOf(values),
		SeverityBreakdown: breakdown,
		Anomalies:         records,
	}

	if req.Explain && d.AI != nil {
		result.AIExplanation = d.explain(ctx, result)
	}

	return result, nil
}

func detect(frame *dataset.Frame, metricColumn, method string, threshold float64) []flaggedRow {
	values := frame.Numeric(metricColumn)
	if len(values) == 0 {
		return nil
	}

	switch method {
	case MethodZScore:
		mean := stats.Mean(values)
		std := stats.StdDev(values)
		if std == 0 {
			return nil
		}
		return scanRows(frame, metricColumn, func(value float64) (float64, bool) {
			z := abs(value-mean) / std
			return z, z > threshold
		})
	case MethodIQR:
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)
		q1 := stats.Quantile(sorted, 0.25)
		q3 := stats.Quantile(sorted, 0.75)
		iqr := q3 - q1
		if iqr == 0 {
			return nil
		}
		lower := q1 - threshold*iqr
		upper := q3 + threshold*iqr
		return scanRows(frame, metricColumn, func(value float64) (float64, bool) {
			switch {
			case value < lower:
				return (lower - value) / iqr, true
			case value > upper:
				return (value - upper) / iqr, true
			default:
				return 0, false
			}
		})
	default:
		return nil
	}
}

func scanRows(frame *dataset.Frame, metricColumn string, score func(float64) (float64, bool)) []flaggedRow {
	flagged := make([]flaggedRow, 0)
	for row := 0; row < frame.NumRows(); row++ {
		raw, ok := frame.Value(row, metricColumn)
		if !ok || raw == nil {
			continue
		}
		value, ok := dataset.AsFloat(raw)
		if !ok {
			continue
		}
		if deviation, isAnomaly := score(value); isAnomaly {
			flagged = append(flagged, flaggedRow{row: row, value: value, deviation: deviation})
		}
	}
	return flagged
}

// severity maps a method-normalized deviation to a band scaled by the
// detection threshold, so tighter thresholds grade on a tighter curve.
func severity(deviation, threshold float64) string {
	switch {
	case deviation < threshold*1.2:
		return "low"
	case deviation < threshold*1.6:
		return "medium"
	case deviation < threshold*2.2:
		return "high"
	default:
		return "critical"
	}
}

func baselineOf(values []float64) *Baseline {
	return &Baseline{
		Mean:   stats.Round(stats.Mean(values), 2),
		Std:    stats.Round(stats.StdDev(values), 2),
		Median: stats.Round(stats.Median(values), 2),
	}
}

func buildRecord(frame *dataset.Frame, flag flaggedRow, req Request) Record {
	record := Record{
		Date:      formatDate(frame, flag.row, req.DateColumn),
		Value:     flag.value,
		Severity:  severity(flag.deviation, req.Threshold),
		Deviation: stats.Round(flag.deviation, 2),
	}
	record.TransactionID = stringCell(frame, flag.row, "transaction_id")
	record.ProductName = stringCell(frame, flag.row, "product_name")
	record.Category = stringCell(frame, flag.row, "category")
	record.Region = stringCell(frame, flag.row, "region")
	record.CustomerID = stringCell(frame, flag.row, "customer_id")
	return record
}

func formatDate(frame *dataset.Frame, row int, dateColumn string) string {
	raw, ok := frame.Value(row, dateColumn)
	if !ok || raw == nil {
		return "N/A"
	}
	if ts, ok := dataset.AsTime(raw); ok {
		if ts.Hour() == 0 && ts.Minute() == 0 && ts.Second() == 0 {
			return ts.Format("2006-01-02")
		}
		return ts.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprint(raw)
}

func stringCell(frame *dataset.Frame, row int, column string) string {
	raw, ok := frame.Value(row, column)
	if !ok || raw == nil {
		return ""
	}
	if ts, ok := raw.(time.Time); ok {
		return ts.Format("2006-01-02")
	}
	return fmt.Sprint(raw)
}

func abs(value float64) float64 {
	if value < 0 {
		return -value
	}
	return value
}
