package insight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/dataset"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/stats"
)

var timeFilters = map[string]string{
	"last_7_days":  "transaction_date >= CURRENT_DATE - INTERVAL '7 days'",
	"last_30_days": "transaction_date >= CURRENT_DATE - INTERVAL '30 days'",
	"last_90_days": "transaction_date >= CURRENT_DATE - INTERVAL '90 days'",
	"last_quarter": "transaction_date >= DATE_TRUNC('quarter', CURRENT_DATE) - INTERVAL '3 months'",
	"this_year":    "YEAR(CAST(transaction_date AS DATE)) = YEAR(CURRENT_DATE)",
	"2023":         "YEAR(CAST(transaction_date AS DATE)) = 2023",
	"2024":         "YEAR(CAST(transaction_date AS DATE)) = 2024",
	"2025":         "YEAR(CAST(transaction_date AS DATE)) = 2025",
}

// ValidTimePeriod reports whether the period is one of the supported
// filter names. The empty period means no filtering.
func ValidTimePeriod(period string) bool {
	if period == "" {
		return true
	}
	_, ok := timeFilters[period]
	return ok
}

// TimeFilter returns the WHERE clause for a period, or empty for no
// filter.
func TimeFilter(period string) string {
	return timeFilters[period]
}

// TimePeriods lists the supported filter names in sorted order.
func TimePeriods() []string {
	names := make([]string, 0, len(timeFilters))
	for name := range timeFilters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const summaryNumericLimit = 8
const summaryCategoricalLimit = 5
const summaryTopValues = 5

// BuildDataSummary condenses a result set into the prompt text the
// model reasons over. Large result sets stay cheap to summarize since
// only aggregates cross the wire.
func BuildDataSummary(frame *dataset.Frame, table string) string {
	lines := []string{
		"Dataset: " + table,
		fmt.Sprintf("Total records: %d", frame.NumRows()),
		"Columns: " + strings.Join(frame.Columns, ", "),
		"",
	}

	numericColumns := frame.NumericColumns()
	if len(numericColumns) > 0 {
		lines = append(lines, "Numeric Summary:")
		for _, column := range head(numericColumns, summaryNumericLimit) {
			summary := stats.Describe(frame.Numeric(column))
			lines = append(lines, fmt.Sprintf("  %s: min=%.2f, max=%.2f, mean=%.2f, median=%.2f",
				column, summary.Min, summary.Max, summary.Mean, summary.Median))
		}
	}

	for _, column := range head(frame.CategoricalColumns(), summaryCategoricalLimit) {
		top := topCounts(frame.Strings(column), summaryTopValues)
		lines = append(lines, fmt.Sprintf("\n%s distribution: %s", column, formatCounts(top)))
	}

	if dateColumns := frame.DateColumns(); len(dateColumns) > 0 {
		times := frame.Times(dateColumns[0])
		if len(times) > 0 {
			earliest, latest := times[0], times[0]
			for _, ts := range times[1:] {
				if ts.Before(earliest) {
					earliest = ts
				}
				if ts.After(latest) {
					latest = ts
				}
			}
			lines = append(lines, fmt.Sprintf("\nDate range: %s to %s",
				earliest.Format("2006-01-02"), latest.Format("2006-01-02")))
		}
	}

	if frame.HasColumn("revenue") {
		revenue := sum(frame.Numeric("revenue"))
		lines = append(lines, fmt.Sprintf("\nTotal Revenue: $%.2f", revenue))
		if frame.HasColumn("profit") {
			profit := sum(frame.Numeric("profit"))
			lines = append(lines, fmt.Sprintf("Total Profit: $%.2f", profit))
			margin := 0.0
			if revenue > 0 {
				margin = profit / revenue * 100
			}
			lines = append(lines, fmt.Sprintf("Profit Margin: %.1f%%", margin))
		}
	}

	return strings.Join(lines, "\n")
}

type valueCount struct {
	value string
	count int
}

func topCounts(values []string, limit int) []valueCount {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, value := range values {
		if _, ok := counts[value]; !ok {
			firstSeen[value] = i
		}
		counts[value]++
	}

	ordered := make([]valueCount, 0, len(counts))
	for value, count := range counts {
		ordered = append(ordered, valueCount{value: value, count: count})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return firstSeen[ordered[i].value] < firstSeen[ordered[j].value]
	})

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered
}

func formatCounts(counts []valueCount) string {
	parts := make([]string, 0, len(counts))
	for _, entry := range counts {
		parts = append(parts, fmt.Sprintf("%s: %d", entry.value, entry.count))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func head(values []string, limit int) []string {
	if len(values) > limit {
		return values[:limit]
	}
	return values
}

func sum(values []float64) float64 {
	total := 0.0
	for _, value := range values {
		total += value
	}
	return total
}
