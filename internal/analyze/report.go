package analyze

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/dataset"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/stats"
)

const (
	maxCorrelations = 10
	maxTopValues    = 10
	maxGroups       = 20
	maxGroupTargets = 3
	correlationMin  = 0.3
)

// Result is the analysis report. Sections are omitted when the table has
// no columns of the matching kind or the inputs did not ask for them.
type Result struct {
	Table              string                        `json:"table"`
	TotalRows          int                           `json:"total_rows"`
	TotalColumns       int                           `json:"total_columns"`
	ColumnsAnalyzed    []string                      `json:"columns_analyzed"`
	NumericSummary     map[string]NumericSummary     `json:"numeric_summary,omitempty"`
	TopCorrelations    []Correlation                 `json:"top_correlations,omitempty"`
	CategoricalSummary map[string]CategoricalSummary `json:"categorical_summary,omitempty"`
	DataQuality        DataQuality                   `json:"data_quality"`
	GroupedAnalysis    *GroupedAnalysis              `json:"grouped_analysis,omitempty"`
	Trend              *Trend                        `json:"trend,omitempty"`
}

// NumericSummary mirrors a describe() block. The distribution fields are
// pointers so a column with no non-null values reports count 0 and
// nothing else.
type NumericSummary struct {
	Count int      `json:"count"`
	Mean  *float64 `json:"mean,omitempty"`
	Std   *float64 `json:"std,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	P25   *float64 `json:"25%,omitempty"`
	P50   *float64 `json:"50%,omitempty"`
	P75   *float64 `json:"75%,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

type Correlation struct {
	ColA        string  `json:"col_a"`
	ColB        string  `json:"col_b"`
	Correlation float64 `json:"correlation"`
}

type CategoricalSummary struct {
	UniqueValues int         `json:"unique_values"`
	TopValues    ValueCounts `json:"top_values"`
	NullCount    int         `json:"null_count"`
}

// ValueCount pairs a categorical value with its frequency.
type ValueCount struct {
	Value string
	Count int
}

// ValueCounts serializes as a JSON object that keeps its slice order, so
// top values appear most-frequent first instead of alphabetically.
type ValueCounts []ValueCount

func (v ValueCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pair := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(pair.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type DataQuality struct {
	NullCounts     map[string]int `json:"null_counts"`
	NullPercentage float64        `json:"null_percentage"`
	DuplicateRows  int            `json:"duplicate_rows"`
}

type GroupedAnalysis struct {
	GroupBy string                        `json:"group_by"`
	Groups  map[string]map[string]float64 `json:"groups"`
}

type Trend struct {
	DateColumn       string  `json:"date_column"`
	Metric           string  `json:"metric"`
	Direction        string  `json:"direction"`
	OverallChangePct float64 `json:"overall_change_pct"`
	Periods          int     `json:"periods"`
}

func numericSummaries(frame *dataset.Frame, columns []string) map[string]NumericSummary {
	summaries := make(map[string]NumericSummary, len(columns))
	for _, name := range columns {
		described := stats.Describe(frame.Numeric(name))
		if described.Count == 0 {
			summaries[name] = NumericSummary{Count: 0}
			continue
		}
		summaries[name] = NumericSummary{
			Count: described.Count,
			Mean:  ref(described.Mean),
			Std:   ref(described.Std),
			Min:   ref(described.Min),
			P25:   ref(described.Q1),
			P50:   ref(described.Median),
			P75:   ref(described.Q3),
			Max:   ref(described.Max),
		}
	}
	return summaries
}

func ref(value float64) *float64 { return &value }

func topCorrelations(frame *dataset.Frame, columns []string) []Correlation {
	var pairs []Correlation
	for i := 0; i < len(columns); i++ {
		for j := i + 1; j < len(columns); j++ {
			xs, ys := pairedValues(frame, columns[i], columns[j])
			r, ok := stats.Pearson(xs, ys)
			if !ok {
				continue
			}
			rounded := stats.Round(r, 3)
			if math.Abs(rounded) <= correlationMin {
				continue
			}
			pairs = append(pairs, Correlation{ColA: columns[i], ColB: columns[j], Correlation: rounded})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Correlation) > math.Abs(pairs[b].Correlation)
	})
	if len(pairs) > maxCorrelations {
		pairs = pairs[:maxCorrelations]
	}
	return pairs
}

// pairedValues collects the rows where both columns hold a numeric
// value, keeping the two series aligned.
func pairedValues(frame *dataset.Frame, colA, colB string) ([]float64, []float64) {
	xs := make([]float64, 0, frame.NumRows())
	ys := make([]float64, 0, frame.NumRows())
	for row := 0; row < frame.NumRows(); row++ {
		rawA, _ := frame.Value(row, colA)
		rawB, _ := frame.Value(row, colB)
		x, okA := dataset.AsFloat(rawA)
		y, okB := dataset.AsFloat(rawB)
		if okA && okB {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

func categoricalSummaries(frame *dataset.Frame, columns []string) map[string]CategoricalSummary {
	summaries := make(map[string]CategoricalSummary, len(columns))
	for _, name := range columns {
		values := frame.Strings(name)
		counts := make(map[string]int, len(values))
		firstSeen := make(map[string]int, len(values))
		order := make([]string, 0)
		for _, value := range values {
			if _, seen := counts[value]; !seen {
				firstSeen[value] = len(order)
				order = append(order, value)
			}
			counts[value]++
		}
		sort.SliceStable(order, func(a, b int) bool {
			if counts[order[a]] != counts[order[b]] {
				return counts[order[a]] > counts[order[b]]
			}
			return firstSeen[order[a]] < firstSeen[order[b]]
		})
		top := make(ValueCounts, 0, maxTopValues)
		for _, value := range order {
			if len(top) == maxTopValues {
				break
			}
			top = append(top, ValueCount{Value: value, Count: counts[value]})
		}
		summaries[name] = CategoricalSummary{
			UniqueValues: len(counts),
			TopValues:    top,
			NullCount:    frame.NullCount(name),
		}
	}
	return summaries
}

// dataQuality scopes its counters to the considered columns: a request
// narrowed to a column subset reports null percentage and duplicates
// over that subset only.
func dataQuality(frame *dataset.Frame, columns []string) DataQuality {
	nullCounts := make(map[string]int)
	totalNulls := 0
	for _, name := range columns {
		nulls := frame.NullCount(name)
		totalNulls += nulls
		if nulls > 0 {
			nullCounts[name] = nulls
		}
	}
	cells := frame.NumRows() * len(columns)
	percentage := 0.0
	if cells > 0 {
		percentage = stats.Round(float64(totalNulls)/float64(cells)*100, 2)
	}
	return DataQuality{
		NullCounts:     nullCounts,
		NullPercentage: percentage,
		DuplicateRows:  duplicateRows(frame, columns),
	}
}

// duplicateRows counts rows identical to an earlier row across every
// considered column, the keep-first convention. Nulls compare equal.
func duplicateRows(frame *dataset.Frame, columns []string) int {
	seen := make(map[string]struct{}, frame.NumRows())
	duplicates := 0
	for row := 0; row < frame.NumRows(); row++ {
		var key strings.Builder
		for _, name := range columns {
			cell, _ := frame.Value(row, name)
			fmt.Fprintf(&key, "%v\x1f", cell)
		}
		if _, ok := seen[key.String()]; ok {
			duplicates++
			continue
		}
		seen[key.String()] = struct{}{}
	}
	return duplicates
}

func groupedAnalysis(frame *dataset.Frame, groupBy string, numericCols []string) *GroupedAnalysis {
	targets := make([]string, 0, maxGroupTargets)
	for _, name := range numericCols {
		if name == groupBy {
			continue
		}
		targets = append(targets, name)
		if len(targets) == maxGroupTargets {
			break
		}
	}
	if len(targets) == 0 {
		return nil
	}

	type aggregate struct {
		sum   float64
		count int
	}
	groups := make(map[string]map[string]*aggregate)
	for row := 0; row < frame.NumRows(); row++ {
		raw, _ := frame.Value(row, groupBy)
		if raw == nil {
			continue
		}
		key := fmt.Sprint(raw)
		byColumn, ok := groups[key]
		if !ok {
			byColumn = make(map[string]*aggregate, len(targets))
			groups[key] = byColumn
		}
		for _, target := range targets {
			cell, _ := frame.Value(row, target)
			value, ok := dataset.AsFloat(cell)
			if !ok {
				continue
			}
			agg := byColumn[target]
			if agg == nil {
				agg = &aggregate{}
				byColumn[target] = agg
			}
			agg.sum += value
			agg.count++
		}
	}
	if len(groups) == 0 {
		return nil
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) > maxGroups {
		keys = keys[:maxGroups]
	}

	out := make(map[string]map[string]float64, len(keys))
	for _, key := range keys {
		row := make(map[string]float64, len(targets)*3)
		for _, target := range targets {
			agg := groups[key][target]
			if agg == nil || agg.count == 0 {
				row[target+"_count"] = 0
				continue
			}
			row[target+"_mean"] = stats.Round(agg.sum/float64(agg.count), 2)
			row[target+"_sum"] = stats.Round(agg.sum, 2)
			row[target+"_count"] = float64(agg.count)
		}
		out[key] = row
	}
	return &GroupedAnalysis{GroupBy: groupBy, Groups: out}
}

// monthlyTrend sums the metric by calendar month of the first
// date-named column and compares the last bucket with the first.
func monthlyTrend(frame *dataset.Frame, metric string) *Trend {
	dateCols := frame.DateColumns()
	if len(dateCols) == 0 {
		return nil
	}
	dateCol := dateCols[0]

	buckets := make(map[string]float64)
	for row := 0; row < frame.NumRows(); row++ {
		rawDate, _ := frame.Value(row, dateCol)
		ts, ok := dataset.AsTime(rawDate)
		if !ok {
			continue
		}
		rawValue, _ := frame.Value(row, metric)
		value, ok := dataset.AsFloat(rawValue)
		if !ok {
			continue
		}
		buckets[ts.Format("2006-01")] += value
	}
	if len(buckets) < 2 {
		return nil
	}

	months := make([]string, 0, len(buckets))
	for month := range buckets {
		months = append(months, month)
	}
	sort.Strings(months)

	first := buckets[months[0]]
	last := buckets[months[len(months)-1]]
	trend := &Trend{
		DateColumn: dateCol,
		Metric:     metric,
		Periods:    len(months),
	}
	switch {
	case first == 0 || first == last:
		trend.Direction = "flat"
	case last > first:
		trend.Direction = "increasing"
	default:
		trend.Direction = "decreasing"
	}
	if first != 0 {
		trend.OverallChangePct = stats.Round((last-first)/first*100, 1)
	}
	return trend
}
