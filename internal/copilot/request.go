// Package copilot is the tool execution layer: it classifies incoming
// requests, validates parameters against each operation's contract,
// dispatches to the matching computation, and converts every failure
// into one structured error shape.
package copilot

import (
	"strings"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/insight"
)

// Operation names, used for metrics, history entries, and logs.
const (
	OpExecuteQuery      = "execute-query"
	OpAnalyzeTable      = "analyze-table"
	OpDetectAnomalies   = "detect-anomalies"
	OpSynthesizeInsight = "synthesize-insight"
)

// Classification hints for execute-query.
const (
	HintAuto            = "auto"
	HintStructured      = "structured"
	HintNaturalLanguage = "natural_language"
)

// DefaultRowLimit caps execute-query results when the caller does not
// ask for a limit.
const DefaultRowLimit = 100

// Request is the closed set of operations the layer dispatches. Each
// variant is immutable once handed to Dispatch; adding an operation
// means adding a variant and a case to the dispatch switch.
type Request interface {
	isRequest()
	Operation() string
}

type ExecuteQuery struct {
	Text     string
	Hint     string
	RowLimit int
}

type AnalyzeTable struct {
	Table   string
	Columns []string
	GroupBy string
}

type DetectAnomalies struct {
	Table        string
	MetricColumn string
	DateColumn   string
	Method       string
	Threshold    float64
	Explain      bool
}

type SynthesizeInsight struct {
	Question   string
	Table      string
	TimePeriod string
}

func (ExecuteQuery) isRequest()      {}
func (AnalyzeTable) isRequest()      {}
func (DetectAnomalies) isRequest()   {}
func (SynthesizeInsight) isRequest() {}

func (ExecuteQuery) Operation() string      { return OpExecuteQuery }
func (AnalyzeTable) Operation() string      { return OpAnalyzeTable }
func (DetectAnomalies) Operation() string   { return OpDetectAnomalies }
func (SynthesizeInsight) Operation() string { return OpSynthesizeInsight }

// queryKeywords are the leading tokens that mark text as an already
// structured query.
var queryKeywords = map[string]struct{}{
	"SELECT":   {},
	"INSERT":   {},
	"UPDATE":   {},
	"DELETE":   {},
	"CREATE":   {},
	"DROP":     {},
	"ALTER":    {},
	"WITH":     {},
	"SHOW":     {},
	"DESCRIBE": {},
}

// Classify decides whether text is a structured query or natural
// language. A non-auto hint wins; otherwise the first token decides.
// The result is deterministic and always one of the two labels.
func Classify(text, hint string) string {
	switch hint {
	case HintStructured, HintNaturalLanguage:
		return hint
	}
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return HintNaturalLanguage
	}
	if _, ok := queryKeywords[strings.ToUpper(fields[0])]; ok {
		return HintStructured
	}
	return HintNaturalLanguage
}

// normalize validates the parameter contract and applies defaults. The
// zero value of an optional field means the caller left it out; hosts
// that can tell an explicit zero from an absent field reject the
// explicit zero before building the variant.
func (r ExecuteQuery) normalize() (ExecuteQuery, *Error) {
	if strings.TrimSpace(r.Text) == "" {
		return r, NewValidationError("text is required")
	}
	switch r.Hint {
	case "":
		r.Hint = HintAuto
	case "sql":
		r.Hint = HintStructured
	case HintAuto, HintStructured, HintNaturalLanguage:
	default:
		return r, NewValidationError("hint must be one of structured, natural_language, auto")
	}
	if r.RowLimit < 0 {
		return r, NewValidationError("row_limit must be greater than zero")
	}
	if r.RowLimit == 0 {
		r.RowLimit = DefaultRowLimit
	}
	return r, nil
}

func (r AnalyzeTable) normalize() (AnalyzeTable, *Error) {
	if strings.TrimSpace(r.Table) == "" {
		return r, NewValidationError("table is required")
	}
	return r, nil
}

func (r DetectAnomalies) normalize() (DetectAnomalies, *Error) {
	switch r.Method {
	case "", "zscore", "iqr":
	default:
		return r, NewValidationError("method must be zscore or iqr")
	}
	if r.Threshold < 0 {
		return r, NewValidationError("threshold must be greater than zero")
	}
	return r, nil
}

func (r SynthesizeInsight) normalize() (SynthesizeInsight, *Error) {
	if strings.TrimSpace(r.Question) == "" {
		return r, NewValidationError("question is required")
	}
	if !insight.ValidTimePeriod(r.TimePeriod) {
		return r, NewValidationError("time_period must be one of: %s", strings.Join(insight.TimePeriods(), ", "))
	}
	return r, nil
}
