package insight

import (
	"strings"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/ai"
)

type Insights struct {
	Summary         string   `json:"summary"`
	KeyFindings     []string `json:"key_findings"`
	Recommendations []string `json:"recommendations"`
	RiskFactors     []string `json:"risk_factors"`
}

// ParseStatus records how far the response parsing got. Raw responses
// still reach the caller through the ai_response field.
type ParseStatus string

const (
	StatusParsed  ParseStatus = "parsed"
	StatusPartial ParseStatus = "partial"
	StatusRaw     ParseStatus = "raw"
)

// parseInsights never fails: unparseable responses fall back to the raw
// text as the summary with empty finding lists, tagged StatusRaw.
func parseInsights(response string) (*Insights, ParseStatus) {
	var parsed Insights
	switch ai.ParseJSONResponse(response, &parsed) {
	case ai.ParseClean:
		return &parsed, StatusParsed
	case ai.ParseEmbedded:
		return &parsed, StatusPartial
	default:
		return &Insights{
			Summary:         strings.TrimSpace(response),
			KeyFindings:     []string{},
			Recommendations: []string{},
			RiskFactors:     []string{},
		}, StatusRaw
	}
}
