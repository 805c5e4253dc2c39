package anomaly

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/ai"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/observability"
)

const explainSystemPrompt = "You are a data analyst specializing in anomaly detection. " +
	"Explain the anomaly in business terms and suggest possible causes. " +
	`Return JSON with keys: "explanation", "possible_causes" (list), ` +
	`"severity" (low/medium/high/critical), "recommended_actions" (list).`

var severityOrder = []string{"critical", "high", "medium", "low"}

// explain asks the model to interpret the detected anomalies. Failures
// degrade to a missing explanation instead of failing the detection.
func (d *Detector) explain(ctx context.Context, result Result) *Explanation {
	completion, err := ai.CompleteWithRetry(ctx, d.AI, ai.Request{
		System: explainSystemPrompt,
		Prompt: "Anomaly Data:\n" + buildAnomalySummary(result),
	}, d.Retry)
	if err != nil {
		observability.ObserveAIRequest("explain_anomaly", "error", 0, 0)
		d.Logger.Warn("anomaly explanation unavailable", "error", err)
		return nil
	}
	observability.ObserveAIRequest("explain_anomaly", "ok", completion.InputTokens, completion.OutputTokens)

	var explanation Explanation
	if ai.ParseJSONResponse(completion.Text, &explanation) == ai.ParseFailed {
		d.Logger.Warn("anomaly explanation not parseable")
		return nil
	}
	return &explanation
}

func buildAnomalySummary(result Result) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Detected %d anomalies in %s (mean=%.2f, std=%.2f).\n",
		result.AnomaliesFound, result.Metric, result.Baseline.Mean, result.Baseline.Std)

	parts := make([]string, 0, len(severityOrder))
	for _, level := range severityOrder {
		if count, ok := result.SeverityBreakdown[level]; ok {
			parts = append(parts, fmt.Sprintf("%s: %d", level, count))
		}
	}
	fmt.Fprintf(&builder, "Severity breakdown: {%s}\n", strings.Join(parts, ", "))

	sample := result.Anomalies
	if len(sample) > 5 {
		sample = sample[:5]
	}
	sampleJSON, err := json.Marshal(sample)
	if err != nil {
		sampleJSON = []byte("[]")
	}
	fmt.Fprintf(&builder, "Sample anomalies: %s", sampleJSON)

	return builder.String()
}
