package ai

import (
	"encoding/json"
	"strings"
)

// ParseLevel reports how a JSON payload was recovered from a model
// response.
type ParseLevel int

const (
	ParseFailed ParseLevel = iota
	ParseEmbedded
	ParseClean
)

// ParseJSONResponse extracts JSON from a response that may wrap it in
// markdown fences or prose. It tries the cleaned text first, then the
// outermost brace-delimited block.
func ParseJSONResponse(text string, target any) ParseLevel {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), target); err == nil {
		return ParseClean
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), target); err == nil {
			return ParseEmbedded
		}
	}

	return ParseFailed
}
