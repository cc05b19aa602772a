package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON extracts the outermost JSON object from a model answer and unmarshals it into
// T. Markdown code fences and surrounding prose are ignored.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	s := strings.TrimSpace(response)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.IndexByte(s, '{')
	if start == -1 {
		return zero, fmt.Errorf("no JSON object found in response (missing '{')")
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return zero, fmt.Errorf("no JSON object found in response (missing '}')")
	}

	var result T
	if err := json.Unmarshal([]byte(s[start:end+1]), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, s[start:end+1])
	}

	return result, nil
}
