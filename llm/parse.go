package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject is returned when model output contains no recoverable JSON
// object.
var ErrNoObject = errors.New("no JSON object in model output")

// CleanText strips markdown code fences and surrounding whitespace from model
// output. Models add ```json fences no matter how firmly the prompt forbids
// them.
func CleanText(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		// Drop the language tag on the opening fence line.
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// ParseObject extracts a JSON object from model output. Strict parsing runs
// first; when the output has prose around the object, recovery slices from
// the first '{' to the last '}' and tries again. Both paths produce the same
// result type so callers never know which one fired.
func ParseObject(text string) (map[string]any, error) {
	cleaned := CleanText(text)

	var strict map[string]any
	if err := json.Unmarshal([]byte(cleaned), &strict); err == nil {
		return strict, nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, ErrNoObject
	}

	var recovered map[string]any
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &recovered); err != nil {
		return nil, fmt.Errorf("recover JSON object: %w", err)
	}
	return recovered, nil
}
