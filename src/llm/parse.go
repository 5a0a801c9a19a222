package llm

import (
	"encoding/json"
	"strings"
)

// decodeStructured parses a schema-constrained response. Models occasionally
// wrap the JSON in fenced code blocks despite the response format; those
// markers are stripped and the parse retried exactly once before the content
// is surfaced as malformed.
func decodeStructured(content string, v any) error {
	if err := json.Unmarshal([]byte(content), v); err == nil {
		return nil
	}

	stripped := stripCodeFences(content)
	if err := json.Unmarshal([]byte(stripped), v); err != nil {
		return &MalformedResponseError{Raw: content, Err: err}
	}
	return nil
}

// stripCodeFences removes a surrounding ```lang ... ``` block, if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line, including any language tag.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
