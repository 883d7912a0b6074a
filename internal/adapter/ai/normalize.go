// Package ai provides output normalization for semi-structured LLM responses.
package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// snippetLen bounds the raw-payload excerpt attached to parse errors.
const snippetLen = 300

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// Normalize parses a raw model response into T and validates it strictly.
// It tolerates format variance: markdown code fences, leading/trailing prose
// around the JSON object, and a conventional single outer wrapper key (e.g.
// {"scenario": {...}}). It never accepts a partially matching shape; any
// validation failure surfaces domain.ErrSchemaInvalid with a truncated excerpt
// of the offending payload.
func Normalize[T any](raw string, wrapperKeys ...string) (T, error) {
	var out T

	cleaned := StripFences(raw)
	cleaned = ExtractJSON(cleaned)

	var loose map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &loose); err != nil {
		return out, fmt.Errorf("%w: not a JSON object: %v (payload: %s)", domain.ErrSchemaInvalid, err, Snippet(raw))
	}

	payload := []byte(cleaned)
	// Unwrap a conventional single outer key when the object has exactly one
	// entry matching a known wrapper.
	if len(loose) == 1 {
		for _, key := range wrapperKeys {
			if inner, ok := loose[key]; ok {
				payload = inner
				break
			}
		}
	}

	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("%w: decode into %T: %v (payload: %s)", domain.ErrSchemaInvalid, out, err, Snippet(raw))
	}
	if err := getValidator().Struct(out); err != nil {
		return out, fmt.Errorf("%w: %T validation: %v (payload: %s)", domain.ErrSchemaInvalid, out, err, Snippet(raw))
	}
	return out, nil
}

// StripFences removes markdown code-fence markers around a response.
func StripFences(response string) string {
	response = strings.TrimSpace(response)
	if idx := strings.Index(response, "```json"); idx >= 0 {
		response = response[idx+len("```json"):]
		if end := strings.Index(response, "```"); end >= 0 {
			response = response[:end]
		}
		return strings.TrimSpace(response)
	}
	if idx := strings.Index(response, "```"); idx >= 0 {
		response = response[idx+len("```"):]
		if end := strings.Index(response, "```"); end >= 0 {
			response = response[:end]
		}
		return strings.TrimSpace(response)
	}
	return response
}

// ExtractJSON extracts the first balanced JSON object from mixed content.
// Returns the input unchanged when no object is found.
func ExtractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return response
	}
	braceCount := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				braceCount++
			}
		case '}':
			if !inString {
				braceCount--
				if braceCount == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return response
}

// IsValidJSON reports whether s parses as JSON.
func IsValidJSON(s string) bool {
	var tmp any
	return json.Unmarshal([]byte(s), &tmp) == nil
}

// Snippet truncates a payload for inclusion in error messages.
func Snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snippetLen {
		return s[:snippetLen] + "..."
	}
	return s
}
