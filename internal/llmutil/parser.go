// internal/llmutil/parser.go
package llmutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// fencedJSONRegex extracts JSON wrapped in a markdown code fence.
	fencedJSONRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\{.*?\\})\\s*\x60\x60\x60")
)

// FencedJSONBlocks returns every fenced JSON object in the completion, in
// order of appearance. Evaluator completions carry the navigation graph in
// the first block and, in the structured dialect, a lessons mapping in a
// later one.
func FencedJSONBlocks(response string) []string {
	matches := fencedJSONRegex.FindAllStringSubmatch(response, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, strings.TrimSpace(m[1]))
	}
	return blocks
}

// FirstFencedJSON returns the first fenced JSON object, if any.
func FirstFencedJSON(response string) (string, bool) {
	if m := fencedJSONRegex.FindStringSubmatch(response); len(m) > 1 {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// LooseJSONObject scans for the outermost '{' ... '}' span as a best-effort
// fallback when a completion omits the code fence. The caller is expected to
// validate the result by unmarshaling it.
func LooseJSONObject(response string) (string, bool) {
	first := strings.Index(response, "{")
	last := strings.LastIndex(response, "}")
	if first == -1 || last == -1 || last <= first {
		return "", false
	}
	return response[first : last+1], true
}

// ParseJSONResponse parses an LLM completion into a target Go type, handling
// markdown fencing and conversational padding around the JSON payload.
func ParseJSONResponse[T any](response string) (*T, error) {
	response = strings.TrimSpace(response)

	payload := response
	if block, ok := FirstFencedJSON(response); ok {
		payload = block
	} else if !strings.HasPrefix(response, "{") {
		if span, ok := LooseJSONObject(response); ok {
			payload = span
		}
	}

	var result T
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w. Extracted JSON (truncated): %s", err, TruncateString(payload, 500))
	}
	return &result, nil
}

// TruncateString truncates a string to a maximum byte length, appending an
// ellipsis when content was dropped. It does not account for rune boundaries;
// sufficient for log and error output.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
