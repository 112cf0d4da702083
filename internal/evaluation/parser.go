// internal/evaluation/parser.go
package evaluation

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/llmutil"
)

// The evaluator emits free text following a fixed textual contract. Two
// dialects exist in the wild and are detected structurally:
//
//	simple:     fenced JSON graph + <verdict> + optional <guide>
//	structured: the verdict additionally embeds a (LABEL, url, title) tuple,
//	            a second fenced JSON block holds a lessons map, and an
//	            optional <failure_guide> block replaces <guide>
var (
	verdictRegexp      = regexp.MustCompile(`(?s)<verdict>\s*(.*?)\s*</verdict>`)
	guideRegexp        = regexp.MustCompile(`(?s)<guide>\s*(.*?)\s*</guide>`)
	failureGuideRegexp = regexp.MustCompile(`(?s)<failure_guide>\s*(.*?)\s*</failure_guide>`)

	// Strict form: all three tuple members quoted, single or double quotes.
	tupleStrictRegexp = regexp.MustCompile(`\(\s*['"]([A-Z][A-Z_]*)['"]\s*,\s*['"]([^'"]*)['"]\s*,\s*['"]([^'"]*)['"]\s*\)`)
	// Lenient fallback: unquoted members, comma-separated. The label must be
	// an uppercase token so prose parentheses do not match.
	tupleLenientRegexp = regexp.MustCompile(`\(\s*([A-Z][A-Z_]*)\s*,\s*([^\s,]+)\s*,\s*([^)]+?)\s*\)`)
)

// Parse extracts the structured evaluation result from a raw evaluator
// completion. It is pure and deterministic; all failures are *ParseError.
func Parse(raw string) (*schemas.EvaluationResult, error) {
	graphJSON, ok := llmutil.FirstFencedJSON(raw)
	if !ok {
		return nil, &ParseError{Kind: NoGraphFound, Detail: "no fenced JSON navigation graph in response"}
	}

	var graph schemas.NavigationGraph
	if err := json.Unmarshal([]byte(graphJSON), &graph); err != nil {
		return nil, &ParseError{Kind: InvalidGraphJSON, Err: err}
	}

	verdictMatch := verdictRegexp.FindStringSubmatchIndex(raw)
	if verdictMatch == nil {
		return nil, &ParseError{Kind: NoVerdictFound, Detail: "no <verdict> block in response"}
	}
	verdict := strings.TrimSpace(raw[verdictMatch[2]:verdictMatch[3]])

	result := &schemas.EvaluationResult{
		Status:   determineStatus(verdict),
		Verdict:  verdict,
		RawGraph: graphJSON,
		Graph:    graph,
	}

	if label, url, title, ok := extractTuple(verdict); ok {
		result.TaskLabel = label
		result.WebsiteURL = url
		result.TaskTitle = title
		result.Lessons = extractLessons(raw[verdictMatch[1]:])
		if m := failureGuideRegexp.FindStringSubmatch(raw); m != nil {
			result.FailureGuide = strings.TrimSpace(m[1])
		}
		return result, nil
	}

	if m := guideRegexp.FindStringSubmatch(raw); m != nil {
		result.Guide = strings.TrimSpace(m[1])
	}
	return result, nil
}

// ParseStructured parses a completion that must carry the structured dialect.
// A simple-dialect completion yields a NoTupleFound error.
func ParseStructured(raw string) (*schemas.EvaluationResult, error) {
	result, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if !result.Structured() {
		return nil, &ParseError{Kind: NoTupleFound, Detail: "verdict contains no (LABEL, url, title) tuple"}
	}
	return result, nil
}

// determineStatus scans the verdict text case-insensitively. The priority
// order matters: a verdict may narratively mention another outcome while
// asserting the real one.
func determineStatus(verdict string) schemas.EvalStatus {
	upper := strings.ToUpper(verdict)
	switch {
	case strings.Contains(upper, "SUCCESS"):
		return schemas.StatusSuccess
	case strings.Contains(upper, "FAILURE"):
		return schemas.StatusFailure
	case strings.Contains(upper, "IMPOSSIBLE"):
		return schemas.StatusImpossible
	default:
		return schemas.StatusUnknown
	}
}

func extractTuple(verdict string) (label, url, title string, ok bool) {
	if m := tupleStrictRegexp.FindStringSubmatch(verdict); m != nil {
		return m[1], m[2], strings.TrimSpace(m[3]), true
	}
	if m := tupleLenientRegexp.FindStringSubmatch(verdict); m != nil {
		title = strings.TrimSpace(m[3])
		title = strings.Trim(title, `'"`)
		return m[1], strings.Trim(m[2], `'"`), title, true
	}
	return "", "", "", false
}

// extractLessons parses the first fenced JSON block after the verdict as a
// lesson-title to lesson-body map. Absence or malformed JSON is never fatal.
func extractLessons(afterVerdict string) map[string]string {
	lessons := map[string]string{}
	block, ok := llmutil.FirstFencedJSON(afterVerdict)
	if !ok {
		return lessons
	}
	if err := json.Unmarshal([]byte(block), &lessons); err != nil {
		return map[string]string{}
	}
	return lessons
}
