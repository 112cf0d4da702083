// internal/evaluation/errors.go
package evaluation

import (
	"errors"
	"fmt"
)

// ParseErrorKind classifies parser failures. Prompt drift in the evaluator
// model surfaces here as typed errors rather than silent misclassification.
type ParseErrorKind string

const (
	// NoGraphFound means the completion carried no fenced JSON block.
	NoGraphFound ParseErrorKind = "no_graph_found"
	// InvalidGraphJSON means the fenced block was present but not valid JSON.
	InvalidGraphJSON ParseErrorKind = "invalid_graph_json"
	// NoVerdictFound means the <verdict> block was missing.
	NoVerdictFound ParseErrorKind = "no_verdict_found"
	// NoTupleFound means the structured dialect was required but the verdict
	// contained no (LABEL, url, title) tuple.
	NoTupleFound ParseErrorKind = "no_tuple_found"
)

// ParseError is the typed failure of the response parser boundary.
type ParseError struct {
	Kind   ParseErrorKind
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("evaluation response parse failed (%s)", e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseKind reports whether err is a ParseError of the given kind.
func IsParseKind(err error, kind ParseErrorKind) bool {
	var pe *ParseError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Kind == kind
}
