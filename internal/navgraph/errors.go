// internal/navgraph/errors.go
package navgraph

import "fmt"

// MergeErrorKind classifies failures of the LLM-mediated graph merge.
type MergeErrorKind string

const (
	// LLMUnavailable means no merge client was configured or the call failed.
	LLMUnavailable MergeErrorKind = "llm_unavailable"
	// ExtractionFailed means the merge completion carried no usable JSON.
	ExtractionFailed MergeErrorKind = "extraction_failed"
)

// MergeError reports why a graph merge could not produce a unified graph.
// Callers fall back to persisting the new graph verbatim.
type MergeError struct {
	Kind MergeErrorKind
	Err  error
}

func (e *MergeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("navigation graph merge failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("navigation graph merge failed (%s)", e.Kind)
}

func (e *MergeError) Unwrap() error { return e.Err }
