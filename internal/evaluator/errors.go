// internal/evaluator/errors.go
package evaluator

import "fmt"

// EvaluationError wraps any failure raised during one execute+evaluate
// cycle. The orchestrator converts these into ERROR attempt records instead
// of aborting the run.
type EvaluationError struct {
	Attempt int
	Stage   string
	Err     error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("attempt %d failed during %s: %v", e.Attempt, e.Stage, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
