// internal/planstore/errors.go
package planstore

import "fmt"

// StoreErrorKind classifies plan store failures.
type StoreErrorKind string

const (
	// IOFailure covers database open, query and insert failures.
	IOFailure StoreErrorKind = "io_failure"
	// EmbeddingFailure means the embedding client could not vectorize a title.
	EmbeddingFailure StoreErrorKind = "embedding_failure"
)

// StoreError is the typed failure of plan persistence and retrieval.
type StoreError struct {
	Kind StoreErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plan store operation failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("plan store operation failed (%s)", e.Kind)
}

func (e *StoreError) Unwrap() error { return e.Err }
