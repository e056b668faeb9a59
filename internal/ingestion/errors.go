package ingestion

import "fmt"

// ExtractionError is returned when a source cannot be turned into sentences.
type ExtractionError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("extract %s: %s", e.Path, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
