package store

import "fmt"

// PartialError reports a batch that was applied item by item without a
// transaction and stopped part way. Items before Failed remain applied.
type PartialError struct {
	Applied int
	Total   int
	Failed  string
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("batch stopped after %d of %d items at %s: %v", e.Applied, e.Total, e.Failed, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}
