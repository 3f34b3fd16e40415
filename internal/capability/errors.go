package capability

import "fmt"

// ModelUnavailableError reports that a capability backend failed or timed
// out. It propagates to the caller as a retryable failure, never as a
// rejection of the document.
type ModelUnavailableError struct {
	Stage string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model capability unavailable (%s): %v", e.Stage, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }
