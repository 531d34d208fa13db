package render

import "fmt"

// ResourceError reports a refused or failed canvas allocation. It is fatal
// for the submission that caused it and for nothing else; the last good
// preview stays on screen.
type ResourceError struct {
	Requested int // pixels
	Limit     int // pixels
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("canvas allocation of %d px exceeds limit of %d px", e.Requested, e.Limit)
}
