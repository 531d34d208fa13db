package filter

// ValidationError reports a malformed tile or parameter set. The chain
// aborts for that tile only; sibling tiles are unaffected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "filter validation: " + e.Reason
}
