package executor

// GraphQLError is a located execution error.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult is the outcome of executing an operation without
// incremental delivery: deferred fragments, if any, are folded back in.
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// Patch is one incrementally delivered fragment result. Path locates the
// node the fragment was deferred on; Data holds that fragment's fields.
// Error paths are absolute (rooted at the response, not the patch).
type Patch struct {
	Label  string         `json:"label,omitempty"`
	Path   Path           `json:"path"`
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// IncrementalResult is the outcome of executing an operation with deferred
// fragments excluded from the initial data. Patches is closed after the last
// patch; it is non-nil even when HasNext is false. The initial payload is
// always available before the first patch is emitted.
type IncrementalResult struct {
	Data    any            `json:"data"`
	Errors  []GraphQLError `json:"errors,omitempty"`
	HasNext bool           `json:"hasNext"`
	Patches <-chan Patch   `json:"-"`
}
