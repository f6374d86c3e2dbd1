package executor

import (
	"context"
)

// Runtime is the host integration surface for field resolution, depth-wise
// batching, abstract-type classification and leaf serialization.
//
// Contract:
//   - The Executor runs breadth-first. At each depth it drains synchronous
//     fields via ResolveSync, then calls BatchResolveAsync ONCE with every
//     async task collected at that depth. The next depth does not begin until
//     that batch returns and its results are completed.
//   - ResolveSync is never invoked for fields marked async in the schema.
//   - BatchResolveAsync must return exactly one result per task, in task
//     order. Results are independent; one failure must not fail the batch.
//   - Errors become located GraphQL errors. A Non-Null field's error
//     propagates null to the nearest nullable ancestor.
//   - Implementations must respect ctx: a canceled request abandons all
//     in-flight upstream work.
//   - A Runtime instance is scoped to one request. Any per-request state
//     (such as a fetch-deduplication cache) lives inside the Runtime and
//     dies with it; the Executor itself keeps no state between requests.
type Runtime interface {
	// ResolveSync resolves a synchronous (projection) field immediately.
	// Return (nil, nil) to produce a GraphQL null for nullable fields.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one execution depth of async field tasks.
	// len(results) == len(tasks) and results[i] corresponds to tasks[i].
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType determines the concrete object type name for a value of an
	// abstract (interface) type.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue serializes a scalar or enum value to a JSON-safe Go
	// value. For enums, return the symbolic name as a string.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Source is the parent object value (nil for root fields).
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
	// Selected lists the subfield names the caller selected on this field,
	// flattened through fragments. Runtimes use it to decide whether a cheap
	// projection satisfies the request (e.g. an author stub instead of a
	// user fetch).
	Selected []string
}

type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error holds a failure specific to this task.
	Error error
}
