// Package executor implements a breadth-first, batch-friendly GraphQL
// executor with runtime hooks for synchronous projection, depth-wise batching
// of asynchronous work, abstract-type resolution, leaf serialization, and
// incremental delivery via @defer.
//
// # Execution Model
//
// Execution proceeds level by level. Synchronous ("projection") fields expand
// immediately without adding batch depth; asynchronous ("fetch-backed") fields
// discovered while expanding a depth are queued and resolved in one call to
// Runtime.BatchResolveAsync per depth. The schema conveys the classification
// through schema.Field.Async: projections over an already-loaded source are
// Async=false, fields that need an upstream fetch are Async=true. A query
// whose asynchronous depth is d drives exactly d batch calls.
//
// Value completion follows the GraphQL rules: lists complete element-wise
// with index-aware paths, leaves go through Runtime.SerializeLeafValue,
// interface values go through Runtime.ResolveType before completing as their
// concrete object type, and Non-Null violations null out the nearest nullable
// ancestor. Nullified paths are tombstoned so queued tasks beneath them are
// dropped before the next batch.
//
// # Errors and Partial Success
//
// Errors accumulate as located errors (message + path). A failed or null
// Non-Null field propagates to the nearest nullable ancestor; everything
// outside that subtree still resolves, so a response can carry both data and
// errors.
//
// # Incremental Delivery
//
// Fragments carrying @defer are held out of the pass that discovers them.
// ExecuteRequestIncremental returns the initial payload immediately and
// delivers each deferred fragment as a Patch (label, path, data, errors) on a
// channel; a fragment's patch always precedes patches for fragments nested
// inside it. ExecuteRequest instead folds deferred data back into a single
// complete response for clients that cannot consume a stream.
package executor
