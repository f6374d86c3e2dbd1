package events

import "time"

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
	Incremental   bool
}

// GraphQLFinish is emitted after executing a GraphQL operation. For
// incremental operations this fires once the terminal chunk is written.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Incremental   bool
	Patches       int
	Errors        []error
	Duration      time.Duration
}
