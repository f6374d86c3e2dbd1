package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted as soon as a request reaches the GraphQL endpoint,
// before parsing. The publishing context carries the request id.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted once the response is fully written, including the
// closing frame of an incremental response.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}
