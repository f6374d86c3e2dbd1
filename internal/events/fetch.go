package events

import "time"

// FetchStart is emitted before an upstream item-store call.
type FetchStart struct {
	Kind string // "item", "user" or "feed"
	Key  string // request path without the .json suffix
}

// FetchFinish is emitted after an upstream item-store call completes.
// NotFound is true for ids the upstream has no payload for; Err then holds
// the not-found sentinel as well.
type FetchFinish struct {
	Kind     string
	Key      string
	NotFound bool
	Err      error
	Duration time.Duration
}
