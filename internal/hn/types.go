package hn

// Item is the raw upstream payload for a story, comment, job, ask or poll.
// Immutable once fetched; classification into a concrete GraphQL type happens
// in the runtime, not here.
type Item struct {
	ID          int    `json:"id"`
	Deleted     bool   `json:"deleted,omitempty"`
	Type        string `json:"type"`
	By          string `json:"by,omitempty"`
	Time        int    `json:"time"`
	Text        string `json:"text,omitempty"`
	Dead        bool   `json:"dead,omitempty"`
	Parent      int    `json:"parent,omitempty"`
	Kids        []int  `json:"kids,omitempty"`
	URL         string `json:"url,omitempty"`
	Score       int    `json:"score,omitempty"`
	Title       string `json:"title,omitempty"`
	Descendants int    `json:"descendants,omitempty"`
}

// User is the raw upstream payload for a user profile. The upstream has no
// separate username; ID doubles as the username.
type User struct {
	ID        string `json:"id"`
	Created   int    `json:"created"`
	Karma     int    `json:"karma"`
	About     string `json:"about,omitempty"`
	Submitted []int  `json:"submitted,omitempty"`
}

// UserRef is a stub synthesized from an item's `by` field when the caller
// only asked for identity fields. No upstream call is made to produce one.
type UserRef struct {
	ID       string
	Username string
}

// NewUserRef builds a stub for the given author id. The empty string is a
// valid id (anonymous/self-posted items) and stubs to {"", ""}.
func NewUserRef(by string) UserRef { return UserRef{ID: by, Username: by} }
