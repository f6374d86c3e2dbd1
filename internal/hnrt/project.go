package hnrt

// identityFields are the author sub-fields answerable from the parent item's
// `by` value alone. The upstream username doubles as the user id, so a stub
// covers both.
var identityFields = map[string]struct{}{
	"id":         {},
	"username":   {},
	"__typename": {},
}

// NeedsUserFetch reports whether resolving an author field with the given
// selected sub-fields requires the full profile. Identity-only selections
// are served from a synthesized stub with zero upstream calls.
func NeedsUserFetch(selected []string) bool {
	for _, f := range selected {
		if _, ok := identityFields[f]; !ok {
			return true
		}
	}
	return false
}
