package hnrt

import (
	"fmt"

	hn "github.com/hnql/hnql/internal/hn"
)

// Classify maps a raw item onto its concrete GraphQL type name. The upstream
// files Ask HN posts as plain stories; a story with body text is an Ask.
// Unrecognized raw types (poll, pollopt) classify to an error, which the
// executor scopes to the node that produced the item.
func Classify(item *hn.Item) (string, error) {
	switch item.Type {
	case "comment":
		return "Comment", nil
	case "job":
		return "Job", nil
	case "story":
		if item.Text != "" {
			return "Ask", nil
		}
		return "Story", nil
	}
	return "", fmt.Errorf("unknown item type %q", item.Type)
}

// typeEnum maps a concrete type name to its ItemType enum value.
func typeEnum(typeName string) string {
	switch typeName {
	case "Story":
		return "STORY"
	case "Ask":
		return "ASK"
	case "Job":
		return "JOB"
	case "Comment":
		return "COMMENT"
	}
	return ""
}
