package hnrt

import (
	"testing"

	"github.com/stretchr/testify/require"

	hn "github.com/hnql/hnql/internal/hn"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		item *hn.Item
		want string
	}{
		{"plain story", &hn.Item{ID: 8863, Type: "story", Title: "My YC app: Dropbox"}, "Story"},
		{"story with text is an Ask", &hn.Item{ID: 121003, Type: "story", Title: "Ask HN", Text: "or HN: the Next Iteration"}, "Ask"},
		{"comment", &hn.Item{ID: 2921983, Type: "comment", Text: "Aw shucks"}, "Comment"},
		{"job", &hn.Item{ID: 192327, Type: "job", Title: "Justin.tv is looking for..."}, "Job"},
		{"deleted comment still classifies", &hn.Item{ID: 5, Type: "comment", Deleted: true}, "Comment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.item)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_UnknownType(t *testing.T) {
	_, err := Classify(&hn.Item{ID: 126809, Type: "poll"})
	require.EqualError(t, err, `unknown item type "poll"`)

	_, err = Classify(&hn.Item{ID: 160705, Type: "pollopt"})
	require.EqualError(t, err, `unknown item type "pollopt"`)
}

func TestTypeEnum(t *testing.T) {
	require.Equal(t, "STORY", typeEnum("Story"))
	require.Equal(t, "ASK", typeEnum("Ask"))
	require.Equal(t, "JOB", typeEnum("Job"))
	require.Equal(t, "COMMENT", typeEnum("Comment"))
}
