package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildHackerNews(t *testing.T) {
	s, err := BuildHackerNews()
	require.NoError(t, err)

	require.Equal(t, "Query", s.QueryType)
	for _, name := range []string{"Content", "Story", "Ask", "Job", "Comment", "User", "ItemType", "Query"} {
		require.Contains(t, s.Types, name, "missing type %s", name)
	}

	content := s.Types["Content"]
	require.Equal(t, TypeKindInterface, content.Kind)
	require.ElementsMatch(t, []string{"Story", "Ask", "Job", "Comment"}, content.PossibleTypes)

	// Projection fields stay sync; resolver-backed fields are async.
	story := s.Types["Story"]
	require.False(t, story.Field("title").Async)
	require.False(t, story.Field("score").Async)
	require.True(t, story.Field("by").Async)
	require.True(t, story.Field("kids").Async)
	require.True(t, s.Types["Comment"].Field("parent").Async)
	require.True(t, s.Types["User"].Field("submitted").Async)
	require.False(t, s.Types["User"].Field("username").Async)
	for _, f := range s.Types["Query"].Fields {
		require.True(t, f.Async, "Query.%s must be async", f.Name)
	}

	// Comment.parent must be nullable so a failed parent fetch does not
	// nullify the whole comment.
	require.False(t, IsNonNull(s.Types["Comment"].Field("parent").Type))

	// limit arguments are optional Ints everywhere.
	limit := story.Field("kids").Argument("limit")
	require.NotNil(t, limit)
	require.Equal(t, "Int", GetNamedType(limit.Type))
	require.False(t, IsNonNull(limit.Type))
}

func TestTypeApplies(t *testing.T) {
	s, err := BuildHackerNews()
	require.NoError(t, err)

	story := s.Types["Story"]
	require.True(t, s.TypeApplies(story, "Story"))
	require.True(t, s.TypeApplies(story, "Content"))
	require.True(t, s.TypeApplies(story, ""))
	require.False(t, s.TypeApplies(story, "Comment"))
	require.False(t, s.TypeApplies(story, "User"))
}

func TestRenderRoundTrips(t *testing.T) {
	s, err := BuildHackerNews()
	require.NoError(t, err)

	sdl := Render(s)
	require.Contains(t, sdl, "interface Content {")
	require.Contains(t, sdl, "type Comment implements Content {")
	require.Contains(t, sdl, "kids(limit: Int): [Content]!")
	require.Contains(t, sdl, "directive @defer(if: Boolean = true, label: String) on FRAGMENT_SPREAD | INLINE_FRAGMENT")

	// Rendered SDL must parse back into an equivalent schema.
	again, err := BuildFromSDL(sdl)
	require.NoError(t, err)
	require.Equal(t, len(s.Types), len(again.Types))
	require.ElementsMatch(t, []string{"Story", "Ask", "Job", "Comment"},
		again.Types["Content"].PossibleTypes)
}

func TestRenderTypeRef(t *testing.T) {
	ref := NonNullType(ListType(NamedType("Comment")))
	require.Equal(t, "[Comment]!", RenderTypeRef(ref))
	require.Equal(t, "Int", RenderTypeRef(NamedType("Int")))
}

func TestBuildFromSDLRejectsUnsupported(t *testing.T) {
	_, err := BuildFromSDL("input Filter { q: String }")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "unsupported"))
}
