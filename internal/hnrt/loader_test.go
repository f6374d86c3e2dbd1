package hnrt

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	hn "github.com/hnql/hnql/internal/hn"
)

func TestLoader_ItemSingleFlight(t *testing.T) {
	src := newFakeSource().addItem(&hn.Item{ID: 8863, Type: "story", Title: "My YC app: Dropbox"})
	loader := NewLoader(src)

	var wg sync.WaitGroup
	items := make([]*hn.Item, 16)
	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := loader.Item(context.Background(), 8863)
			require.NoError(t, err)
			items[i] = item
		}()
	}
	wg.Wait()

	require.Equal(t, 1, src.itemCallCount(8863))
	for _, item := range items {
		require.Same(t, items[0], item)
	}
}

func TestLoader_SettledErrorShared(t *testing.T) {
	src := newFakeSource()
	loader := NewLoader(src)

	_, err1 := loader.Item(context.Background(), 404404)
	_, err2 := loader.Item(context.Background(), 404404)

	require.ErrorIs(t, err1, hn.ErrNotFound)
	require.ErrorIs(t, err2, hn.ErrNotFound)
	require.Equal(t, 1, src.itemCallCount(404404))
}

func TestLoader_UserSingleFlight(t *testing.T) {
	src := newFakeSource().addUser(&hn.User{ID: "dhouston", Karma: 12345})
	loader := NewLoader(src)

	for i := 0; i < 5; i++ {
		user, err := loader.User(context.Background(), "dhouston")
		require.NoError(t, err)
		require.Equal(t, "dhouston", user.ID)
	}
	require.Equal(t, 1, src.userCallCount("dhouston"))
}

func TestLoader_FeedSingleFlight(t *testing.T) {
	src := newFakeSource()
	src.feeds[hn.FeedTop] = []int{1, 2, 3}
	loader := NewLoader(src)

	for i := 0; i < 3; i++ {
		ids, err := loader.Feed(context.Background(), hn.FeedTop)
		require.NoError(t, err)
		require.Equal(t, []int{1, 2, 3}, ids)
	}
	require.Equal(t, 1, src.feedCalls[hn.FeedTop])
}

func TestLoader_DistinctKeysFetchSeparately(t *testing.T) {
	src := newFakeSource().
		addItem(&hn.Item{ID: 1, Type: "story"}).
		addItem(&hn.Item{ID: 2, Type: "story"})
	loader := NewLoader(src)

	a, err := loader.Item(context.Background(), 1)
	require.NoError(t, err)
	b, err := loader.Item(context.Background(), 2)
	require.NoError(t, err)

	require.Equal(t, 1, a.ID)
	require.Equal(t, 2, b.ID)
	require.Equal(t, 1, src.itemCallCount(1))
	require.Equal(t, 1, src.itemCallCount(2))
}
