package hnrt

import (
	"context"
	"sync"

	hn "github.com/hnql/hnql/internal/hn"
)

// fakeSource is an in-memory Source that counts upstream calls per key.
type fakeSource struct {
	mu    sync.Mutex
	items map[int]*hn.Item
	users map[string]*hn.User
	feeds map[hn.Feed][]int

	itemErrs map[int]error

	itemCalls map[int]int
	userCalls map[string]int
	feedCalls map[hn.Feed]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		items:     make(map[int]*hn.Item),
		users:     make(map[string]*hn.User),
		feeds:     make(map[hn.Feed][]int),
		itemErrs:  make(map[int]error),
		itemCalls: make(map[int]int),
		userCalls: make(map[string]int),
		feedCalls: make(map[hn.Feed]int),
	}
}

func (f *fakeSource) addItem(item *hn.Item) *fakeSource {
	f.items[item.ID] = item
	return f
}

func (f *fakeSource) addUser(user *hn.User) *fakeSource {
	f.users[user.ID] = user
	return f
}

func (f *fakeSource) GetItem(ctx context.Context, id int) (*hn.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemCalls[id]++
	if err, ok := f.itemErrs[id]; ok {
		return nil, err
	}
	item, ok := f.items[id]
	if !ok {
		return nil, hn.ErrNotFound
	}
	return item, nil
}

func (f *fakeSource) GetUser(ctx context.Context, username string) (*hn.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls[username]++
	user, ok := f.users[username]
	if !ok {
		return nil, hn.ErrNotFound
	}
	return user, nil
}

func (f *fakeSource) GetFeed(ctx context.Context, feed hn.Feed) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedCalls[feed]++
	return f.feeds[feed], nil
}

func (f *fakeSource) itemCallCount(id int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.itemCalls[id]
}

func (f *fakeSource) userCallCount(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userCalls[username]
}

func (f *fakeSource) totalUserCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.userCalls {
		n += c
	}
	return n
}
