package hnrt

import (
	"context"
	"sync"

	hn "github.com/hnql/hnql/internal/hn"
)

// Source is the upstream surface the loader deduplicates over. *hn.Client
// satisfies it; tests substitute an in-memory implementation.
type Source interface {
	GetItem(ctx context.Context, id int) (*hn.Item, error)
	GetUser(ctx context.Context, username string) (*hn.User, error)
	GetFeed(ctx context.Context, feed hn.Feed) ([]int, error)
}

// Loader is the request-scoped fetch deduplicator. The first request for a
// key performs the upstream call; every other request for that key, earlier
// or later in the same pass, waits for and shares the settled outcome,
// including errors. Nothing is invalidated: a Loader lives exactly as long
// as one request.
type Loader struct {
	source Source

	mu    sync.Mutex
	items map[int]*itemEntry
	users map[string]*userEntry
	feeds map[hn.Feed]*feedEntry
}

type itemEntry struct {
	once sync.Once
	item *hn.Item
	err  error
}

type userEntry struct {
	once sync.Once
	user *hn.User
	err  error
}

type feedEntry struct {
	once sync.Once
	ids  []int
	err  error
}

func NewLoader(source Source) *Loader {
	return &Loader{
		source: source,
		items:  make(map[int]*itemEntry),
		users:  make(map[string]*userEntry),
		feeds:  make(map[hn.Feed]*feedEntry),
	}
}

// Item fetches an item at most once per loader lifetime.
func (l *Loader) Item(ctx context.Context, id int) (*hn.Item, error) {
	l.mu.Lock()
	e, ok := l.items[id]
	if !ok {
		e = &itemEntry{}
		l.items[id] = e
	}
	l.mu.Unlock()

	e.once.Do(func() {
		e.item, e.err = l.source.GetItem(ctx, id)
	})
	return e.item, e.err
}

// User fetches a user profile at most once per loader lifetime.
func (l *Loader) User(ctx context.Context, username string) (*hn.User, error) {
	l.mu.Lock()
	e, ok := l.users[username]
	if !ok {
		e = &userEntry{}
		l.users[username] = e
	}
	l.mu.Unlock()

	e.once.Do(func() {
		e.user, e.err = l.source.GetUser(ctx, username)
	})
	return e.user, e.err
}

// Feed fetches a ranked id list at most once per loader lifetime.
func (l *Loader) Feed(ctx context.Context, feed hn.Feed) ([]int, error) {
	l.mu.Lock()
	e, ok := l.feeds[feed]
	if !ok {
		e = &feedEntry{}
		l.feeds[feed] = e
	}
	l.mu.Unlock()

	e.once.Do(func() {
		e.ids, e.err = l.source.GetFeed(ctx, feed)
	})
	return e.ids, e.err
}
