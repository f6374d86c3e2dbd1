package hn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestGetItem(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"/item/8863.json": `{"id":8863,"type":"story","by":"dhouston","time":1175714200,` +
			`"title":"My YC app: Dropbox - Throw away your USB drive",` +
			`"url":"http://www.getdropbox.com/u/2/screencast.html",` +
			`"score":111,"descendants":71,"kids":[8952,9224,8917]}`,
	})
	c := NewClient(WithBaseURL(srv.URL))

	item, err := c.GetItem(context.Background(), 8863)
	require.NoError(t, err)
	require.Equal(t, 8863, item.ID)
	require.Equal(t, "story", item.Type)
	require.Equal(t, "dhouston", item.By)
	require.Equal(t, []int{8952, 9224, 8917}, item.Kids)
	require.Equal(t, 111, item.Score)
}

func TestGetItemNotFound(t *testing.T) {
	// The upstream answers missing ids with a 200 and a literal null body.
	srv, _ := newTestServer(t, map[string]string{"/item/1.json": "null"})
	c := NewClient(WithBaseURL(srv.URL))

	_, err := c.GetItem(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotFound)

	// A plain 404 maps to the same sentinel.
	_, err = c.GetItem(context.Background(), 2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetUser(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"/user/jl.json": `{"id":"jl","created":1173923446,"karma":2937,"about":"This is a test","submitted":[1,2,3]}`,
	})
	c := NewClient(WithBaseURL(srv.URL))

	u, err := c.GetUser(context.Background(), "jl")
	require.NoError(t, err)
	require.Equal(t, "jl", u.ID)
	require.Equal(t, 2937, u.Karma)
	require.Equal(t, []int{1, 2, 3}, u.Submitted)
}

func TestGetFeed(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"/topstories.json": `[101,102,103]`,
	})
	c := NewClient(WithBaseURL(srv.URL))

	ids, err := c.GetFeed(context.Background(), FeedTop)
	require.NoError(t, err)
	require.Equal(t, []int{101, 102, 103}, ids)
}

func TestContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(func() { close(block); srv.Close() })
	c := NewClient(WithBaseURL(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetItem(ctx, 1)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewUserRef(t *testing.T) {
	require.Equal(t, UserRef{ID: "jl", Username: "jl"}, NewUserRef("jl"))
	require.Equal(t, UserRef{ID: "", Username: ""}, NewUserRef(""))
}
