package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	executor "github.com/hnql/hnql/internal/executor"
	hn "github.com/hnql/hnql/internal/hn"
	hnrt "github.com/hnql/hnql/internal/hnrt"
	schema "github.com/hnql/hnql/internal/schema"
)

// memSource serves a small fixed graph without touching the network.
type memSource struct {
	items map[int]*hn.Item
	users map[string]*hn.User
	feeds map[hn.Feed][]int
}

func testSource() *memSource {
	return &memSource{
		items: map[int]*hn.Item{
			8863: {ID: 8863, Type: "story", By: "dhouston", Time: 1175714200, Title: "My YC app: Dropbox", URL: "http://www.getdropbox.com", Score: 104, Descendants: 71, Kids: []int{9224}},
			9224: {ID: 9224, Type: "comment", By: "BrandonM", Time: 1175727286, Parent: 8863, Text: "I have a few qualms"},
		},
		users: map[string]*hn.User{
			"dhouston": {ID: "dhouston", Created: 1175714200, Karma: 12345, Submitted: []int{8863}},
		},
		feeds: map[hn.Feed][]int{hn.FeedTop: {8863, 9224}},
	}
}

func (m *memSource) GetItem(ctx context.Context, id int) (*hn.Item, error) {
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, hn.ErrNotFound
}

func (m *memSource) GetUser(ctx context.Context, username string) (*hn.User, error) {
	if user, ok := m.users[username]; ok {
		return user, nil
	}
	return nil, hn.ErrNotFound
}

func (m *memSource) GetFeed(ctx context.Context, feed hn.Feed) ([]int, error) {
	return m.feeds[feed], nil
}

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.BuildHackerNews()
	require.NoError(t, err)
	src := testSource()
	h, err := New(func() executor.Runtime { return hnrt.NewRuntime(src) }, sch, opts...)
	require.NoError(t, err)
	return h
}

func postJSON(t *testing.T, h http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_PostQuery(t *testing.T) {
	h := newTestHandler(t)
	w := postJSON(t, h, `{"query":"{ item(id: 8863) { id title } }"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Data   map[string]any `json:"data"`
		Errors []any          `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"item": map[string]any{"id": "8863", "title": "My YC app: Dropbox"}}, res.Data)
}

func TestServer_GetQuery(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/graphql?query="+
		"%7B%20top(limit%3A%201)%20%7B%20id%20%7D%20%7D", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"top":[{"id":"8863"}]}}`, w.Body.String())
}

func TestServer_Variables(t *testing.T) {
	h := newTestHandler(t)
	w := postJSON(t, h, `{"query":"query($id: ID!) { item(id: $id) { id } }","variables":{"id":"9224"}}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"item":{"id":"9224"}}}`, w.Body.String())
}

func TestServer_Batch(t *testing.T) {
	h := newTestHandler(t)
	w := postJSON(t, h, `[{"query":"{ item(id: 8863) { id } }"},{"query":"{ user(id: \"dhouston\") { karma } }"}]`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[{"data":{"item":{"id":"8863"}}},{"data":{"user":{"karma":12345}}}]`, w.Body.String())
}

func TestServer_ParseErrors(t *testing.T) {
	h := newTestHandler(t)

	t.Run("missing query", func(t *testing.T) {
		w := postJSON(t, h, `{}`, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		w := postJSON(t, h, `{`, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/graphql", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		hLimited := newTestHandler(t, WithMaxBodyBytes(10))
		w := postJSON(t, hLimited, `{"query":"{ item(id: 8863) { id } }"}`, nil)
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestServer_GraphiQLPage(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	require.Contains(t, w.Body.String(), "GraphiQL")
}

func TestServer_CORS(t *testing.T) {
	h := newTestHandler(t, WithCORS("*"))
	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET,POST,OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestServer_Introspection(t *testing.T) {
	h := newTestHandler(t)
	w := postJSON(t, h, `{"query":"{ __schema { queryType { name } } }"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"__schema":{"queryType":{"name":"Query"}}}}`, w.Body.String())
}

const deferQuery = `{"query":"{ item(id: 8863) { id ... @defer(label: \"rest\") { title } } }"}`

func TestServer_DeferWithoutStreamingAcceptFoldsIn(t *testing.T) {
	h := newTestHandler(t)
	w := postJSON(t, h, deferQuery, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/json")
	require.JSONEq(t, `{"data":{"item":{"id":"8863","title":"My YC app: Dropbox"}}}`, w.Body.String())
}

func TestServer_DeferMultipart(t *testing.T) {
	h := newTestHandler(t)
	w := postJSON(t, h, deferQuery, map[string]string{"Accept": "multipart/mixed"})

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), `multipart/mixed; boundary="-"`)

	body := w.Body.String()
	require.True(t, strings.HasSuffix(body, "\r\n-----\r\n"), "missing closing delimiter: %q", body)

	chunks := multipartChunks(t, body)
	require.Len(t, chunks, 3)

	require.JSONEq(t, `{"data":{"item":{"id":"8863"}},"hasNext":true}`, chunks[0])
	require.JSONEq(t, `{"data":{"title":"My YC app: Dropbox"},"path":["item"],"label":"rest","hasNext":true}`, chunks[1])
	require.JSONEq(t, `{"hasNext":false}`, chunks[2])
}

func TestServer_DeferEventStream(t *testing.T) {
	h := newTestHandler(t)
	w := postJSON(t, h, deferQuery, map[string]string{"Accept": "text/event-stream"})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var chunks []string
	for _, line := range strings.Split(w.Body.String(), "\n") {
		if strings.HasPrefix(line, "data: ") {
			chunks = append(chunks, strings.TrimPrefix(line, "data: "))
		}
	}
	require.Len(t, chunks, 3)
	require.JSONEq(t, `{"data":{"item":{"id":"8863"}},"hasNext":true}`, chunks[0])
	require.JSONEq(t, `{"data":{"title":"My YC app: Dropbox"},"path":["item"],"label":"rest","hasNext":true}`, chunks[1])
	require.JSONEq(t, `{"hasNext":false}`, chunks[2])
}

func TestServer_DeferCancelledContextStopsStream(t *testing.T) {
	h := newTestHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(deferQuery)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.NotContains(t, w.Body.String(), `data: {"hasNext":false}`)
}

// multipartChunks splits a boundary "-" body into its JSON payloads.
func multipartChunks(t *testing.T, body string) []string {
	t.Helper()
	var chunks []string
	parts := strings.Split(body, "\r\n---\r\n")
	for _, p := range parts {
		if p == "" || strings.HasPrefix(p, "--") {
			continue
		}
		idx := strings.Index(p, "\r\n\r\n")
		require.GreaterOrEqual(t, idx, 0, "malformed part: %q", p)
		payload := p[idx+4:]
		payload = strings.TrimSuffix(payload, "\r\n-----\r\n")
		chunks = append(chunks, payload)
	}
	return chunks
}
