package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	eventbus "github.com/hnql/hnql/internal/eventbus"
	events "github.com/hnql/hnql/internal/events"
)

func withBus(t *testing.T) *Metrics {
	t.Helper()
	eventbus.Use(eventbus.New())
	m := New()
	t.Cleanup(func() {
		m.Close()
		eventbus.Use(nil)
	})
	return m
}

func TestMetrics_HTTPFinish(t *testing.T) {
	m := withBus(t)
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)

	eventbus.Publish(context.Background(), events.HTTPFinish{Request: req, Status: 200, Duration: 5 * time.Millisecond})
	eventbus.Publish(context.Background(), events.HTTPFinish{Request: req, Status: 400, Duration: time.Millisecond})

	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "400")))
}

func TestMetrics_GraphQLFinish(t *testing.T) {
	m := withBus(t)

	eventbus.Publish(context.Background(), events.GraphQLFinish{
		OperationType: "query",
		Errors:        []error{errors.New("boom")},
		Duration:      time.Millisecond,
	})
	eventbus.Publish(context.Background(), events.GraphQLFinish{
		OperationType: "query",
		Incremental:   true,
		Patches:       3,
		Duration:      time.Millisecond,
	})

	require.Equal(t, 1.0, testutil.ToFloat64(m.gqlOperations.WithLabelValues("query", "single")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.gqlOperations.WithLabelValues("query", "incremental")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.gqlErrors))
	require.Equal(t, 3.0, testutil.ToFloat64(m.gqlPatches))
}

func TestMetrics_FetchOutcomes(t *testing.T) {
	m := withBus(t)

	eventbus.Publish(context.Background(), events.FetchFinish{Kind: "item", Key: "item/1", Duration: time.Millisecond})
	eventbus.Publish(context.Background(), events.FetchFinish{Kind: "item", Key: "item/2", NotFound: true, Err: errors.New("not found"), Duration: time.Millisecond})
	eventbus.Publish(context.Background(), events.FetchFinish{Kind: "user", Key: "user/x", Err: errors.New("timeout"), Duration: time.Millisecond})

	require.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("item", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("item", "not_found")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("user", "error")))
}

func TestMetrics_HandlerServesRegistry(t *testing.T) {
	m := withBus(t)
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	eventbus.Publish(context.Background(), events.HTTPFinish{Request: req, Status: 200, Duration: time.Millisecond})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "hnql_http_requests_total"))
}

func TestMetrics_CloseDetaches(t *testing.T) {
	m := withBus(t)
	m.Close()

	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	eventbus.Publish(context.Background(), events.HTTPFinish{Request: req, Status: 200, Duration: time.Millisecond})

	require.Equal(t, 0.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "200")))
}
