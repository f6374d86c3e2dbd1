// Package hn is the Hacker News item-store client: one id in, one payload
// out, over the Firebase v0 REST API. It has no batching and no caching;
// per-request deduplication is the resolver runtime's job.
package hn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hnql/hnql/internal/eventbus"
	"github.com/hnql/hnql/internal/events"
)

// DefaultBaseURL is the public Firebase endpoint for the v0 API.
const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

// ErrNotFound is returned when the upstream has no item or user for an id.
// The API signals this with a literal JSON null body and status 200.
var ErrNotFound = errors.New("hn: not found")

// Feed names the three ranked id lists the upstream exposes.
type Feed string

const (
	FeedTop  Feed = "topstories"
	FeedNew  Feed = "newstories"
	FeedBest Feed = "beststories"
)

// Client fetches items, users and ranked id lists.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithBaseURL overrides the upstream base URL (used by tests and mirrors).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithRateLimit throttles upstream calls to rps requests per second with the
// given burst. Zero rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewClient creates a Client for the public API unless options say otherwise.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetItem fetches a single item by id.
func (c *Client) GetItem(ctx context.Context, id int) (*Item, error) {
	var item Item
	if err := c.get(ctx, fmt.Sprintf("item/%d", id), "item", &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetUser fetches a user profile by username.
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.get(ctx, "user/"+username, "user", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetFeed fetches one of the ranked id lists. The upstream caps these at a
// few hundred ids; truncation to the caller's limit happens downstream.
func (c *Client) GetFeed(ctx context.Context, feed Feed) ([]int, error) {
	var ids []int
	if err := c.get(ctx, string(feed), "feed", &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Client) get(ctx context.Context, path, kind string, v any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	url := fmt.Sprintf("%s/%s.json", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	eventbus.Publish(ctx, events.FetchStart{Kind: kind, Key: path})
	err = c.do(req, v)
	eventbus.Publish(ctx, events.FetchFinish{
		Kind:     kind,
		Key:      path,
		NotFound: errors.Is(err, ErrNotFound),
		Err:      err,
		Duration: time.Since(start),
	})
	return err
}

func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hn: request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hn: unexpected status %d for %s", resp.StatusCode, req.URL.Path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("hn: read body: %w", err)
	}
	// Missing ids come back as a 200 with a literal null body.
	if isJSONNull(body) {
		return ErrNotFound
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("hn: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func isJSONNull(body []byte) bool {
	i := 0
	for i < len(body) && (body[i] == ' ' || body[i] == '\t' || body[i] == '\n' || body[i] == '\r') {
		i++
	}
	return len(body[i:]) >= 4 && string(body[i:i+4]) == "null"
}
