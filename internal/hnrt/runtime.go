// Package hnrt implements executor.Runtime over the Hacker News item store:
// synchronous projections off fetched payloads, batched asynchronous
// resolvers fanning out over a request-scoped deduplicating loader, variant
// classification for the Content interface, and lazy author projection.
package hnrt

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	executor "github.com/hnql/hnql/internal/executor"
	hn "github.com/hnql/hnql/internal/hn"
)

// batchConcurrency caps concurrent upstream calls per fan-out.
const batchConcurrency = 16

// Runtime resolves one request. Its loader memoizes every upstream call for
// the request's lifetime, so construct a fresh Runtime per request.
type Runtime struct {
	loader *Loader
}

func NewRuntime(source Source) *Runtime {
	return &Runtime{loader: NewLoader(source)}
}

// ResolveSync projects a field straight off the already-fetched source value.
func (r *Runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	switch objectType {
	case "Story", "Ask", "Job", "Comment":
		item, ok := source.(*hn.Item)
		if !ok {
			return nil, fmt.Errorf("expected item source for %s.%s, got %T", objectType, field, source)
		}
		return resolveItemField(objectType, field, item)
	case "User":
		return resolveUserField(field, source)
	}
	return nil, fmt.Errorf("no resolver for %s.%s", objectType, field)
}

func resolveItemField(objectType, field string, item *hn.Item) (any, error) {
	switch field {
	case "id":
		return strconv.Itoa(item.ID), nil
	case "type":
		typeName, err := Classify(item)
		if err != nil {
			return nil, err
		}
		return typeEnum(typeName), nil
	case "time":
		return item.Time, nil
	case "title":
		return optString(item.Title), nil
	case "text":
		return optString(item.Text), nil
	case "url":
		if objectType == "Story" {
			return item.URL, nil
		}
		return optString(item.URL), nil
	case "score":
		return item.Score, nil
	case "descendants":
		return item.Descendants, nil
	case "hasReplies":
		return len(item.Kids) > 0, nil
	}
	return nil, fmt.Errorf("no resolver for %s.%s", objectType, field)
}

func resolveUserField(field string, source any) (any, error) {
	switch s := source.(type) {
	case hn.UserRef:
		switch field {
		case "id":
			return s.ID, nil
		case "username":
			return s.Username, nil
		case "created", "karma", "about":
			// A stub carries identity only; the projector guarantees these
			// fields trigger a full fetch instead.
			return nil, nil
		}
	case *hn.User:
		switch field {
		case "id", "username":
			return s.ID, nil
		case "created":
			return s.Created, nil
		case "karma":
			return s.Karma, nil
		case "about":
			return optString(s.About), nil
		}
	default:
		return nil, fmt.Errorf("expected user source for User.%s, got %T", field, source)
	}
	return nil, fmt.Errorf("no resolver for User.%s", field)
}

// BatchResolveAsync resolves one depth's fetch-backed fields concurrently.
// Results are positional; errors stay per-task so one failed fetch never
// poisons its batch siblings.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			value, err := r.resolveAsync(ctx, task)
			results[i] = executor.AsyncResolveResult{Value: value, Error: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// ResolveType classifies a raw item into its concrete Content variant.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	item, ok := value.(*hn.Item)
	if !ok {
		return "", fmt.Errorf("cannot resolve %s type for %T", abstractType, value)
	}
	return Classify(item)
}

// SerializeLeafValue passes values through; projections already produce
// JSON-safe Go values.
func (r *Runtime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	return value, nil
}

func (r *Runtime) resolveAsync(ctx context.Context, task executor.AsyncResolveTask) (any, error) {
	if task.ObjectType == "Query" {
		return r.resolveQueryField(ctx, task)
	}

	if task.ObjectType == "User" {
		return r.resolveUserListField(ctx, task)
	}

	item, ok := task.Source.(*hn.Item)
	if !ok {
		return nil, fmt.Errorf("expected item source for %s.%s, got %T", task.ObjectType, task.Field, task.Source)
	}

	switch task.Field {
	case "by":
		return r.resolveAuthor(ctx, item, task.Selected)
	case "parent":
		if item.Parent == 0 {
			return nil, nil
		}
		parent, err := r.loader.Item(ctx, item.Parent)
		if errors.Is(err, hn.ErrNotFound) {
			return nil, nil
		}
		return parent, err
	case "kids":
		ids := limitIDs(item.Kids, task.Args)
		return r.fetchItems(ctx, ids, keepNotDeleted)
	case "comments":
		ids := limitIDs(item.Kids, task.Args)
		return r.fetchItems(ctx, ids, keepComments)
	}
	return nil, fmt.Errorf("no resolver for %s.%s", task.ObjectType, task.Field)
}

func (r *Runtime) resolveQueryField(ctx context.Context, task executor.AsyncResolveTask) (any, error) {
	switch task.Field {
	case "item":
		id, err := idArg(task.Args)
		if err != nil {
			return nil, err
		}
		item, err := r.loader.Item(ctx, id)
		if errors.Is(err, hn.ErrNotFound) {
			return nil, nil
		}
		return item, err
	case "user":
		username, _ := task.Args["id"].(string)
		user, err := r.loader.User(ctx, username)
		if errors.Is(err, hn.ErrNotFound) {
			return nil, nil
		}
		return user, err
	case "top", "topStories":
		return r.resolveFeed(ctx, hn.FeedTop, task.Args)
	case "new", "newStories":
		return r.resolveFeed(ctx, hn.FeedNew, task.Args)
	case "best", "bestStories":
		return r.resolveFeed(ctx, hn.FeedBest, task.Args)
	}
	return nil, fmt.Errorf("no resolver for Query.%s", task.Field)
}

func (r *Runtime) resolveUserListField(ctx context.Context, task executor.AsyncResolveTask) (any, error) {
	user, ok := task.Source.(*hn.User)
	if !ok {
		return nil, fmt.Errorf("expected user source for User.%s, got %T", task.Field, task.Source)
	}
	ids := limitIDs(user.Submitted, task.Args)
	switch task.Field {
	case "submitted":
		return r.fetchItems(ctx, ids, keepAll)
	case "stories":
		return r.fetchItems(ctx, ids, keepRawStories)
	case "comments":
		return r.fetchItems(ctx, ids, keepComments)
	}
	return nil, fmt.Errorf("no resolver for User.%s", task.Field)
}

// resolveAuthor implements lazy author projection: identity-only selections
// get a stub synthesized from the item's by value, anything more costs one
// deduplicated profile fetch.
func (r *Runtime) resolveAuthor(ctx context.Context, item *hn.Item, selected []string) (any, error) {
	if !NeedsUserFetch(selected) {
		return hn.NewUserRef(item.By), nil
	}
	if item.By == "" {
		return nil, nil
	}
	user, err := r.loader.User(ctx, item.By)
	if errors.Is(err, hn.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// resolveFeed truncates a ranked id list to the limit, then resolves the
// survivors. Ids the upstream no longer knows just shrink the list.
func (r *Runtime) resolveFeed(ctx context.Context, feed hn.Feed, args map[string]any) (any, error) {
	ids, err := r.loader.Feed(ctx, feed)
	if err != nil {
		return nil, err
	}
	return r.fetchItems(ctx, limitIDs(ids, args), keepAll)
}

// Element filters. Not-found ids are always dropped; everything else is the
// historical per-field asymmetry.
func keepAll(item *hn.Item) bool        { return true }
func keepNotDeleted(item *hn.Item) bool { return !item.Deleted }
func keepComments(item *hn.Item) bool   { return item.Type == "comment" && !item.Deleted }
func keepRawStories(item *hn.Item) bool { return item.Type == "story" }

// fetchItems resolves ids concurrently through the loader, preserving id
// order. Not-found ids are dropped silently; a transport error fails the
// whole list.
func (r *Runtime) fetchItems(ctx context.Context, ids []int, keep func(*hn.Item) bool) ([]any, error) {
	slots := make([]*hn.Item, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			item, err := r.loader.Item(gctx, id)
			if errors.Is(err, hn.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			slots[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]any, 0, len(ids))
	for _, item := range slots {
		if item == nil || !keep(item) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// limitIDs applies the optional limit argument to an id list before any
// fetching happens.
func limitIDs(ids []int, args map[string]any) []int {
	v, ok := args["limit"]
	if !ok || v == nil {
		return ids
	}
	n, ok := v.(int64)
	if !ok {
		return ids
	}
	if n < 0 {
		n = 0
	}
	if int(n) < len(ids) {
		return ids[:n]
	}
	return ids
}

// idArg parses the ID! argument, which arrives as a decimal string.
func idArg(args map[string]any) (int, error) {
	s, ok := args["id"].(string)
	if !ok {
		return 0, fmt.Errorf("missing id argument")
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q", s)
	}
	return id, nil
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
