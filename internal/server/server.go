// Package server is the GraphQL HTTP surface: request parsing (GET, POST,
// batched POST), plain JSON responses, and incremental delivery of @defer
// patches over multipart/mixed or text/event-stream framing.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	eventbus "github.com/hnql/hnql/internal/eventbus"
	events "github.com/hnql/hnql/internal/events"
	executor "github.com/hnql/hnql/internal/executor"
	introspection "github.com/hnql/hnql/internal/introspection"
	language "github.com/hnql/hnql/internal/language"
	reqid "github.com/hnql/hnql/internal/reqid"
	schema "github.com/hnql/hnql/internal/schema"
)

// RuntimeFactory builds a fresh request-scoped runtime. Fetch deduplication
// lives inside the runtime, so sharing one across requests would leak results
// between them.
type RuntimeFactory func() executor.Runtime

// Handler is an http.Handler that serves a GraphQL endpoint.
type Handler struct {
	newRuntime RuntimeFactory
	schema     *schema.Schema
	opt        Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool

	// Logger receives one access log line per request. Nil disables logging.
	Logger *slog.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option    { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                    { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option       { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option     { return func(o *Options) { o.CORS.AllowedOrigins = origins } }
func WithGraphiQL(enable bool) Option       { return func(o *Options) { o.GraphiQL = enable } }
func WithLogger(logger *slog.Logger) Option { return func(o *Options) { o.Logger = logger } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a GraphQL HTTP handler. The schema is extended with the
// introspection surface; each request gets a runtime from the factory,
// wrapped so __schema and __type resolve locally.
func New(newRuntime RuntimeFactory, s *schema.Schema, opts ...Option) (*Handler, error) {
	op := Options{Timeout: 10 * time.Second, GraphiQL: true}
	for _, f := range opts {
		f(&op)
	}
	extended := introspection.Extend(s)
	factory := func() executor.Runtime {
		return introspection.Wrap(newRuntime(), extended)
	}
	return &Handler{newRuntime: factory, schema: extended, opt: op}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		d := time.Since(start)
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: d})
		if h.opt.Logger != nil {
			h.opt.Logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", d),
				slog.String("request_id", rid),
			)
		}
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, errorResponse("method not allowed"), h.opt.Pretty)
		return
	}

	// Serve the GraphiQL IDE when enabled and the client expects HTML.
	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	req, batch, perr := parseRequest(r, h.opt.MaxBodyBytes)
	if perr != "" {
		status = http.StatusBadRequest
		if perr == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse(perr), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if batch != nil {
		// Batched requests always use the plain JSON path; each entry gets
		// its own runtime so deduplication stays per-operation.
		out := make([]any, len(batch))
		for i := range batch {
			out[i] = h.executeOne(ctx, batch[i])
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		writeJSON(w, status, errorResponse(err.Error()), h.opt.Pretty)
		return
	}

	if language.HasDefer(doc) {
		accept := r.Header.Get("Accept")
		switch {
		case acceptsMediaType(accept, "multipart/mixed"):
			h.serveMultipart(ctx, w, r, doc, req)
			return
		case acceptsMediaType(accept, "text/event-stream"):
			h.serveEventStream(ctx, w, r, doc, req)
			return
		}
		// No streaming-capable Accept: fall through and fold deferred data in.
	}

	writeJSON(w, status, h.execute(ctx, doc, req), h.opt.Pretty)
}

func (h *Handler) executeOne(ctx context.Context, req GraphQLRequest) any {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return errorResponse(err.Error())
	}
	return h.execute(ctx, doc, req)
}

func (h *Handler) execute(ctx context.Context, doc *language.QueryDocument, req GraphQLRequest) specResult {
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: operationType(doc, req.OperationName)})

	exec := executor.NewExecutor(h.newRuntime(), h.schema)
	result := exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)

	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: operationType(doc, req.OperationName),
		Errors:        toErrs(result.Errors),
		Duration:      time.Since(start),
	})
	return toSpecResult(result)
}

// serveMultipart streams the initial payload and each patch as parts of a
// multipart/mixed response with boundary "-", terminated by the closing
// delimiter after a final {"hasNext":false} part.
func (h *Handler) serveMultipart(ctx context.Context, w http.ResponseWriter, r *http.Request, doc *language.QueryDocument, req GraphQLRequest) {
	w.Header().Set("Content-Type", `multipart/mixed; boundary="-"`)
	w.WriteHeader(http.StatusOK)

	writeChunk := func(v any) bool {
		body, err := json.Marshal(v)
		if err != nil {
			return false
		}
		var b strings.Builder
		b.WriteString("\r\n---\r\n")
		b.WriteString("Content-Type: application/json; charset=utf-8\r\n")
		b.WriteString("Content-Length: ")
		b.WriteString(strconv.Itoa(len(body)))
		b.WriteString("\r\n\r\n")
		b.Write(body)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return false
		}
		flush(w)
		return true
	}

	h.streamIncremental(ctx, doc, req, writeChunk, func() {
		_, _ = io.WriteString(w, "\r\n-----\r\n")
		flush(w)
	})
}

// serveEventStream streams chunks as server-sent events, one data line per
// chunk, ending with a {"hasNext":false} event.
func (h *Handler) serveEventStream(ctx context.Context, w http.ResponseWriter, r *http.Request, doc *language.QueryDocument, req GraphQLRequest) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeChunk := func(v any) bool {
		body, err := json.Marshal(v)
		if err != nil {
			return false
		}
		if _, err := io.WriteString(w, "data: "+string(body)+"\n\n"); err != nil {
			return false
		}
		flush(w)
		return true
	}

	h.streamIncremental(ctx, doc, req, writeChunk, func() {})
}

// streamIncremental runs the incremental executor and drives one of the
// framings: every chunk before the last carries hasNext:true, and a terminal
// {"hasNext":false} chunk closes the logical stream. Cancellation stops the
// stream without a terminal chunk.
func (h *Handler) streamIncremental(ctx context.Context, doc *language.QueryDocument, req GraphQLRequest, writeChunk func(any) bool, closeStream func()) {
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: operationType(doc, req.OperationName),
		Incremental:   true,
	})

	exec := executor.NewExecutor(h.newRuntime(), h.schema)
	res := exec.ExecuteRequestIncremental(ctx, doc, req.OperationName, req.Variables, nil)

	var allErrs []executor.GraphQLError
	allErrs = append(allErrs, res.Errors...)

	initial := map[string]any{"data": res.Data, "hasNext": res.HasNext}
	if len(res.Errors) > 0 {
		initial["errors"] = toSpecErrors(res.Errors)
	}
	ok := writeChunk(initial)

	patches := 0
	if ok && res.HasNext {
		for p := range res.Patches {
			if ctx.Err() != nil {
				break
			}
			patches++
			allErrs = append(allErrs, p.Errors...)
			chunk := map[string]any{
				"data":    p.Data,
				"path":    pathToJSON(p.Path),
				"hasNext": true,
			}
			if p.Label != "" {
				chunk["label"] = p.Label
			}
			if len(p.Errors) > 0 {
				chunk["errors"] = toSpecErrors(p.Errors)
			}
			if !writeChunk(chunk) {
				break
			}
		}
		if ctx.Err() == nil {
			writeChunk(map[string]any{"hasNext": false})
		}
	}
	if ctx.Err() == nil {
		closeStream()
	}

	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: operationType(doc, req.OperationName),
		Incremental:   true,
		Patches:       patches,
		Errors:        toErrs(allErrs),
		Duration:      time.Since(start),
	})
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, string) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, "missing 'query'"
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, "invalid 'variables' JSON"
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, ""
	}

	ct := r.Header.Get("Content-Type")
	if ct == "" || ct == "application/json" || strings.HasPrefix(ct, "application/json;") {
		reader := io.Reader(r.Body)
		if maxBody > 0 {
			reader = io.LimitReader(r.Body, maxBody+1)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return GraphQLRequest{}, nil, "failed to read body"
		}
		defer r.Body.Close()
		if maxBody > 0 && int64(len(body)) > maxBody {
			return GraphQLRequest{}, nil, errBodyTooLargeMessage
		}

		// Array means a batch.
		var arr []GraphQLRequest
		if len(body) > 0 && body[0] == '[' {
			if err := json.Unmarshal(body, &arr); err != nil {
				return GraphQLRequest{}, nil, "invalid JSON"
			}
			if len(arr) == 0 {
				return GraphQLRequest{}, nil, "empty batch"
			}
			return GraphQLRequest{}, arr, ""
		}
		var req GraphQLRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return GraphQLRequest{}, nil, "invalid JSON"
		}
		if req.Query == "" {
			return GraphQLRequest{}, nil, "missing 'query'"
		}
		if req.Variables == nil {
			req.Variables = map[string]any{}
		}
		return req, nil, ""
	}

	return GraphQLRequest{}, nil, "unsupported Content-Type"
}

// ------------------ Response formatting ------------------

type specError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type specResult struct {
	Data   any         `json:"data"`
	Errors []specError `json:"errors,omitempty"`
}

func errorResponse(message string) specResult {
	return specResult{Errors: []specError{{Message: message}}}
}

func toSpecResult(res *executor.ExecutionResult) specResult {
	return specResult{Data: res.Data, Errors: toSpecErrors(res.Errors)}
}

func toSpecErrors(errs []executor.GraphQLError) []specError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]specError, len(errs))
	for i, e := range errs {
		out[i] = specError{Message: e.Message, Path: pathToJSON(e.Path), Extensions: e.Extensions}
	}
	return out
}

func pathToJSON(p executor.Path) []any {
	if len(p) == 0 {
		return nil
	}
	out := make([]any, len(p))
	for i, e := range p {
		out[i] = e
	}
	return out
}

func toErrs(errs []executor.GraphQLError) []error {
	out := make([]error, len(errs))
	for i := range errs {
		out[i] = errs[i]
	}
	return out
}

func operationType(doc *language.QueryDocument, name string) string {
	op := doc.Operations.ForName(name)
	if op == nil && len(doc.Operations) == 1 {
		op = doc.Operations[0]
	}
	if op == nil {
		return ""
	}
	return string(op.Operation)
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func acceptsHTML(accept string) bool {
	if accept == "" {
		return false
	}
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text/html") || p == "*/*" {
			return true
		}
	}
	return false
}

// acceptsMediaType reports whether the Accept header names the media type
// explicitly (a bare */* does not opt in to a streaming framing).
func acceptsMediaType(accept, mediaType string) bool {
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, mediaType) {
			return true
		}
	}
	return false
}
