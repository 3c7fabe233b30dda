package scout

import (
	"context"
	"net/http"
	"strconv"
)

// RequestContext resolves pagination defaults from the ambient request.
type RequestContext interface {
	// CurrentPage returns the page requested under pageName, or 1.
	CurrentPage(ctx context.Context, pageName string) int

	// CurrentPath returns the path page links are built on.
	CurrentPath(ctx context.Context) string
}

type requestKey struct{}

// WithRequest stores r in ctx for HTTPRequestContext.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

// RequestFrom returns the request stored by WithRequest, if any.
func RequestFrom(ctx context.Context) (*http.Request, bool) {
	r, ok := ctx.Value(requestKey{}).(*http.Request)
	return r, ok && r != nil
}

// HTTPRequestContext reads the page and path from the *http.Request stored
// in the context. Without a request it reports page 1 and path "/".
type HTTPRequestContext struct{}

// CurrentPage implements RequestContext. Values that are not positive
// integers resolve to 1.
func (HTTPRequestContext) CurrentPage(ctx context.Context, pageName string) int {
	r, ok := RequestFrom(ctx)
	if !ok || r.URL == nil {
		return 1
	}
	page, err := strconv.Atoi(r.URL.Query().Get(pageName))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// CurrentPath implements RequestContext. It returns the absolute URL
// without query string when the host is known.
func (HTTPRequestContext) CurrentPath(ctx context.Context) string {
	r, ok := RequestFrom(ctx)
	if !ok || r.URL == nil {
		return "/"
	}
	path := r.URL.Path
	if path == "" {
		path = "/"
	}
	if r.Host == "" {
		return path
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}

// FixedRequest is a RequestContext with a known page and path, for callers
// that are not serving an *http.Request (CLI, tool servers, other HTTP stacks).
type FixedRequest struct {
	Page int
	Path string
}

// CurrentPage implements RequestContext.
func (f FixedRequest) CurrentPage(context.Context, string) int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}

// CurrentPath implements RequestContext.
func (f FixedRequest) CurrentPath(context.Context) string {
	if f.Path == "" {
		return "/"
	}
	return f.Path
}
