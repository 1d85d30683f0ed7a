package wserv

import (
	"context"
	"sync"
)

// ErrNotFound answers requests no route matches when no default is set.
var ErrNotFound = NewHTTPError(404, "Not Found")

// Router dispatches on the exact request URI. Routes and middleware are meant
// to be registered before the server starts.
type Router struct {
	routes      map[string]Handler
	fallback    Handler
	middlewares []Middleware

	once    sync.Once
	handler Handler
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]Handler)}
}

// Handle registers h for requests whose URI is exactly uri.
func (r *Router) Handle(uri string, h Handler) {
	r.routes[uri] = h
}

// HandleFunc registers a function for uri.
func (r *Router) HandleFunc(uri string, f func(ctx context.Context, req *Request) (*Response, error)) {
	r.Handle(uri, HandlerFunc(f))
}

// Default sets the handler for URIs without a route.
func (r *Router) Default(h Handler) {
	r.fallback = h
}

// Use adds middleware applied to every request, outermost first.
func (r *Router) Use(middlewares ...Middleware) {
	r.middlewares = append(r.middlewares, middlewares...)
}

// ServeHTTP1 implements Handler.
func (r *Router) ServeHTTP1(ctx context.Context, req *Request) (*Response, error) {
	r.once.Do(func() {
		r.handler = Chain(r.middlewares...)(HandlerFunc(r.dispatch))
	})
	return r.handler.ServeHTTP1(ctx, req)
}

func (r *Router) dispatch(ctx context.Context, req *Request) (*Response, error) {
	if h, ok := r.routes[req.URI]; ok {
		return h.ServeHTTP1(ctx, req)
	}
	if r.fallback != nil {
		return r.fallback.ServeHTTP1(ctx, req)
	}
	return nil, ErrNotFound
}
