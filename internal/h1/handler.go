package h1

import "context"

// Handler produces the response for one request. The request body may be
// consumed lazily, including by returning it as the response body.
type Handler interface {
	ServeHTTP1(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// ServeHTTP1 calls f(ctx, req).
func (f HandlerFunc) ServeHTTP1(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
