package wserv

import (
	"errors"

	"github.com/adityamahendrap/wserv/internal/h1"
)

type (
	// Handler produces the response for one request.
	Handler = h1.Handler
	// HandlerFunc adapts a function to Handler.
	HandlerFunc = h1.HandlerFunc
	// Request is a parsed request head plus its body stream.
	Request = h1.Request
	// Response is a status, header lines and a body of known length.
	Response = h1.Response
	// Producer yields a body in chunks.
	Producer = h1.Producer
	// MemoryBody is a Producer over a byte slice.
	MemoryBody = h1.MemoryBody
	// HTTPError is an error rendered to the peer with its status code.
	HTTPError = h1.StatusError
)

// NewHTTPError returns an error answered with code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return h1.NewStatusError(code, message)
}

// NewMemoryBody returns a Producer for data.
func NewMemoryBody(data []byte) *MemoryBody {
	return h1.NewMemoryBody(data)
}

// Text returns a response with an in-memory body.
func Text(status int, body string) *Response {
	return h1.Text(status, body)
}

// ReadAll collects the remainder of a body.
func ReadAll(p Producer) ([]byte, error) {
	return h1.ReadAll(p)
}

// Middleware is a function that wraps a Handler with additional functionality.
type Middleware func(Handler) Handler

// Chain combines multiple middlewares into a single middleware.
func Chain(middlewares ...Middleware) Middleware {
	return func(final Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// statusOf returns the status a handler outcome will be answered with.
func statusOf(resp *Response, err error) int {
	if err != nil {
		var he *HTTPError
		if errors.As(err, &he) {
			return he.Code
		}
		return 500
	}
	if resp == nil {
		return 500
	}
	return resp.Status
}
