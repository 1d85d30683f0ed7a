package wserv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newRequest(method, uri string, headers ...string) *Request {
	req := &Request{Method: method, URI: uri, Version: "1.1", Body: NewMemoryBody(nil)}
	for _, h := range headers {
		req.Headers = append(req.Headers, []byte(h))
	}
	return req
}

func named(name string) Handler {
	return HandlerFunc(func(context.Context, *Request) (*Response, error) {
		return Text(200, name), nil
	})
}

func body(t *testing.T, resp *Response) string {
	t.Helper()
	b, err := ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestRouter_ExactMatch(t *testing.T) {
	r := NewRouter()
	r.Handle("/a", named("a"))
	r.Handle("/a/b", named("ab"))

	resp, err := r.ServeHTTP1(context.Background(), newRequest("GET", "/a"))
	require.NoError(t, err)
	require.Equal(t, "a", body(t, resp))

	resp, err = r.ServeHTTP1(context.Background(), newRequest("POST", "/a/b"))
	require.NoError(t, err)
	require.Equal(t, "ab", body(t, resp))

	_, err = r.ServeHTTP1(context.Background(), newRequest("GET", "/a/"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRouter_QueryIsPartOfURI(t *testing.T) {
	r := NewRouter()
	r.Handle("/echo", named("echo"))
	r.Default(named("default"))

	resp, err := r.ServeHTTP1(context.Background(), newRequest("GET", "/echo?x=1"))
	require.NoError(t, err)
	require.Equal(t, "default", body(t, resp))
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
				order = append(order, name)
				return next.ServeHTTP1(ctx, req)
			})
		}
	}

	r := NewRouter()
	r.Use(mw("first"), mw("second"))
	r.Default(named("x"))

	_, err := r.ServeHTTP1(context.Background(), newRequest("GET", "/"))
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, order)
}

func TestRouter_MiddlewareSeesNotFound(t *testing.T) {
	var seen error
	r := NewRouter()
	r.Use(func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next.ServeHTTP1(ctx, req)
			seen = err
			return resp, err
		})
	})

	_, err := r.ServeHTTP1(context.Background(), newRequest("GET", "/nope"))
	require.Error(t, err)
	require.True(t, errors.Is(seen, ErrNotFound))

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, 404, he.Code)
}

func TestChain(t *testing.T) {
	suffix := func(s string) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
				resp, err := next.ServeHTTP1(ctx, req)
				return resp.AddHeader("X-Via", s), err
			})
		}
	}

	h := Chain(suffix("outer"), suffix("inner"))(named("x"))
	resp, err := h.ServeHTTP1(context.Background(), newRequest("GET", "/"))
	require.NoError(t, err)
	require.Equal(t, "X-Via: inner", string(resp.Headers[0]))
	require.Equal(t, "X-Via: outer", string(resp.Headers[1]))
}
