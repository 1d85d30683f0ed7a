package h1

import (
	"context"
	"errors"

	"github.com/adityamahendrap/wserv/internal/bridge"
	"github.com/adityamahendrap/wserv/internal/conn"
)

// Session serves HTTP/1.x requests on one connection, one at a time.
//
// Errors returned by the handler are answered with their status and the
// connection stays open for the next request. Framing and connection errors
// are answered, when possible, before the connection closes.
type Session struct {
	handler Handler
	// partial is set once a response to the current request has been started,
	// in which case no error response can be written anymore.
	partial bool
}

// NewSession returns a session dispatching to h.
func NewSession(h Handler) *Session {
	return &Session{handler: h}
}

// Handle implements conn.Session.
func (s *Session) Handle(ctx context.Context, c *conn.Conn, req *Request) (bool, error) {
	body, err := resolveBody(c, req)
	if err != nil {
		return false, err
	}
	req.Body = body
	req.RemoteAddr = c.RemoteAddr()
	req.ConnID = c.ID()

	resp, err := s.handler.ServeHTTP1(ctx, req)
	if connLevel(err) {
		return false, err
	}
	if err != nil {
		c.Logger().Debug().Err(err).Str("method", req.Method).Str("uri", req.URI).Msg("handler error")
		resp = errorResponse(err)
	} else if resp == nil {
		resp = errorResponse(errInternal)
	}

	headSent, err := WriteResponse(c, resp)
	if err != nil {
		s.partial = headSent
		return false, err
	}
	s.partial = true

	if req.Version == "1.0" {
		return false, nil
	}

	// The handler may have left part of the body unread.
	if err := Drain(body); err != nil {
		return false, err
	}
	s.partial = false
	return true, nil
}

// Fail implements conn.Session. Errors that map to a status are answered with
// a best-effort response; a failure to send it is ignored.
func (s *Session) Fail(c *conn.Conn, err error) {
	if s.partial {
		return
	}

	var se *StatusError
	switch {
	case errors.As(err, &se):
	case errors.Is(err, conn.ErrUnexpectedEOF):
		se = errUnexpectedEOF
	default:
		return
	}

	_, _ = WriteResponse(c, statusResponse(se))
}

func statusResponse(se *StatusError) *Response {
	return &Response{
		Status: se.Code,
		Body:   NewMemoryBody([]byte(se.Message + "\n")),
	}
}

// connLevel reports whether a handler error came from the connection itself,
// such as a body read that hit EOF, and so ends the loop instead of being
// rendered.
func connLevel(err error) bool {
	if err == nil {
		return false
	}
	var te *bridge.TransportError
	return errors.Is(err, conn.ErrUnexpectedEOF) || errors.As(err, &te)
}

// errorResponse turns a handler error into a response.
func errorResponse(err error) *Response {
	var se *StatusError
	if errors.As(err, &se) {
		return statusResponse(se)
	}
	return statusResponse(errInternal)
}
