package h1

import (
	"errors"
	"strconv"
)

// StatusError is a request-level failure that maps to an HTTP status. It is
// rendered to the peer as "<Message>\n" when nothing of a response has been
// sent yet.
type StatusError struct {
	Code    int
	Message string
}

// NewStatusError returns a StatusError with the given code and message.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}

func (e *StatusError) Error() string {
	return strconv.Itoa(e.Code) + " " + e.Message
}

// Kind labels the error class.
func (e *StatusError) Kind() string {
	switch e.Code {
	case 400:
		return "bad_request"
	case 413:
		return "header_too_large"
	case 501:
		return "not_implemented"
	default:
		return "status_" + strconv.Itoa(e.Code)
	}
}

// Request-level errors surfaced by the framer and body resolution.
var (
	ErrHeaderTooLarge     = NewStatusError(413, "header is too large")
	ErrBadRequestLine     = NewStatusError(400, "Bad request line")
	ErrBadVersion         = NewStatusError(400, "Bad version")
	ErrBadField           = NewStatusError(400, "Bad field")
	ErrBadContentLength   = NewStatusError(400, "Bad Content-Length")
	ErrBodyNotAllowed     = NewStatusError(400, "HTTP body not allowed.")
	ErrChunkedUnsupported = NewStatusError(501, "chunked encoding is not supported")
	ErrLengthRequired     = NewStatusError(501, "body without Content-Length is not supported")

	errUnexpectedEOF = NewStatusError(400, "Unexpected EOF.")
	errInternal      = NewStatusError(500, "Internal Server Error")
)

// Response invariants. These are programming errors in a handler and carry no
// status; the connection is closed without an error response.
var (
	ErrUnknownLength      = errors.New("h1: response body length unknown")
	ErrContentLengthSet   = errors.New("h1: Content-Length is set by the response writer")
	ErrBodyLengthMismatch = errors.New("h1: response body does not match its declared length")
)
