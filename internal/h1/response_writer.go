package h1

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/adityamahendrap/wserv/internal/conn"
	"github.com/adityamahendrap/wserv/internal/date"
)

var (
	statusLine200       = []byte("HTTP/1.1 200 OK\r\n")
	headerContentLength = []byte("Content-Length: ")
	headerDate          = []byte("Date: ")
	crlf                = []byte("\r\n")

	headBufferPool = sync.Pool{
		New: func() any {
			b := make([]byte, 0, 512)
			return &b
		},
	}
)

// Response is a status, raw header lines ("Name: value") and a body whose
// length is known before the head is written. Content-Length and Date are
// added by the writer.
type Response struct {
	Status  int
	Headers [][]byte
	Body    Producer
}

// Text returns a response with an in-memory body.
func Text(status int, body string) *Response {
	return &Response{Status: status, Body: NewMemoryBody([]byte(body))}
}

// AddHeader appends a "name: value" line.
func (r *Response) AddHeader(name, value string) *Response {
	line := make([]byte, 0, len(name)+2+len(value))
	line = append(line, name...)
	line = append(line, ": "...)
	line = append(line, value...)
	r.Headers = append(r.Headers, line)
	return r
}

// Header returns the value of the first header line named exactly name.
func (r *Response) Header(name string) ([]byte, bool) {
	return fieldGet(r.Headers, name)
}

// BodyLen returns the declared body length, zero for a nil body.
func (r *Response) BodyLen() int64 {
	if r.Body == nil {
		return 0
	}
	return r.Body.Len()
}

// WriteResponse writes the head, then pumps the body until it is exhausted.
// headSent reports whether any bytes reached the connection.
func WriteResponse(c *conn.Conn, resp *Response) (headSent bool, err error) {
	body := resp.Body
	if body == nil {
		body = NewMemoryBody(nil)
	}

	length := body.Len()
	if length < 0 {
		return false, ErrUnknownLength
	}
	if _, ok := fieldGet(resp.Headers, "Content-Length"); ok {
		return false, ErrContentLengthSet
	}

	bufPtr := headBufferPool.Get().(*[]byte)
	head := appendHead((*bufPtr)[:0], resp.Status, resp.Headers, length)
	err = c.Write(head)
	*bufPtr = head[:0]
	headBufferPool.Put(bufPtr)
	if err != nil {
		return false, err
	}

	var sent int64
	for {
		chunk, err := body.Next()
		if err != nil {
			return true, err
		}
		if len(chunk) == 0 {
			break
		}
		sent += int64(len(chunk))
		if sent > length {
			return true, fmt.Errorf("%w: declared %d, produced more", ErrBodyLengthMismatch, length)
		}
		if err := c.Write(chunk); err != nil {
			return true, err
		}
	}
	if sent != length {
		return true, fmt.Errorf("%w: declared %d, produced %d", ErrBodyLengthMismatch, length, sent)
	}
	return true, nil
}

// appendHead serializes the status line and header block.
func appendHead(buf []byte, status int, headers [][]byte, length int64) []byte {
	if status == 200 {
		buf = append(buf, statusLine200...)
	} else {
		buf = append(buf, "HTTP/1.1 "...)
		buf = strconv.AppendInt(buf, int64(status), 10)
		buf = append(buf, ' ')
		buf = append(buf, statusText(status)...)
		buf = append(buf, crlf...)
	}

	for _, h := range headers {
		buf = append(buf, h...)
		buf = append(buf, crlf...)
	}

	buf = append(buf, headerDate...)
	buf = append(buf, date.Current()...)
	buf = append(buf, crlf...)

	buf = append(buf, headerContentLength...)
	buf = strconv.AppendInt(buf, length, 10)
	buf = append(buf, crlf...)

	return append(buf, crlf...)
}

// statusText returns the reason phrase for common status codes.
func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 304:
		return "Not Modified"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 413:
		return "Payload Too Large"
	case 414:
		return "URI Too Long"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	case 503:
		return "Service Unavailable"
	case 505:
		return "HTTP Version Not Supported"
	default:
		return "Unknown"
	}
}
