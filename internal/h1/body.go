package h1

import (
	"github.com/adityamahendrap/wserv/internal/conn"
)

// Producer yields a body in chunks. Len is known up front; Next returns an
// empty chunk once the body is exhausted, and keeps doing so.
type Producer interface {
	Len() int64
	Next() ([]byte, error)
}

// ConnBody streams a request body of declared length from the connection,
// serving buffered bytes first and pulling more from the peer as needed.
type ConnBody struct {
	c         *conn.Conn
	length    int64
	remaining int64
}

// NewConnBody returns a producer for the next length bytes of c.
func NewConnBody(c *conn.Conn, length int64) *ConnBody {
	return &ConnBody{c: c, length: length, remaining: length}
}

// Len implements Producer.
func (b *ConnBody) Len() int64 { return b.length }

// Remaining returns the number of body bytes not yet yielded.
func (b *ConnBody) Remaining() int64 { return b.remaining }

// Next implements Producer. A peer that closes before supplying the declared
// length yields conn.ErrUnexpectedEOF.
func (b *ConnBody) Next() ([]byte, error) {
	if b.remaining == 0 {
		return nil, nil
	}

	buf := b.c.Buffer()
	if buf.Len() == 0 {
		n, err := b.c.Fill()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, conn.ErrUnexpectedEOF
		}
	}

	take := min(int64(buf.Len()), b.remaining)
	out := make([]byte, take)
	copy(out, buf.Bytes())
	buf.Consume(int(take))
	b.remaining -= take
	return out, nil
}

// MemoryBody yields a fixed byte slice once.
type MemoryBody struct {
	data []byte
	done bool
}

// NewMemoryBody returns a producer for data.
func NewMemoryBody(data []byte) *MemoryBody {
	return &MemoryBody{data: data}
}

// Len implements Producer.
func (b *MemoryBody) Len() int64 { return int64(len(b.data)) }

// Next implements Producer.
func (b *MemoryBody) Next() ([]byte, error) {
	if b.done {
		return nil, nil
	}
	b.done = true
	return b.data, nil
}

// Drain reads p until it is exhausted, discarding the bytes.
func Drain(p Producer) error {
	for {
		chunk, err := p.Next()
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
	}
}

// maxPrealloc bounds the allocation ReadAll makes from a declared length.
const maxPrealloc = 64 << 10

// ReadAll collects the remainder of p.
func ReadAll(p Producer) ([]byte, error) {
	out := make([]byte, 0, min(max(p.Len(), 0), maxPrealloc))
	for {
		chunk, err := p.Next()
		if err != nil {
			return out, err
		}
		if len(chunk) == 0 {
			return out, nil
		}
		out = append(out, chunk...)
	}
}

// bodyAllowed reports whether method may carry a request body.
func bodyAllowed(method string) bool {
	return method == "POST" || method == "PUT"
}

// resolveBody decides how the body of req is framed and returns its reader.
func resolveBody(c *conn.Conn, req *Request) (*ConnBody, error) {
	length := int64(-1)
	if v, ok := req.Header("Content-Length"); ok {
		n, ok := parseContentLength(v)
		if !ok {
			return nil, ErrBadContentLength
		}
		length = n
	}

	te, _ := req.Header("Transfer-Encoding")
	chunked := string(te) == "chunked"

	allowed := bodyAllowed(req.Method)
	if !allowed && (length > 0 || chunked) {
		return nil, ErrBodyNotAllowed
	}
	if !allowed {
		length = 0
	}

	switch {
	case length >= 0:
		return NewConnBody(c, length), nil
	case chunked:
		return nil, ErrChunkedUnsupported
	default:
		return nil, ErrLengthRequired
	}
}
