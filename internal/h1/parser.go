// Package h1 implements HTTP/1.x header framing over a connection's receive
// buffer, length-bounded request bodies and response writing.
package h1

import (
	"bytes"

	"github.com/adityamahendrap/wserv/internal/buffer"
)

// DefaultMaxHeaderBytes caps the header block when Framer.MaxHeaderBytes is zero.
const DefaultMaxHeaderBytes = 8192

var headerTerminator = []byte("\r\n\r\n")

// Framer extracts request heads. The body is left in the buffer and read
// through the request's Producer.
type Framer struct {
	MaxHeaderBytes int
}

// Name implements conn.Framer.
func (Framer) Name() string { return "http" }

// Extract implements conn.Framer. It fails with ErrHeaderTooLarge once the
// buffer holds MaxHeaderBytes without a complete header block.
func (f Framer) Extract(buf *buffer.Accumulator) (*Request, bool, error) {
	data := buf.Bytes()
	idx := bytes.Index(data, headerTerminator)
	if idx < 0 {
		limit := f.MaxHeaderBytes
		if limit <= 0 {
			limit = DefaultMaxHeaderBytes
		}
		if buf.Len() >= limit {
			return nil, false, ErrHeaderTooLarge
		}
		return nil, false, nil
	}

	req, err := parseHead(data[:idx])
	if err != nil {
		return nil, false, err
	}
	buf.Consume(idx + len(headerTerminator))
	return req, true, nil
}

// parseHead parses the header block without its terminating blank line.
func parseHead(head []byte) (*Request, error) {
	line, rest := nextLine(head)

	req := &Request{}
	if err := parseRequestLine(req, line); err != nil {
		return nil, err
	}

	for rest != nil {
		line, rest = nextLine(rest)
		if !validField(line) {
			return nil, ErrBadField
		}
		req.Headers = append(req.Headers, append([]byte(nil), line...))
	}
	return req, nil
}

// nextLine splits at the first '\n' and drops a trailing '\r' from the line.
// rest is nil when there is no further line.
func nextLine(b []byte) (line, rest []byte) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		line = b
	} else {
		line, rest = b[:i], b[i+1:]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, rest
}

// parseRequestLine parses METHOD SP URI SP VERSION.
func parseRequestLine(req *Request, line []byte) error {
	parts := bytes.Split(line, []byte(" "))
	if len(parts) != 3 {
		return ErrBadRequestLine
	}
	for _, p := range parts {
		if len(p) == 0 {
			return ErrBadRequestLine
		}
	}

	switch string(parts[2]) {
	case "HTTP/1.1":
		req.Version = "1.1"
	case "HTTP/1.0":
		req.Version = "1.0"
	default:
		return ErrBadVersion
	}
	req.Method = string(parts[0])
	req.URI = string(parts[1])
	return nil
}

// validField reports whether line looks like "name: value": a non-empty name
// without whitespace or colons, and a value with at least one non-whitespace byte.
func validField(line []byte) bool {
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return false
	}
	for _, c := range line[:colon] {
		if isSpace(c) {
			return false
		}
	}
	for _, c := range line[colon+1:] {
		if !isSpace(c) {
			return true
		}
	}
	return false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

// parseContentLength parses a base-10 length made only of ASCII digits.
func parseContentLength(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var n int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int64(c - '0')
		if n > (1<<63-1-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return n, true
}
