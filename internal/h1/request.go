package h1

import (
	"bytes"
	"net"
)

// Request is a parsed request head plus the stream of its body.
//
// Header lines are kept exactly as received ("Name: value", without CRLF), in
// order, with no deduplication or case normalization.
type Request struct {
	Method  string
	URI     string
	Version string // "1.0" or "1.1"
	Headers [][]byte
	Body    Producer

	RemoteAddr net.Addr
	ConnID     string
}

// Header returns the value of the first header line whose name is exactly
// name. The comparison is case-sensitive.
func (r *Request) Header(name string) ([]byte, bool) {
	return fieldGet(r.Headers, name)
}

// HeaderString is Header returning a string.
func (r *Request) HeaderString(name string) string {
	v, _ := r.Header(name)
	return string(v)
}

// fieldGet finds the first line named name and returns its trimmed value.
func fieldGet(lines [][]byte, name string) ([]byte, bool) {
	for _, line := range lines {
		if len(line) <= len(name) || line[len(name)] != ':' {
			continue
		}
		if string(line[:len(name)]) != name {
			continue
		}
		return bytes.Trim(line[len(name)+1:], " \t"), true
	}
	return nil, false
}
