package fuzzy

import (
	"bytes"
	"errors"
	"testing"

	"github.com/adityamahendrap/wserv/internal/buffer"
	"github.com/adityamahendrap/wserv/internal/h1"
)

// FuzzH1Framer fuzzes request head extraction with random inputs.
// It verifies that the framer never panics and leaves the buffer consistent.
func FuzzH1Framer(f *testing.F) {
	// Seed with valid requests
	f.Add([]byte("GET / HTTP/1.1\r\n\r\n"))
	f.Add([]byte("POST /echo HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"))
	f.Add([]byte("GET /path?query=value HTTP/1.0\r\nHost: x\r\n\r\n"))
	f.Add([]byte("GET / HTTP/1.1\nHost: x\n\r\n\r\n"))

	// Seed with some invalid inputs
	f.Add([]byte("GET /path\r\n\r\n"))
	f.Add([]byte("GET / HTTP/1.1\r\nBad Field\r\n\r\n"))
	f.Add([]byte("\r\n\r\n"))
	f.Add([]byte("GET"))
	f.Add([]byte(""))

	f.Fuzz(func(t *testing.T, data []byte) {
		var buf buffer.Accumulator
		buf.Append(data)

		framer := h1.Framer{MaxHeaderBytes: 256}
		req, ok, err := framer.Extract(&buf)

		switch {
		case err != nil:
			var se *h1.StatusError
			if !errors.As(err, &se) {
				t.Errorf("Expected a status error, got %v", err)
			}
			if buf.Len() != len(data) {
				t.Errorf("Buffer consumed on error: %d of %d left", buf.Len(), len(data))
			}
		case !ok:
			if bytes.Contains(data, []byte("\r\n\r\n")) {
				t.Errorf("Complete head not extracted: %q", data)
			}
			if len(data) >= 256 {
				t.Errorf("Oversized head not rejected: %d bytes", len(data))
			}
		default:
			if req.Version != "1.0" && req.Version != "1.1" {
				t.Errorf("Invalid version: %q", req.Version)
			}
			if req.Method == "" || req.URI == "" {
				t.Errorf("Empty method or URI in %q", data)
			}
			consumed := len(data) - buf.Len()
			if !bytes.HasSuffix(data[:consumed], []byte("\r\n\r\n")) {
				t.Errorf("Consumed %d bytes not ending at the header terminator", consumed)
			}
		}
	})
}

// FuzzContentLengthHeader fuzzes the Content-Length value of a POST.
func FuzzContentLengthHeader(f *testing.F) {
	f.Add("0")
	f.Add("13")
	f.Add("-1")
	f.Add("1e3")
	f.Add("99999999999999999999")
	f.Add(" 7 ")

	f.Fuzz(func(t *testing.T, value string) {
		if bytes.ContainsAny([]byte(value), "\r\n") {
			return
		}
		var buf buffer.Accumulator
		buf.Append([]byte("POST / HTTP/1.1\r\nContent-Length: " + value + "\r\n\r\n"))

		// Should never panic
		_, _, _ = h1.Framer{}.Extract(&buf)
	})
}
