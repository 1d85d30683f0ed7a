package h1

import (
	"strings"
	"testing"

	"github.com/adityamahendrap/wserv/internal/buffer"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, f Framer, input string) (*Request, bool, *buffer.Accumulator, error) {
	t.Helper()
	var buf buffer.Accumulator
	buf.Append([]byte(input))
	req, ok, err := f.Extract(&buf)
	return req, ok, &buf, err
}

func TestFramer_MinimalRequest(t *testing.T) {
	req, ok, buf, err := extract(t, Framer{}, "GET / HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "GET", req.Method)
	require.Equal(t, "/", req.URI)
	require.Equal(t, "1.1", req.Version)
	require.Empty(t, req.Headers)
	require.Zero(t, buf.Len())
}

func TestFramer_HeadersKeptInOrder(t *testing.T) {
	input := "POST /echo HTTP/1.0\r\nHost: x\r\nX-A: 1\r\nX-A: 2\r\n\r\nbody"
	req, ok, buf, err := extract(t, Framer{}, input)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1.0", req.Version)
	require.Equal(t, []string{"Host: x", "X-A: 1", "X-A: 2"}, toStrings(req.Headers))
	require.Equal(t, "1", req.HeaderString("X-A"))
	require.Equal(t, "body", string(buf.Bytes()))
}

func TestFramer_HeaderLookupIsCaseSensitive(t *testing.T) {
	req, _, _, err := extract(t, Framer{}, "GET / HTTP/1.1\r\nContent-Length: 0\r\n\r\n")
	require.NoError(t, err)

	_, ok := req.Header("content-length")
	require.False(t, ok)
	v, ok := req.Header("Content-Length")
	require.True(t, ok)
	require.Equal(t, "0", string(v))
}

func TestFramer_Incomplete(t *testing.T) {
	_, ok, buf, err := extract(t, Framer{}, "GET / HTTP/1.1\r\nHost: x\r\n")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 25, buf.Len())
}

func TestFramer_HeaderTooLarge(t *testing.T) {
	f := Framer{MaxHeaderBytes: 16}
	_, _, _, err := extract(t, f, strings.Repeat("a", 15))
	require.NoError(t, err)

	_, _, _, err = extract(t, f, strings.Repeat("a", 16))
	require.ErrorIs(t, err, ErrHeaderTooLarge)

	_, _, _, err = extract(t, Framer{}, strings.Repeat("a", DefaultMaxHeaderBytes))
	require.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestFramer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"two tokens", "GET /\r\n\r\n", ErrBadRequestLine},
		{"four tokens", "GET / x HTTP/1.1\r\n\r\n", ErrBadRequestLine},
		{"double space", "GET  / HTTP/1.1\r\n\r\n", ErrBadRequestLine},
		{"version", "GET / HTTP/2.0\r\n\r\n", ErrBadVersion},
		{"no colon", "GET / HTTP/1.1\r\nHost\r\n\r\n", ErrBadField},
		{"empty name", "GET / HTTP/1.1\r\n: x\r\n\r\n", ErrBadField},
		{"space in name", "GET / HTTP/1.1\r\nBad Name: x\r\n\r\n", ErrBadField},
		{"empty value", "GET / HTTP/1.1\r\nHost:  \r\n\r\n", ErrBadField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, buf, err := extract(t, Framer{}, tt.input)
			require.ErrorIs(t, err, tt.want)
			require.False(t, ok)
			require.Equal(t, len(tt.input), buf.Len(), "buffer must not be consumed on error")
		})
	}
}

func TestParseContentLength(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"0", 0, true},
		{"13", 13, true},
		{"007", 7, true},
		{"", 0, false},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1.5", 0, false},
		{"99999999999999999999", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseContentLength([]byte(tt.in))
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseContentLength(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func toStrings(lines [][]byte) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l)
	}
	return out
}
