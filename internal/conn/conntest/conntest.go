// Package conntest provides a scripted in-memory transport for exercising
// connection loops without sockets.
package conntest

import (
	"bytes"
	"sync"

	"github.com/adityamahendrap/wserv/internal/bridge"
	"github.com/adityamahendrap/wserv/internal/conn"
	"github.com/rs/zerolog"
)

// Transport delivers one scripted chunk per resume. When the script runs out it
// reports end of stream, or Err if set.
type Transport struct {
	b *bridge.Bridge

	mu       sync.Mutex
	chunks   [][]byte
	reads    int
	out      bytes.Buffer
	writes   int
	closed   bool
	Err      error
	WriteErr error
}

// NewConn returns a connection whose peer sends chunks in order and then
// closes its side.
func NewConn(chunks ...string) (*conn.Conn, *Transport) {
	t := &Transport{}
	for _, c := range chunks {
		t.chunks = append(t.chunks, []byte(c))
	}
	t.b = bridge.New(t)
	return conn.New(t.b, nil, zerolog.Nop()), t
}

// Resume implements bridge.Transport.
func (t *Transport) Resume() {
	t.mu.Lock()
	t.reads++
	if len(t.chunks) > 0 {
		chunk := t.chunks[0]
		t.chunks = t.chunks[1:]
		t.mu.Unlock()
		t.b.Deliver(chunk)
		return
	}
	err := t.Err
	t.mu.Unlock()

	if err != nil {
		t.b.Fail(err)
		return
	}
	t.b.End()
}

// Pause implements bridge.Transport.
func (t *Transport) Pause() {}

// Write implements bridge.Transport.
func (t *Transport) Write(p []byte, done func(error)) error {
	t.mu.Lock()
	err := t.WriteErr
	if err == nil {
		t.out.Write(p)
		t.writes++
	}
	t.mu.Unlock()

	done(err)
	return nil
}

// Close implements bridge.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.b.Detach()
	return nil
}

// Output returns everything written so far.
func (t *Transport) Output() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.String()
}

// Writes returns the number of successful write calls.
func (t *Transport) Writes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes
}

// Reads returns how many times the bridge asked for more bytes.
func (t *Transport) Reads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads
}

// Pending returns the number of scripted chunks not delivered yet.
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.chunks)
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
