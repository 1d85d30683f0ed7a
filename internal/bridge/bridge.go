// Package bridge turns a push-based, flow-controlled transport into sequential
// Read and Write calls.
package bridge

import (
	"errors"
	"sync"
)

var (
	// ErrConcurrentRead is the panic value raised when a second Read is issued
	// while another one is still outstanding on the same bridge.
	ErrConcurrentRead = errors.New("bridge: concurrent read")
	// ErrEmptyWrite is the panic value raised by Write with no bytes.
	ErrEmptyWrite = errors.New("bridge: empty write")
	// ErrClosed is reported to a pending write whose transport went away.
	ErrClosed = errors.New("bridge: transport closed")
)

// Transport is the event-driven side of a connection. Delivery of inbound bytes,
// end-of-stream and errors is reported back through Deliver, End and Fail.
type Transport interface {
	// Resume allows the transport to deliver the next chunk.
	Resume()
	// Pause stops delivery until the next Resume.
	Pause()
	// Write submits p for sending and calls done once it is flushed or failed.
	Write(p []byte, done func(error)) error
	// Close tears the connection down.
	Close() error
}

// TransportError wraps a failure reported by the underlying transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Kind labels the error class.
func (e *TransportError) Kind() string {
	return "transport"
}

type result struct {
	data []byte
	err  error
}

// Bridge holds the single-slot pending read of one connection. Transport
// notifications that arrive with no read outstanding are kept and replayed
// to the next Read.
type Bridge struct {
	t Transport

	mu     sync.Mutex
	reader chan result
	stash  []byte
	err    error
	ended  bool

	gone     chan struct{}
	goneOnce sync.Once
}

// New returns a bridge over t. The transport must start paused.
func New(t Transport) *Bridge {
	return &Bridge{
		t:    t,
		gone: make(chan struct{}),
	}
}

// Read returns the next chunk. An empty chunk with a nil error means the peer
// has ended the stream; it is returned again on every later call.
func (b *Bridge) Read() ([]byte, error) {
	b.mu.Lock()
	if b.reader != nil {
		b.mu.Unlock()
		panic(ErrConcurrentRead)
	}
	if b.err != nil {
		err := b.err
		b.mu.Unlock()
		return nil, err
	}
	if len(b.stash) > 0 {
		data := b.stash
		b.stash = nil
		b.mu.Unlock()
		return data, nil
	}
	if b.ended {
		b.mu.Unlock()
		return nil, nil
	}

	ch := make(chan result, 1)
	b.reader = ch
	b.mu.Unlock()

	b.t.Resume()
	r := <-ch
	return r.data, r.err
}

// Wants reports whether a Read is waiting for data.
func (b *Bridge) Wants() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reader != nil
}

// Deliver hands an inbound chunk to the pending reader, or keeps it for the
// next Read. The bridge owns data afterwards.
func (b *Bridge) Deliver(data []byte) {
	if len(data) == 0 {
		return
	}

	b.mu.Lock()
	ch := b.reader
	if ch == nil {
		b.stash = append(b.stash, data...)
		b.mu.Unlock()
		return
	}
	b.reader = nil
	b.mu.Unlock()

	b.t.Pause()
	ch <- result{data: data}
}

// End records that the peer finished sending.
func (b *Bridge) End() {
	b.mu.Lock()
	b.ended = true
	ch := b.reader
	b.reader = nil
	b.mu.Unlock()

	if ch != nil {
		ch <- result{}
	}
}

// Fail records a transport error. Only the first one is kept.
func (b *Bridge) Fail(err error) {
	b.mu.Lock()
	if b.err == nil {
		b.err = &TransportError{Op: "read", Err: err}
	}
	err = b.err
	ch := b.reader
	b.reader = nil
	b.mu.Unlock()

	if ch != nil {
		ch <- result{err: err}
	}
}

// Detach marks the transport as gone. Pending and later reads see end of
// stream unless an error was recorded; waiting writes are released.
func (b *Bridge) Detach() {
	b.End()
	b.goneOnce.Do(func() { close(b.gone) })
}

// Write sends p and waits until the transport confirms it.
func (b *Bridge) Write(p []byte) error {
	if len(p) == 0 {
		panic(ErrEmptyWrite)
	}

	b.mu.Lock()
	err := b.err
	b.mu.Unlock()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	if err := b.t.Write(p, func(err error) { done <- err }); err != nil {
		return &TransportError{Op: "write", Err: err}
	}

	select {
	case err = <-done:
	case <-b.gone:
		select {
		case err = <-done:
		default:
			err = ErrClosed
		}
	}
	if err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// Close tears down the transport.
func (b *Bridge) Close() error {
	return b.t.Close()
}
