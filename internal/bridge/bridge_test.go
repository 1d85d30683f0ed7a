package bridge

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeTransport records flow-control calls and lets the test push chunks
// whenever the bridge resumes it.
type fakeTransport struct {
	mu      sync.Mutex
	resumed int
	paused  int
	active  bool
	writes  [][]byte
	onRes   func()
	writeFn func(p []byte, done func(error)) error
}

func (f *fakeTransport) Resume() {
	f.mu.Lock()
	f.resumed++
	f.active = true
	fn := f.onRes
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeTransport) Pause() {
	f.mu.Lock()
	f.paused++
	f.active = false
	f.mu.Unlock()
}

func (f *fakeTransport) Write(p []byte, done func(error)) error {
	if f.writeFn != nil {
		return f.writeFn(p, done)
	}
	f.mu.Lock()
	f.writes = append(f.writes, append([]byte(nil), p...))
	f.mu.Unlock()
	done(nil)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) isActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func TestBridge_ReadWaitsForDelivery(t *testing.T) {
	ft := &fakeTransport{}
	b := New(ft)
	ft.onRes = func() { go b.Deliver([]byte("hello")) }

	data, err := b.Read()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
	require.Equal(t, 1, ft.resumed)
	require.Equal(t, 1, ft.paused)
	require.False(t, ft.isActive())
}

func TestBridge_StashReplayedWithoutResume(t *testing.T) {
	ft := &fakeTransport{}
	b := New(ft)

	b.Deliver([]byte("ab"))
	b.Deliver([]byte("cd"))

	data, err := b.Read()
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), data)
	require.Zero(t, ft.resumed)
}

func TestBridge_EOFIsIdempotent(t *testing.T) {
	b := New(&fakeTransport{})
	b.End()

	for i := 0; i < 3; i++ {
		data, err := b.Read()
		require.NoError(t, err)
		require.Empty(t, data)
	}
}

func TestBridge_EOFResolvesPendingRead(t *testing.T) {
	ft := &fakeTransport{}
	b := New(ft)
	ft.onRes = func() { go b.End() }

	data, err := b.Read()
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestBridge_ErrorRecordedBeforeRead(t *testing.T) {
	b := New(&fakeTransport{})
	boom := errors.New("boom")
	b.Fail(boom)

	_, err := b.Read()
	require.ErrorIs(t, err, boom)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "read", te.Op)

	// Writes fail fast once an error is recorded.
	require.ErrorIs(t, b.Write([]byte("x")), boom)
}

func TestBridge_ErrorRejectsPendingRead(t *testing.T) {
	ft := &fakeTransport{}
	b := New(ft)
	boom := errors.New("reset")
	ft.onRes = func() { go b.Fail(boom) }

	_, err := b.Read()
	require.ErrorIs(t, err, boom)
}

func TestBridge_ConcurrentReadPanics(t *testing.T) {
	ft := &fakeTransport{}
	b := New(ft)

	go func() { _, _ = b.Read() }()
	require.Eventually(t, b.Wants, time.Second, time.Millisecond)

	require.PanicsWithValue(t, ErrConcurrentRead, func() { _, _ = b.Read() })
	b.End()
}

func TestBridge_Write(t *testing.T) {
	ft := &fakeTransport{}
	b := New(ft)

	require.NoError(t, b.Write([]byte("abc")))
	require.Equal(t, [][]byte{[]byte("abc")}, ft.writes)
	require.PanicsWithValue(t, ErrEmptyWrite, func() { _ = b.Write(nil) })
}

func TestBridge_WriteReleasedOnDetach(t *testing.T) {
	ft := &fakeTransport{writeFn: func([]byte, func(error)) error { return nil }}
	b := New(ft)

	go b.Detach()

	err := b.Write([]byte("never confirmed"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestBridge_WriteCallbackError(t *testing.T) {
	boom := errors.New("broken pipe")
	ft := &fakeTransport{writeFn: func(_ []byte, done func(error)) error {
		go done(boom)
		return nil
	}}
	b := New(ft)

	err := b.Write([]byte("x"))
	require.ErrorIs(t, err, boom)
}
