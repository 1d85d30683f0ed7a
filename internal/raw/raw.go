// Package raw implements the unframed echo: every chunk the peer sends is a
// message of its own.
package raw

import (
	"bytes"
	"context"

	"github.com/adityamahendrap/wserv/internal/buffer"
	"github.com/adityamahendrap/wserv/internal/conn"
)

// Framer takes whatever is buffered as one message.
type Framer struct{}

// Name implements conn.Framer.
func (Framer) Name() string { return "raw" }

// Extract implements conn.Framer. The returned message is a copy.
func (Framer) Extract(buf *buffer.Accumulator) ([]byte, bool, error) {
	if buf.Len() == 0 {
		return nil, false, nil
	}
	msg := append([]byte(nil), buf.Bytes()...)
	buf.Consume(len(msg))
	return msg, true, nil
}

// Session writes each chunk back unchanged and closes the connection after
// echoing a chunk that contains 'q'.
type Session struct{}

// Handle implements conn.Session.
func (Session) Handle(_ context.Context, c *conn.Conn, msg []byte) (bool, error) {
	if err := c.Write(msg); err != nil {
		return false, err
	}
	return bytes.IndexByte(msg, 'q') < 0, nil
}

// Fail implements conn.Session. Nothing is ever left half-framed.
func (Session) Fail(*conn.Conn, error) {}
