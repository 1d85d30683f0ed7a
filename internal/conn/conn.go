// Package conn owns the per-connection state and runs the framing loop over it.
package conn

import (
	"net"

	"github.com/adityamahendrap/wserv/internal/bridge"
	"github.com/adityamahendrap/wserv/internal/buffer"
	"github.com/adityamahendrap/wserv/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Conn is one accepted peer: a bridge to its transport and the receive buffer
// that framers extract messages from.
type Conn struct {
	id     string
	remote net.Addr
	bridge *bridge.Bridge
	buf    buffer.Accumulator
	logger zerolog.Logger

	bytesIn  int64
	bytesOut int64
}

// New creates a connection over b.
func New(b *bridge.Bridge, remote net.Addr, logger zerolog.Logger) *Conn {
	id := uuid.NewString()
	c := &Conn{
		id:     id,
		remote: remote,
		bridge: b,
	}

	lc := logger.With().Str("conn", id)
	if remote != nil {
		lc = lc.Str("remote", remote.String())
	}
	c.logger = lc.Logger()
	return c
}

// ID returns the connection's unique id.
func (c *Conn) ID() string { return c.id }

// RemoteAddr returns the peer address, which may be nil.
func (c *Conn) RemoteAddr() net.Addr { return c.remote }

// Logger returns the connection-scoped logger.
func (c *Conn) Logger() *zerolog.Logger { return &c.logger }

// Buffer returns the receive buffer.
func (c *Conn) Buffer() *buffer.Accumulator { return &c.buf }

// Bridge returns the underlying bridge.
func (c *Conn) Bridge() *bridge.Bridge { return c.bridge }

// Fill pulls one chunk from the bridge and appends it to the buffer. It returns
// the chunk length; zero means the peer ended the stream.
func (c *Conn) Fill() (int, error) {
	data, err := c.bridge.Read()
	if err != nil {
		return 0, err
	}
	c.buf.Append(data)
	c.bytesIn += int64(len(data))
	metrics.BytesRead.Add(float64(len(data)))
	return len(data), nil
}

// Write sends p and waits for the transport to confirm it.
func (c *Conn) Write(p []byte) error {
	if err := c.bridge.Write(p); err != nil {
		return err
	}
	c.bytesOut += int64(len(p))
	metrics.BytesWritten.Add(float64(len(p)))
	return nil
}

// BytesIn returns the number of bytes read so far.
func (c *Conn) BytesIn() int64 { return c.bytesIn }

// BytesOut returns the number of bytes written so far.
func (c *Conn) BytesOut() int64 { return c.bytesOut }

// Close forcibly tears the connection down.
func (c *Conn) Close() error {
	return c.bridge.Close()
}
