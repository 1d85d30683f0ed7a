package conn

import (
	"context"
	"errors"

	"github.com/adityamahendrap/wserv/internal/buffer"
	"github.com/adityamahendrap/wserv/internal/metrics"
)

// ErrUnexpectedEOF is returned when the peer closes in the middle of a message or body.
var ErrUnexpectedEOF = errors.New("unexpected EOF")

// verboseLogging gates per-message logs.
const verboseLogging = false

// Framer extracts one message from the front of a buffer. ok is false when the
// buffer does not hold a complete message yet.
type Framer[M any] interface {
	Name() string
	Extract(buf *buffer.Accumulator) (msg M, ok bool, err error)
}

// Session acts on extracted messages.
type Session[M any] interface {
	// Handle dispatches msg and writes the reply. keepOpen false ends the loop
	// without an error.
	Handle(ctx context.Context, c *Conn, msg M) (keepOpen bool, err error)
	// Fail is given the error that ends the loop. It may try to tell the peer
	// about it and must not return an error of its own.
	Fail(c *Conn, err error)
}

// Serve runs the read/extract/dispatch loop until the peer ends the stream,
// the session closes the connection, or an error occurs. The caller closes c.
func Serve[M any](ctx context.Context, c *Conn, f Framer[M], s Session[M]) error {
	err := serve(ctx, c, f, s)
	if err != nil {
		metrics.ConnectionErrors.WithLabelValues(errorKind(err)).Inc()
		s.Fail(c, err)
	}
	return err
}

func serve[M any](ctx context.Context, c *Conn, f Framer[M], s Session[M]) error {
	for {
		msg, ok, err := f.Extract(c.Buffer())
		if err != nil {
			return err
		}

		if !ok {
			n, err := c.Fill()
			if err != nil {
				return err
			}
			if n == 0 {
				if c.Buffer().Len() == 0 {
					return nil
				}
				return ErrUnexpectedEOF
			}
			continue
		}

		metrics.MessagesTotal.WithLabelValues(f.Name()).Inc()
		if verboseLogging {
			c.logger.Debug().Str("framer", f.Name()).Int("buffered", c.Buffer().Len()).Msg("message")
		}

		keepOpen, err := s.Handle(ctx, c, msg)
		if err != nil {
			return err
		}
		if !keepOpen {
			return nil
		}
	}
}

// errorKind labels err for the error counter.
func errorKind(err error) string {
	var k interface{ Kind() string }
	switch {
	case errors.Is(err, ErrUnexpectedEOF):
		return "unexpected_eof"
	case errors.As(err, &k):
		return k.Kind()
	default:
		return "other"
	}
}
