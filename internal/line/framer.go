// Package line implements newline-delimited framing and the echo session that
// speaks it.
package line

import (
	"bytes"
	"errors"

	"github.com/adityamahendrap/wserv/internal/buffer"
)

// ErrMessageTooLarge is returned when MaxMessageBytes is set and the buffer
// reaches it without a delimiter.
var ErrMessageTooLarge = errors.New("line: message too large")

const delimiter = '\n'

// Framer cuts messages at the first '\n'. Returned messages keep the delimiter.
// A zero MaxMessageBytes places no bound on message length.
type Framer struct {
	MaxMessageBytes int
}

// Name implements conn.Framer.
func (Framer) Name() string { return "line" }

// Extract implements conn.Framer. The returned message is a copy.
func (f Framer) Extract(buf *buffer.Accumulator) ([]byte, bool, error) {
	i := bytes.IndexByte(buf.Bytes(), delimiter)
	if i < 0 {
		if f.MaxMessageBytes > 0 && buf.Len() >= f.MaxMessageBytes {
			return nil, false, ErrMessageTooLarge
		}
		return nil, false, nil
	}

	msg := make([]byte, i+1)
	copy(msg, buf.Bytes())
	buf.Consume(i + 1)
	return msg, true, nil
}
