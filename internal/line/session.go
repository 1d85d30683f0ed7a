package line

import (
	"bytes"
	"context"
	"errors"

	"github.com/adityamahendrap/wserv/internal/conn"
)

var (
	quitMessage = []byte("quit\n")
	byeReply    = []byte("Bye.\n")
	echoPrefix  = []byte("Echo: ")
)

// Session echoes every message back prefixed with "Echo: ". The message
// "quit\n" is answered with "Bye.\n" and ends the connection.
type Session struct{}

// Handle implements conn.Session.
func (Session) Handle(_ context.Context, c *conn.Conn, msg []byte) (bool, error) {
	if bytes.Equal(msg, quitMessage) {
		return false, c.Write(byeReply)
	}

	reply := make([]byte, 0, len(echoPrefix)+len(msg))
	reply = append(reply, echoPrefix...)
	reply = append(reply, msg...)
	return true, c.Write(reply)
}

// Fail implements conn.Session. The line protocol has no error replies.
func (Session) Fail(c *conn.Conn, err error) {
	if errors.Is(err, conn.ErrUnexpectedEOF) {
		c.Logger().Debug().Int("buffered", c.Buffer().Len()).Msg("peer closed mid-line")
	}
}
