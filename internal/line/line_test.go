package line

import (
	"context"
	"testing"

	"github.com/adityamahendrap/wserv/internal/buffer"
	"github.com/adityamahendrap/wserv/internal/conn"
	"github.com/adityamahendrap/wserv/internal/conn/conntest"
	"github.com/stretchr/testify/require"
)

func TestFramer_TwoMessagesInOneChunk(t *testing.T) {
	var buf buffer.Accumulator
	buf.Append([]byte("hello\nworld\n"))

	f := Framer{}
	msg, ok, err := f.Extract(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello\n", string(msg))

	msg, ok, err = f.Extract(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "world\n", string(msg))

	require.Zero(t, buf.Len())
	_, ok, err = f.Extract(&buf)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFramer_PartialDelivery(t *testing.T) {
	var buf buffer.Accumulator
	f := Framer{}

	buf.Append([]byte("he"))
	_, ok, err := f.Extract(&buf)
	require.NoError(t, err)
	require.False(t, ok)

	buf.Append([]byte("llo\n"))
	msg, ok, err := f.Extract(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello\n", string(msg))
}

func TestFramer_EverySplit(t *testing.T) {
	input := "one\ntwo\n\nthree\n"
	want := []string{"one\n", "two\n", "\n", "three\n"}

	for split := 0; split <= len(input); split++ {
		var (
			buf buffer.Accumulator
			got []string
		)
		for _, part := range []string{input[:split], input[split:]} {
			buf.Append([]byte(part))
			for {
				msg, ok, err := Framer{}.Extract(&buf)
				require.NoError(t, err)
				if !ok {
					break
				}
				got = append(got, string(msg))
			}
		}
		require.Equal(t, want, got, "split at %d", split)
	}
}

func TestFramer_MessageIsCopied(t *testing.T) {
	var buf buffer.Accumulator
	buf.Append([]byte("abc\ndef\n"))

	msg, _, _ := Framer{}.Extract(&buf)
	buf.Append([]byte("zzzz"))
	require.Equal(t, "abc\n", string(msg))
}

func TestFramer_MaxMessageBytes(t *testing.T) {
	var buf buffer.Accumulator
	buf.Append([]byte("0123456789"))

	_, _, err := Framer{MaxMessageBytes: 10}.Extract(&buf)
	require.ErrorIs(t, err, ErrMessageTooLarge)

	_, ok, err := Framer{}.Extract(&buf)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSession_Echo(t *testing.T) {
	c, tr := conntest.NewConn("hel", "lo\nagain\n")

	err := conn.Serve(context.Background(), c, Framer{}, Session{})
	require.NoError(t, err)
	require.Equal(t, "Echo: hello\nEcho: again\n", tr.Output())
}

func TestSession_Quit(t *testing.T) {
	c, tr := conntest.NewConn("hi\nquit\n", "ignored\n")

	err := conn.Serve(context.Background(), c, Framer{}, Session{})
	require.NoError(t, err)
	require.Equal(t, "Echo: hi\nBye.\n", tr.Output())
	require.Equal(t, 1, tr.Reads())
	require.Equal(t, 1, tr.Pending())
}

func TestSession_PeerHangsUpMidLine(t *testing.T) {
	c, tr := conntest.NewConn("done\nhalf")

	err := conn.Serve(context.Background(), c, Framer{}, Session{})
	require.ErrorIs(t, err, conn.ErrUnexpectedEOF)
	require.Equal(t, "Echo: done\n", tr.Output())
}
