package raw

import (
	"context"
	"testing"

	"github.com/adityamahendrap/wserv/internal/buffer"
	"github.com/adityamahendrap/wserv/internal/conn"
	"github.com/adityamahendrap/wserv/internal/conn/conntest"
	"github.com/stretchr/testify/require"
)

func TestFramer_TakesEverything(t *testing.T) {
	var buf buffer.Accumulator
	f := Framer{}

	_, ok, err := f.Extract(&buf)
	require.NoError(t, err)
	require.False(t, ok)

	buf.Append([]byte("ab\ncd"))
	msg, ok, err := f.Extract(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ab\ncd", string(msg))
	require.Zero(t, buf.Len())
}

func TestSession_EchoesChunks(t *testing.T) {
	c, tr := conntest.NewConn("hello", " world")
	require.NoError(t, conn.Serve[[]byte](context.Background(), c, Framer{}, Session{}))
	require.Equal(t, "hello world", tr.Output())
	require.Equal(t, 2, tr.Writes())
}

func TestSession_QuitsOnQ(t *testing.T) {
	c, tr := conntest.NewConn("abc", "xqz", "never")
	require.NoError(t, conn.Serve[[]byte](context.Background(), c, Framer{}, Session{}))
	require.Equal(t, "abcxqz", tr.Output())
	require.Equal(t, 1, tr.Pending())
}
