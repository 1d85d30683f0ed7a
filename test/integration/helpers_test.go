package integration

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adityamahendrap/wserv/pkg/wserv"
)

var testPortCounter uint32

func getTestPort() int {
	// Use atomic counter to ensure unique ports across parallel tests
	return 21000 + int(atomic.AddUint32(&testPortCounter, 1))
}

func waitForServer(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("server %s not ready", addr)
}

func waitForIdle(t *testing.T, server *wserv.Server) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for server.Connections() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Server still has %d connections", server.Connections())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

var engines = []wserv.Engine{wserv.EngineGnet, wserv.EngineNet}

// startServer runs a server for the duration of the test. It returns once the
// server accepts connections and the readiness probe has been closed.
func startServer(t *testing.T, config wserv.Config, h wserv.Handler) (*wserv.Server, string) {
	t.Helper()
	config.Port = getTestPort()

	server := wserv.New(config)
	if err := server.ListenAndServe(h); err != nil {
		t.Fatalf("Server error: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})

	addr := server.Config().Addr()
	if err := waitForServer(addr, 2*time.Second); err != nil {
		t.Fatalf("Server error: %v", err)
	}
	waitForIdle(t, server)
	return server, addr
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn, bufio.NewReader(conn)
}

var dateHeader = regexp.MustCompile(`Date: [^\r]*\r\n`)

// readResponse reads one response with a Content-Length body and returns it
// with the Date header removed.
func readResponse(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var head []byte
	length := 0
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("Reading head failed: %v (got %q)", err, head)
		}
		head = append(head, line...)
		if line == "\r\n" {
			break
		}
		_, _ = fmt.Sscanf(line, "Content-Length: %d\r\n", &length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		t.Fatalf("Reading body failed: %v", err)
	}
	return dateHeader.ReplaceAllString(string(head), "") + string(body)
}

// expectClosed asserts the server closes the connection without sending more.
func expectClosed(t *testing.T, r *bufio.Reader) {
	t.Helper()
	rest, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Expected clean close, got %v", err)
	}
	if len(rest) != 0 {
		t.Errorf("Expected no more bytes, got %q", rest)
	}
}
