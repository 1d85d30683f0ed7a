package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/adityamahendrap/wserv/internal/bridge"
	"github.com/adityamahendrap/wserv/internal/conn"
	"golang.org/x/net/netutil"
)

// NetServer runs connections on blocking sockets. Each connection has a
// reader goroutine that reads from the socket only while the connection is
// waiting for bytes, so a slow consumer leaves data in the kernel.
type NetServer struct {
	opts  Options
	serve ServeFunc
	reg   *registry

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	ln       net.Listener
	stopped  bool
	acceptWG sync.WaitGroup
}

// netConn adapts a net.Conn to bridge.Transport.
type netConn struct {
	nc     net.Conn
	bridge *bridge.Bridge
	size   int

	resume    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newNetConn(nc net.Conn, size int) *netConn {
	t := &netConn{
		nc:     nc,
		size:   size,
		resume: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	t.bridge = bridge.New(t)
	return t
}

func (t *netConn) Resume() {
	select {
	case t.resume <- struct{}{}:
	default:
	}
}

// Pause is a no-op: the reader waits for the next Resume after every chunk.
func (t *netConn) Pause() {}

func (t *netConn) Write(p []byte, done func(error)) error {
	_, err := t.nc.Write(p)
	done(err)
	return nil
}

func (t *netConn) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.nc.Close()
		t.bridge.Detach()
	})
	return err
}

func (t *netConn) closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// readLoop performs one socket read per Resume.
func (t *netConn) readLoop(c *conn.Conn) {
	for {
		select {
		case <-t.resume:
		case <-t.done:
			return
		}

		buf := make([]byte, t.size)
		n, err := t.nc.Read(buf)
		if n > 0 {
			t.bridge.Deliver(buf[:n])
		}
		if err != nil {
			if t.closed() {
				return
			}
			if errors.Is(err, io.EOF) {
				if verboseLogging {
					c.Logger().Debug().Msg("eof")
				}
				t.bridge.End()
			} else {
				t.bridge.Fail(err)
			}
			return
		}
		if n == 0 {
			t.Resume()
		}
	}
}

// NewNetServer returns a blocking-socket engine calling serve for each
// connection.
func NewNetServer(opts Options, serve ServeFunc) *NetServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &NetServer{
		opts:   opts,
		serve:  serve,
		reg:    newRegistry("net", opts.Logger),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start binds the listener and accepts in the background. With
// MaxConnections set, accepts beyond the limit wait for a slot.
func (s *NetServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrServerClosed
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	if s.opts.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConnections)
	}
	s.ln = ln

	s.opts.Logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

	s.acceptWG.Add(1)
	go s.acceptLoop(ln)
	return nil
}

func (s *NetServer) acceptLoop(ln net.Listener) {
	defer s.acceptWG.Done()

	var delay time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				delay = max(min(delay*2, time.Second), 5*time.Millisecond)
				s.opts.Logger.Warn().Err(err).Dur("retry_in", delay).Msg("accept error")
				time.Sleep(delay)
				continue
			}
			s.opts.Logger.Error().Err(err).Msg("accept loop stopped")
			return
		}
		delay = 0

		t := newNetConn(nc, s.opts.readBufferSize())
		c := conn.New(t.bridge, nc.RemoteAddr(), s.opts.Logger)
		go t.readLoop(c)
		// The listener already caps accepts.
		s.reg.reserve(0)
		s.reg.serve(s.ctx, c, s.serve)
	}
}

// Stop closes the listener and every connection, then waits for the
// connection goroutines to return.
func (s *NetServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	ln := s.ln
	s.mu.Unlock()

	s.cancel()
	if ln != nil {
		_ = ln.Close()
	}
	s.acceptWG.Wait()
	s.reg.closeAll()

	err := s.reg.wait(ctx)
	s.reg.release()
	s.opts.Logger.Info().Msg("net engine stopped")
	return err
}

// Addr returns the bound listener address, or nil before Start.
func (s *NetServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Connections returns the number of live connections.
func (s *NetServer) Connections() int { return s.reg.len() }

var (
	_ Server = (*NetServer)(nil)
	_ Server = (*GnetServer)(nil)
)
