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
	"github.com/panjf2000/gnet/v2"
)

// GnetServer runs connections on gnet event loops. Bytes that arrive while no
// read is pending stay in gnet's inbound buffer until the connection asks for
// more.
type GnetServer struct {
	gnet.BuiltinEventEngine

	opts  Options
	serve ServeFunc
	reg   *registry

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	engine  gnet.Engine
	booted  bool
	stopped bool
	ready   chan struct{}
	runErr  chan error
}

// gnetConn is the per-connection state kept in gnet.Conn.Context.
type gnetConn struct {
	c      gnet.Conn
	bridge *bridge.Bridge
}

// Resume wakes the event loop so that buffered bytes are handed over.
func (t *gnetConn) Resume() {
	_ = t.c.Wake(nil)
}

// Pause is a no-op: OnTraffic only hands bytes over while a read is pending.
func (t *gnetConn) Pause() {}

func (t *gnetConn) Write(p []byte, done func(error)) error {
	return t.c.AsyncWrite(p, func(_ gnet.Conn, err error) error {
		done(err)
		return nil
	})
}

func (t *gnetConn) Close() error {
	err := t.c.Close()
	t.bridge.Detach()
	return err
}

// NewGnetServer returns a gnet engine calling serve for each connection.
func NewGnetServer(opts Options, serve ServeFunc) *GnetServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &GnetServer{
		opts:   opts,
		serve:  serve,
		reg:    newRegistry("gnet", opts.Logger),
		ctx:    ctx,
		cancel: cancel,
		ready:  make(chan struct{}),
		runErr: make(chan error, 1),
	}
}

// Start runs the engine in the background and returns once it is listening.
func (s *GnetServer) Start() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.mu.Unlock()

	options := []gnet.Option{
		gnet.WithMulticore(s.opts.Multicore),
		gnet.WithReusePort(s.opts.ReusePort),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
		gnet.WithTCPKeepAlive(time.Minute),
		gnet.WithLogger(gnetLogger{l: s.opts.Logger}),
		gnet.WithReadBufferCap(s.opts.readBufferSize()),
	}
	if s.opts.NumEventLoop > 0 {
		options = append(options, gnet.WithNumEventLoop(s.opts.NumEventLoop))
	}

	s.opts.Logger.Info().
		Str("addr", s.opts.Addr).
		Bool("multicore", s.opts.Multicore).
		Msg("starting gnet engine")

	go func() {
		s.runErr <- gnet.Run(s, "tcp://"+s.opts.Addr, options...)
	}()

	select {
	case <-s.ready:
		return nil
	case err := <-s.runErr:
		if err == nil {
			err = ErrServerClosed
		}
		return err
	}
}

// Stop closes every connection, stops the event loops and waits for the
// connection goroutines to return.
func (s *GnetServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	booted := s.booted
	eng := s.engine
	s.mu.Unlock()

	s.cancel()
	s.reg.closeAll()

	var err error
	if booted {
		if stopErr := eng.Stop(ctx); stopErr != nil {
			s.opts.Logger.Error().Err(stopErr).Msg("error stopping gnet engine")
			err = stopErr
		}
	}
	if waitErr := s.reg.wait(ctx); waitErr != nil && err == nil {
		err = waitErr
	}
	s.reg.release()

	s.opts.Logger.Info().Msg("gnet engine stopped")
	return err
}

// Addr returns the configured listen address.
func (s *GnetServer) Addr() net.Addr {
	addr, err := net.ResolveTCPAddr("tcp", s.opts.Addr)
	if err != nil {
		return nil
	}
	return addr
}

// Connections returns the number of live connections.
func (s *GnetServer) Connections() int { return s.reg.len() }

// OnBoot records the engine once it is listening.
func (s *GnetServer) OnBoot(eng gnet.Engine) gnet.Action {
	s.mu.Lock()
	s.engine = eng
	s.booted = true
	s.mu.Unlock()
	close(s.ready)

	s.opts.Logger.Info().Str("addr", s.opts.Addr).Msg("listening")
	return gnet.None
}

// OnOpen creates the connection state and starts its loop, or refuses the
// connection when the limit is reached.
func (s *GnetServer) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	if !s.reg.reserve(s.opts.MaxConnections) {
		s.reg.reject()
		s.opts.Logger.Warn().
			Str("remote", c.RemoteAddr().String()).
			Int("limit", s.opts.MaxConnections).
			Msg("connection rejected")

		if len(s.opts.Reject) == 0 {
			return nil, gnet.Close
		}
		_ = c.AsyncWrite(s.opts.Reject, func(c gnet.Conn, _ error) error {
			return c.Close()
		})
		return nil, gnet.None
	}

	t := &gnetConn{c: c}
	t.bridge = bridge.New(t)
	cn := conn.New(t.bridge, c.RemoteAddr(), s.opts.Logger)
	c.SetContext(t)

	s.reg.serve(s.ctx, cn, s.serve)
	return nil, gnet.None
}

// OnTraffic hands inbound bytes to the connection while it is waiting for
// them. Otherwise they are left in gnet's buffer.
func (s *GnetServer) OnTraffic(c gnet.Conn) gnet.Action {
	t, ok := c.Context().(*gnetConn)
	if !ok {
		// Rejected connection still draining its refusal.
		_, _ = c.Discard(-1)
		return gnet.None
	}
	if !t.bridge.Wants() {
		return gnet.None
	}

	n := min(c.InboundBuffered(), s.opts.readBufferSize())
	if n == 0 {
		return gnet.None
	}
	buf, err := c.Next(n)
	if err != nil {
		t.bridge.Fail(err)
		return gnet.Close
	}
	if verboseLogging {
		s.opts.Logger.Debug().Int("bytes", len(buf)).Msg("traffic")
	}

	// buf belongs to the event loop.
	t.bridge.Deliver(append([]byte(nil), buf...))

	// More may be waiting; the next read wakes the loop again.
	return gnet.None
}

// OnClose reports the end of the stream to the connection and releases any
// write waiting on it.
func (s *GnetServer) OnClose(c gnet.Conn, err error) gnet.Action {
	t, ok := c.Context().(*gnetConn)
	if !ok {
		return gnet.None
	}

	// Bytes the connection had not asked for yet are still buffered here.
	if n := c.InboundBuffered(); n > 0 {
		if buf, _ := c.Next(n); len(buf) > 0 {
			t.bridge.Deliver(append([]byte(nil), buf...))
		}
	}

	if err == nil || errors.Is(err, io.EOF) {
		if verboseLogging {
			s.opts.Logger.Debug().Str("remote", c.RemoteAddr().String()).Msg("eof")
		}
		t.bridge.End()
	} else {
		t.bridge.Fail(err)
	}
	t.bridge.Detach()
	return gnet.None
}

// OnShutdown is called once the event loops have stopped.
func (s *GnetServer) OnShutdown(_ gnet.Engine) {
	s.mu.Lock()
	s.booted = false
	s.mu.Unlock()
}
