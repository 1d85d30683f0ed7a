package wserv

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/adityamahendrap/wserv/internal/conn"
	"github.com/adityamahendrap/wserv/internal/h1"
	"github.com/adityamahendrap/wserv/internal/line"
	"github.com/adityamahendrap/wserv/internal/raw"
	"github.com/adityamahendrap/wserv/internal/transport"
)

// ErrHandlerNotSet is returned by Start in HTTP mode without a handler.
var ErrHandlerNotSet = errors.New("handler not set")

// rejectHTTP answers connections refused by MaxConnections in HTTP mode.
var rejectHTTP = []byte("HTTP/1.1 503 Service Unavailable\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Length: 19\r\n" +
	"Connection: close\r\n" +
	"\r\n" +
	"Service Unavailable")

// Server is one listener. Several servers can run in the same process.
type Server struct {
	config  Config
	handler Handler

	mu     sync.Mutex
	engine transport.Server
}

// New creates a new Server with the provided configuration. It panics if the
// configuration is invalid.
func New(config Config) *Server {
	if err := config.Validate(); err != nil {
		panic(err)
	}
	return &Server{config: config}
}

// NewWithDefaults creates a new Server with default configuration.
func NewWithDefaults() *Server {
	return New(DefaultConfig())
}

// Config returns the normalized configuration.
func (s *Server) Config() Config {
	return s.config
}

// Handler sets the request handler and returns the server for method chaining.
func (s *Server) Handler(handler Handler) *Server {
	s.handler = handler
	return s
}

// ListenAndServe sets the handler and starts the server.
func (s *Server) ListenAndServe(handler Handler) error {
	s.handler = handler
	return s.Start()
}

// Start binds the listener and begins accepting connections. It returns once
// the listener is bound, or with the error that prevented it.
func (s *Server) Start() error {
	serve, reject, err := s.protocol()
	if err != nil {
		return err
	}

	opts := transport.Options{
		Addr:           s.config.Addr(),
		Multicore:      s.config.Multicore,
		NumEventLoop:   s.config.NumEventLoop,
		ReusePort:      s.config.ReusePort,
		MaxConnections: s.config.MaxConnections,
		ReadBufferSize: s.config.ReadBufferSize,
		Reject:         reject,
		Logger:         s.config.Logger.With().Str("mode", string(s.config.Mode)).Logger(),
	}

	var engine transport.Server
	switch s.config.Engine {
	case EngineNet:
		engine = transport.NewNetServer(opts, serve)
	default:
		engine = transport.NewGnetServer(opts, serve)
	}

	if err := engine.Start(); err != nil {
		return err
	}

	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()
	return nil
}

// protocol returns the connection loop for the configured mode.
func (s *Server) protocol() (transport.ServeFunc, []byte, error) {
	switch s.config.Mode {
	case ModeLine:
		framer := line.Framer{MaxMessageBytes: s.config.MaxLineBytes}
		return func(ctx context.Context, c *conn.Conn) error {
			ctx = c.Logger().WithContext(ctx)
			return conn.Serve[[]byte](ctx, c, framer, line.Session{})
		}, nil, nil

	case ModeRaw:
		return func(ctx context.Context, c *conn.Conn) error {
			ctx = c.Logger().WithContext(ctx)
			return conn.Serve[[]byte](ctx, c, raw.Framer{}, raw.Session{})
		}, nil, nil

	default:
		if s.handler == nil {
			return nil, nil, ErrHandlerNotSet
		}
		framer := h1.Framer{MaxHeaderBytes: s.config.MaxHeaderBytes}
		handler := s.handler
		return func(ctx context.Context, c *conn.Conn) error {
			ctx = c.Logger().WithContext(ctx)
			return conn.Serve[*Request](ctx, c, framer, h1.NewSession(handler))
		}, rejectHTTP, nil
	}
}

// Stop closes the listener and every open connection, and waits for their
// loops to return or ctx to end.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()

	if engine != nil {
		return engine.Stop(ctx)
	}
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil
	}
	return s.engine.Addr()
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return 0
	}
	return s.engine.Connections()
}
