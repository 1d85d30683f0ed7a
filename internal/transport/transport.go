// Package transport accepts TCP connections and runs a connection loop for
// each of them, on either a gnet event loop or blocking net sockets.
package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/adityamahendrap/wserv/internal/conn"
	"github.com/adityamahendrap/wserv/internal/metrics"
	"github.com/panjf2000/ants/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// verboseLogging controls per-connection log verbosity.
const verboseLogging = false

// DefaultReadBufferSize is the largest chunk handed to a connection per read
// when Options.ReadBufferSize is zero.
const DefaultReadBufferSize = 64 << 10

// ErrServerClosed is returned by Start after Stop.
var ErrServerClosed = errors.New("transport: server closed")

// ServeFunc runs the protocol on one connection. It is called on its own
// goroutine; the engine closes the connection when it returns.
type ServeFunc func(ctx context.Context, c *conn.Conn) error

// Options configure an engine.
type Options struct {
	Addr           string
	Multicore      bool
	NumEventLoop   int
	ReusePort      bool
	MaxConnections int
	ReadBufferSize int
	// Reject is written to connections refused by MaxConnections.
	Reject []byte
	Logger zerolog.Logger
}

func (o Options) readBufferSize() int {
	if o.ReadBufferSize > 0 {
		return o.ReadBufferSize
	}
	return DefaultReadBufferSize
}

// Server is a running accept loop.
type Server interface {
	Start() error
	Stop(ctx context.Context) error
	Addr() net.Addr
	Connections() int
}

// registry tracks live connections and runs their loops on a goroutine pool.
type registry struct {
	engine string
	logger zerolog.Logger
	pool   *ants.Pool
	conns  *xsync.MapOf[string, *conn.Conn]
	active atomic.Int64
	wg     sync.WaitGroup
}

func newRegistry(engine string, logger zerolog.Logger) *registry {
	r := &registry{
		engine: engine,
		logger: logger,
		conns:  xsync.NewMapOf[string, *conn.Conn](),
	}
	// A non-positive size never fails; the cap is enforced by the engines.
	r.pool, _ = ants.NewPool(-1,
		ants.WithLogger(antsLogger{l: logger}),
		ants.WithPanicHandler(func(p any) {
			logger.Error().Interface("panic", p).Msg("connection loop panic")
		}),
	)
	return r
}

// reserve takes a connection slot, failing when limit slots are already
// taken. A non-positive limit never fails. Every successful reserve is
// followed by serve, which releases the slot when the loop returns.
func (r *registry) reserve(limit int) bool {
	for {
		n := r.active.Load()
		if limit > 0 && n >= int64(limit) {
			return false
		}
		if r.active.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (r *registry) reject() {
	metrics.ConnectionsRejected.WithLabelValues(r.engine).Inc()
}

// serve registers c on a reserved slot and runs fn on the pool.
func (r *registry) serve(ctx context.Context, c *conn.Conn, fn ServeFunc) {
	r.conns.Store(c.ID(), c)
	r.wg.Add(1)
	metrics.ConnectionsTotal.WithLabelValues(r.engine).Inc()
	metrics.ConnectionsActive.WithLabelValues(r.engine).Inc()

	done := func() {
		_ = c.Close()
		r.conns.Delete(c.ID())
		r.active.Add(-1)
		metrics.ConnectionsActive.WithLabelValues(r.engine).Dec()
		r.wg.Done()
	}

	err := r.pool.Submit(func() {
		defer done()

		c.Logger().Info().Str("engine", r.engine).Msg("connection")
		if err := fn(ctx, c); err != nil {
			c.Logger().Warn().Err(err).Msg("exception")
		}
		c.Logger().Info().
			Int64("bytes_in", c.BytesIn()).
			Int64("bytes_out", c.BytesOut()).
			Msg("closed")
	})
	if err != nil {
		c.Logger().Error().Err(err).Msg("connection not served")
		done()
	}
}

// release stops the pool once every loop has returned.
func (r *registry) release() {
	r.pool.Release()
}

// closeAll closes every live connection.
func (r *registry) closeAll() {
	r.conns.Range(func(_ string, c *conn.Conn) bool {
		_ = c.Close()
		return true
	})
}

// wait blocks until every serving goroutine has returned or ctx is done.
func (r *registry) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *registry) len() int {
	return int(r.active.Load())
}
