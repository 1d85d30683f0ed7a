package wserv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LoggerConfig defines the configuration options for the Logger middleware.
type LoggerConfig struct {
	// Logger receives one event per request. When unset the connection
	// logger carried by the request context is used.
	Logger *zerolog.Logger
	// Level of successful requests (DefaultLoggerConfig uses info)
	Level zerolog.Level
	// SkipPaths lists paths to skip logging (e.g., health checks)
	SkipPaths []string
}

// DefaultLoggerConfig returns a LoggerConfig with sensible defaults.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{Level: zerolog.InfoLevel}
}

// Logger returns a middleware that logs requests to l.
func Logger(l zerolog.Logger) Middleware {
	config := DefaultLoggerConfig()
	config.Logger = &l
	return LoggerWithConfig(config)
}

// LoggerWithConfig returns a middleware that logs requests with custom configuration.
func LoggerWithConfig(config LoggerConfig) Middleware {
	skipMap := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if skipMap[req.URI] {
				return next.ServeHTTP1(ctx, req)
			}

			start := time.Now()
			resp, err := next.ServeHTTP1(ctx, req)
			status := statusOf(resp, err)

			l := config.Logger
			if l == nil {
				l = zerolog.Ctx(ctx)
			}

			var e *zerolog.Event
			switch {
			case status >= 500:
				e = l.Error()
			case status >= 400:
				e = l.Warn()
			default:
				e = l.WithLevel(config.Level)
			}
			e = e.Str("method", req.Method).
				Str("uri", req.URI).
				Str("version", req.Version).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Str("conn", req.ConnID)
			if req.RemoteAddr != nil {
				e = e.Str("remote", req.RemoteAddr.String())
			}
			if id := RequestIDFromContext(ctx); id != "" {
				e = e.Str("request_id", id)
			}
			e.Err(err).Msg("request")

			return resp, err
		})
	}
}

// Recovery returns a middleware that recovers from panics.
// It turns a panic during request handling into a 500 Internal Server Error response.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (resp *Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					zerolog.Ctx(ctx).Error().
						Str("panic", fmt.Sprint(r)).
						Str("uri", req.URI).
						Msg("handler panic")
					resp, err = nil, NewHTTPError(500, "Internal Server Error")
				}
			}()

			return next.ServeHTTP1(ctx, req)
		})
	}
}

type requestIDKey struct{}

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds ids accepted from the peer.
const maxRequestIDLen = 128

// RequestID returns a middleware that adds a unique request ID to each request.
// A printable id sent by the peer is kept; otherwise a UUID is generated. The
// id is stored in the request context and echoed in the response headers.
func RequestID() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			requestID := req.HeaderString(RequestIDHeader)
			if !validRequestID(requestID) {
				requestID = uuid.NewString()
			}

			ctx = context.WithValue(ctx, requestIDKey{}, requestID)
			resp, err := next.ServeHTTP1(ctx, req)
			if resp != nil {
				resp.AddHeader(RequestIDHeader, requestID)
			}
			return resp, err
		})
	}
}

// validRequestID reports whether id is non-empty, bounded and free of
// control bytes, so that it can be written back as a header value.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c < 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}

// RequestIDFromContext returns the id stored by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// HealthConfig holds configuration for the Health middleware.
type HealthConfig struct {
	// Path is the endpoint path for health checks (default: "/health")
	Path string
	// Handler is a custom health check handler (optional)
	Handler Handler
}

// DefaultHealthConfig returns a HealthConfig with sensible defaults.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Path:    "/health",
		Handler: HandlerFunc(healthHandler),
	}
}

var startTime = time.Now()

func healthHandler(_ context.Context, _ *Request) (*Response, error) {
	body, err := json.Marshal(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	})
	if err != nil {
		return nil, err
	}
	resp := &Response{Status: 200, Body: NewMemoryBody(body)}
	return resp.AddHeader("Content-Type", "application/json"), nil
}

// Health returns a middleware that sets up a health check endpoint.
func Health() Middleware {
	return HealthWithConfig(DefaultHealthConfig())
}

// HealthWithConfig returns a middleware that sets up a health check endpoint with custom configuration.
func HealthWithConfig(config HealthConfig) Middleware {
	if config.Path == "" {
		config.Path = "/health"
	}
	if config.Handler == nil {
		config.Handler = HandlerFunc(healthHandler)
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if req.URI == config.Path {
				return config.Handler.ServeHTTP1(ctx, req)
			}
			return next.ServeHTTP1(ctx, req)
		})
	}
}
