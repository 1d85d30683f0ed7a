package wserv

import (
	"bytes"
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig defines the configuration options for the OpenTelemetry tracing middleware.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "wserv")
	TracerName string
	// SkipPaths lists paths to skip tracing (e.g., health checks)
	SkipPaths []string
	// Propagator is the propagation format (default: TraceContext)
	Propagator propagation.TextMapPropagator
	// TracerProvider overrides the global provider
	TracerProvider trace.TracerProvider
}

// DefaultTracingConfig returns a TracingConfig with sensible defaults.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		TracerName: "wserv",
		SkipPaths:  []string{"/health", "/metrics"},
		Propagator: propagation.TraceContext{},
	}
}

// Tracing returns a middleware that adds OpenTelemetry tracing to HTTP requests.
// It uses default configuration settings and skips tracing for health and metrics endpoints.
func Tracing() Middleware {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig returns a middleware that adds OpenTelemetry tracing with custom configuration.
// It creates spans for incoming requests and continues traces propagated in the request headers.
func TracingWithConfig(config TracingConfig) Middleware {
	if config.TracerName == "" {
		config.TracerName = "wserv"
	}
	if config.Propagator == nil {
		config.Propagator = propagation.TraceContext{}
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}

	skipMap := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	tracer := config.TracerProvider.Tracer(config.TracerName)

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if skipMap[req.URI] {
				return next.ServeHTTP1(ctx, req)
			}

			parentCtx := config.Propagator.Extract(ctx, &headerCarrier{req: req})

			spanCtx, span := tracer.Start(
				parentCtx,
				req.Method+" "+req.URI,
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			var length int64
			if req.Body != nil {
				length = req.Body.Len()
			}
			span.SetAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.target", req.URI),
				attribute.String("http.flavor", req.Version),
				attribute.Int64("http.request_content_length", length),
			)
			if host := req.HeaderString("Host"); host != "" {
				span.SetAttributes(attribute.String("http.host", host))
			}
			if id := RequestIDFromContext(ctx); id != "" {
				span.SetAttributes(attribute.String("http.request_id", id))
			}

			resp, err := next.ServeHTTP1(spanCtx, req)
			status := statusOf(resp, err)

			span.SetAttributes(attribute.Int("http.status_code", status))
			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case status >= 400:
				span.SetStatus(codes.Error, "HTTP error")
			default:
				span.SetStatus(codes.Ok, "")
			}

			return resp, err
		})
	}
}

// headerCarrier adapts raw request header lines to propagation.TextMapCarrier.
// Propagators use lower-case keys, so names are matched case-insensitively.
type headerCarrier struct {
	req *Request
}

func (hc *headerCarrier) Get(key string) string {
	for _, line := range hc.req.Headers {
		name, value, ok := bytes.Cut(line, []byte(":"))
		if ok && bytes.EqualFold(name, []byte(key)) {
			return string(bytes.Trim(value, " \t"))
		}
	}
	return ""
}

func (hc *headerCarrier) Set(key, value string) {
	hc.req.Headers = append(hc.req.Headers, []byte(key+": "+value))
}

func (hc *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(hc.req.Headers))
	for _, line := range hc.req.Headers {
		if name, _, ok := bytes.Cut(line, []byte(":")); ok {
			keys = append(keys, string(name))
		}
	}
	return keys
}
