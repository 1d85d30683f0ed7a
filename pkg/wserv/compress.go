package wserv

import (
	"bytes"
	"compress/gzip"
	"context"
	"strings"

	"github.com/andybalholm/brotli"
)

// CompressConfig holds configuration for the Compress middleware.
type CompressConfig struct {
	// Level specifies the compression level (1-9 for gzip, 0-11 for brotli)
	Level int
	// MinSize specifies the minimum response size to compress (default: 1024 bytes)
	MinSize int
	// ExcludedTypes lists content type prefixes to skip compression
	ExcludedTypes []string
}

// DefaultCompressConfig returns a CompressConfig with sensible defaults.
func DefaultCompressConfig() CompressConfig {
	return CompressConfig{
		Level:   6,
		MinSize: 1024,
		ExcludedTypes: []string{
			"image/",
			"video/",
			"audio/",
			"application/zip",
			"application/gzip",
		},
	}
}

// Compress returns a middleware that compresses in-memory response bodies
// with brotli or gzip, using the default configuration.
func Compress() Middleware {
	return CompressWithConfig(DefaultCompressConfig())
}

// CompressWithConfig returns a middleware that compresses response bodies with
// custom configuration. Only *MemoryBody responses are compressed: a streamed
// body has its length declared before any of it is read, so it passes through
// untouched.
func CompressWithConfig(config CompressConfig) Middleware {
	if config.MinSize == 0 {
		config.MinSize = 1024
	}
	if config.Level == 0 {
		config.Level = 6
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			encoding := negotiateEncoding(req.HeaderString("Accept-Encoding"))
			resp, err := next.ServeHTTP1(ctx, req)
			if encoding == "" || err != nil || resp == nil {
				return resp, err
			}
			if _, ok := resp.Body.(*MemoryBody); !ok {
				return resp, nil
			}
			if resp.BodyLen() < int64(config.MinSize) {
				return resp, nil
			}
			if _, ok := resp.Header("Content-Encoding"); ok {
				return resp, nil
			}
			contentType, _ := resp.Header("Content-Type")
			for _, excluded := range config.ExcludedTypes {
				if bytes.HasPrefix(contentType, []byte(excluded)) {
					return resp, nil
				}
			}

			body, err := ReadAll(resp.Body)
			if err != nil {
				return nil, err
			}
			compressed, ok := compressBody(body, encoding, config.Level)
			if !ok || len(compressed) >= len(body) {
				resp.Body = NewMemoryBody(body)
				return resp, nil
			}

			resp.Body = NewMemoryBody(compressed)
			resp.AddHeader("Content-Encoding", encoding)
			resp.AddHeader("Vary", "Accept-Encoding")
			return resp, nil
		})
	}
}

// negotiateEncoding picks br over gzip from an Accept-Encoding value. Codings
// listed with q=0 are refused.
func negotiateEncoding(accept string) string {
	var br, gz bool
	for _, part := range strings.Split(accept, ",") {
		token, params, _ := strings.Cut(part, ";")
		token = strings.ToLower(strings.TrimSpace(token))
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok && strings.Trim(q, "0.") == "" {
			continue
		}
		switch token {
		case "br":
			br = true
		case "gzip":
			gz = true
		}
	}
	switch {
	case br:
		return "br"
	case gz:
		return "gzip"
	}
	return ""
}

func compressBody(body []byte, encoding string, level int) ([]byte, bool) {
	var buf bytes.Buffer
	switch encoding {
	case "br":
		w := brotli.NewWriterLevel(&buf, min(level, brotli.BestCompression))
		if _, err := w.Write(body); err != nil {
			_ = w.Close()
			return nil, false
		}
		if err := w.Close(); err != nil {
			return nil, false
		}
	case "gzip":
		w, err := gzip.NewWriterLevel(&buf, min(level, gzip.BestCompression))
		if err != nil {
			return nil, false
		}
		if _, err := w.Write(body); err != nil {
			_ = w.Close()
			return nil, false
		}
		if err := w.Close(); err != nil {
			return nil, false
		}
	default:
		return nil, false
	}
	return buf.Bytes(), true
}
