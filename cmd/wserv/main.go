// Package main runs a wserv listener from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adityamahendrap/wserv/pkg/wserv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"
)

type options struct {
	host           string
	port           int
	mode           string
	engine         string
	multicore      bool
	eventLoops     int
	reusePort      bool
	maxConns       int
	maxHeaderBytes int
	maxLineBytes   int
	metricsAddr    string
	accessLog      bool
	requestID      bool
	compress       bool
	compressMin    int
	logFile        string
	pretty         bool
	debug          bool
}

func parseFlags(args []string) (options, error) {
	defaults := wserv.DefaultConfig()
	var o options

	fs := pflag.NewFlagSet("wserv", pflag.ContinueOnError)
	fs.StringVar(&o.host, "host", defaults.Host, "interface to bind to")
	fs.IntVarP(&o.port, "port", "p", defaults.Port, "TCP port to listen on")
	fs.StringVarP(&o.mode, "mode", "m", string(defaults.Mode), "framing discipline: http, line or raw")
	fs.StringVarP(&o.engine, "engine", "e", string(defaults.Engine), "socket engine: gnet or net")
	fs.BoolVar(&o.multicore, "multicore", false, "run one gnet event loop per CPU")
	fs.IntVar(&o.eventLoops, "event-loops", 0, "number of gnet event loops (0 for auto)")
	fs.BoolVar(&o.reusePort, "reuse-port", false, "enable SO_REUSEPORT")
	fs.IntVar(&o.maxConns, "max-conns", 0, "maximum concurrent connections (0 for no limit)")
	fs.IntVar(&o.maxHeaderBytes, "max-header-bytes", defaults.MaxHeaderBytes, "maximum HTTP header block size")
	fs.IntVar(&o.maxLineBytes, "max-line-bytes", 0, "maximum line message size (0 for no limit)")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.BoolVar(&o.accessLog, "access-log", false, "log every HTTP request")
	fs.BoolVar(&o.requestID, "request-id", false, "tag HTTP responses with X-Request-ID")
	fs.BoolVar(&o.compress, "compress", false, "compress in-memory HTTP responses with brotli or gzip")
	fs.IntVar(&o.compressMin, "compress-min-bytes", wserv.DefaultCompressConfig().MinSize, "smallest response body to compress")
	fs.StringVar(&o.logFile, "log-file", "", "write logs to a rotated file instead of stderr")
	fs.BoolVar(&o.pretty, "pretty", false, "human-readable console logs")
	fs.BoolVarP(&o.debug, "debug", "d", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func newLogger(o options) zerolog.Logger {
	var w io.Writer = os.Stderr
	if o.logFile != "" {
		w = &lumberjack.Logger{
			Filename:   o.logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	} else if o.pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	if o.debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func buildConfig(o options, logger zerolog.Logger) (wserv.Config, error) {
	mode, err := wserv.ParseMode(o.mode)
	if err != nil {
		return wserv.Config{}, err
	}
	engine, err := wserv.ParseEngine(o.engine)
	if err != nil {
		return wserv.Config{}, err
	}

	config := wserv.DefaultConfig()
	config.Host = o.host
	config.Port = o.port
	config.Mode = mode
	config.Engine = engine
	config.Multicore = o.multicore
	config.NumEventLoop = o.eventLoops
	config.ReusePort = o.reusePort
	config.MaxConnections = o.maxConns
	config.MaxHeaderBytes = o.maxHeaderBytes
	config.MaxLineBytes = o.maxLineBytes
	config.Logger = logger
	return config, config.Validate()
}

func buildRouter(o options, logger zerolog.Logger) *wserv.Router {
	router := wserv.EchoRouter()
	router.Use(wserv.Recovery(), wserv.Prometheus(), wserv.Tracing())
	if o.requestID {
		router.Use(wserv.RequestID())
	}
	if o.accessLog {
		router.Use(wserv.Logger(logger))
	}
	if o.compress {
		config := wserv.DefaultCompressConfig()
		config.MinSize = o.compressMin
		router.Use(wserv.CompressWithConfig(config))
	}
	return router
}

func serveMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return srv
}

func run(args []string) error {
	o, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := newLogger(o)
	config, err := buildConfig(o, logger)
	if err != nil {
		return err
	}

	var metrics *http.Server
	if o.metricsAddr != "" {
		metrics = serveMetrics(o.metricsAddr, logger)
	}

	server := wserv.New(config)
	if err := server.ListenAndServe(buildRouter(o, logger)); err != nil {
		return fmt.Errorf("listen on %s: %w", config.Addr(), err)
	}
	logger.Info().
		Str("addr", config.Addr()).
		Str("mode", string(config.Mode)).
		Str("engine", string(config.Engine)).
		Msg("listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if metrics != nil {
		_ = metrics.Shutdown(ctx)
	}
	return server.Stop(ctx)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "wserv:", err)
		os.Exit(1)
	}
}
