// Package wserv serves framed stream protocols over TCP: HTTP/1.x with
// length-delimited bodies, or newline-delimited lines.
package wserv

import (
	"fmt"
	"net"
	"strconv"

	"github.com/adityamahendrap/wserv/internal/h1"
	"github.com/adityamahendrap/wserv/internal/transport"
	"github.com/rs/zerolog"
)

// Mode selects the framing discipline.
type Mode string

// Supported modes.
const (
	ModeHTTP Mode = "http"
	ModeLine Mode = "line"
	ModeRaw  Mode = "raw"
)

// Engine selects the socket engine.
type Engine string

// Supported engines.
const (
	EngineGnet Engine = "gnet"
	EngineNet  Engine = "net"
)

// Config holds the listener configuration.
type Config struct {
	Host           string         // Interface to bind to
	Port           int            // TCP port, 0 picks a free one on the net engine
	Mode           Mode           // Framing discipline
	Engine         Engine         // Socket engine
	Multicore      bool           // Run gnet with one event loop per CPU
	NumEventLoop   int            // Number of gnet event loops (0 for auto-detect)
	ReusePort      bool           // Enable SO_REUSEPORT
	MaxConnections int            // Connection cap, 0 for none
	MaxHeaderBytes int            // Cap on an HTTP header block
	MaxLineBytes   int            // Cap on a line message, 0 for none
	ReadBufferSize int            // Largest chunk read from a socket at once
	Logger         zerolog.Logger // Logger for server and connection events
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           1234,
		Mode:           ModeHTTP,
		Engine:         EngineGnet,
		MaxHeaderBytes: h1.DefaultMaxHeaderBytes,
		ReadBufferSize: transport.DefaultReadBufferSize,
		Logger:         zerolog.Nop(),
	}
}

// Validate checks and normalizes the configuration values.
func (c *Config) Validate() error {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	if c.Mode == "" {
		c.Mode = ModeHTTP
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Engine == "" {
		c.Engine = EngineGnet
	}
	if _, err := ParseEngine(string(c.Engine)); err != nil {
		return err
	}

	if c.NumEventLoop < 0 {
		c.NumEventLoop = 0
	}
	if c.MaxConnections < 0 {
		c.MaxConnections = 0
	}
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = h1.DefaultMaxHeaderBytes
	}
	if c.MaxLineBytes < 0 {
		c.MaxLineBytes = 0
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = transport.DefaultReadBufferSize
	}
	return nil
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeHTTP, ModeLine, ModeRaw:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (want http, line or raw)", s)
}

// ParseEngine parses an engine name.
func ParseEngine(s string) (Engine, error) {
	switch e := Engine(s); e {
	case EngineGnet, EngineNet:
		return e, nil
	}
	return "", fmt.Errorf("unknown engine %q (want gnet or net)", s)
}
