package transport

import "github.com/rs/zerolog"

// gnetLogger forwards gnet's internal logs to zerolog.
type gnetLogger struct {
	l zerolog.Logger
}

func (g gnetLogger) Debugf(format string, args ...any) { g.l.Debug().Msgf(format, args...) }
func (g gnetLogger) Infof(format string, args ...any)  { g.l.Info().Msgf(format, args...) }
func (g gnetLogger) Warnf(format string, args ...any)  { g.l.Warn().Msgf(format, args...) }
func (g gnetLogger) Errorf(format string, args ...any) { g.l.Error().Msgf(format, args...) }

// Fatalf does not exit; terminating the process is left to the caller.
func (g gnetLogger) Fatalf(format string, args ...any) { g.l.Error().Msgf(format, args...) }

// antsLogger forwards goroutine pool logs to zerolog.
type antsLogger struct {
	l zerolog.Logger
}

func (a antsLogger) Printf(format string, args ...any) { a.l.Warn().Msgf(format, args...) }
