// Package logging configures the zerolog logger shared by the gateway.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "pdfgateway"

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := New("info", "json", os.Stdout)
	current.Store(&l)
}

// New builds a logger writing to out. format is "json" or "console".
func New(level, format string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Setup replaces the process-wide logger.
func Setup(level, format string, out io.Writer) zerolog.Logger {
	l := New(level, format, out)
	current.Store(&l)
	return l
}

// Default returns the process-wide logger.
func Default() zerolog.Logger {
	return *current.Load()
}

// Logf writes an info line through the process-wide logger.
func Logf(format string, v ...interface{}) {
	l := current.Load()
	l.Info().Msg(fmt.Sprintf(format, v...))
}

// Warnf writes a warn line through the process-wide logger.
func Warnf(format string, v ...interface{}) {
	l := current.Load()
	l.Warn().Msg(fmt.Sprintf(format, v...))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
