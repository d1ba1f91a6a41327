// Package logger builds the service's zerolog logger.
//
// Every line carries the service name. Request-scoped lines also carry the
// X-Request-ID assigned by the HTTP layer, see WithRequestID.
//
//	TRACE (-1) → DEBUG (0) → INFO (1) → WARN (2) → ERROR (3)
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// ServiceField names the service on every line.
	ServiceField = "service"
	// RequestIDField is the request correlation id.
	RequestIDField = "request_id"
)

// Options controls how the logger is built.
type Options struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Defaults to "info" when empty or unrecognised.
	Level string
	// Pretty enables human-friendly console output. Use false in production
	// to emit pure JSON.
	Pretty bool
	// Output is the writer logs are sent to. Defaults to os.Stdout.
	Output io.Writer
	// Service is stamped on every line. Omitted when empty.
	Service string
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// New builds a logger from opts. The level applies to this logger only, so
// tests can build several side by side.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str(ServiceField, opts.Service)
	}
	return ctx.Caller().Logger()
}

// WithRequestID returns a child logger tagged with the request id. An empty
// id returns log unchanged.
func WithRequestID(log zerolog.Logger, id string) zerolog.Logger {
	if id == "" {
		return log
	}
	return log.With().Str(RequestIDField, id).Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
