// Package logging builds the single logger a pgp-cp run writes its audit
// trail to. The sink is chosen once at startup from a closed set.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// AppName is attached to every record and used as the syslog tag.
const AppName = "pgp-cp"

// Destination is a logging sink.
type Destination string

const (
	// DestStream writes human readable records to a stream (stderr).
	DestStream Destination = "stream"
	// DestSyslog sends records to the local system logger.
	DestSyslog Destination = "syslog"
	// DestNone discards all records.
	DestNone Destination = "none"
)

// Destinations lists the accepted destinations in flag order.
var Destinations = []Destination{DestStream, DestSyslog, DestNone}

// ParseDestination validates a destination name.
func ParseDestination(s string) (Destination, error) {
	for _, d := range Destinations {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown log destination %q", s)
}

// Config selects the sink and verbosity.
type Config struct {
	Destination Destination
	Verbose     bool

	// Stream is the writer for DestStream. Defaults to os.Stderr.
	Stream io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the logger. The returned closer must be called before the
// process exits; it releases the syslog connection when there is one.
func Open(cfg Config) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)

	switch cfg.Destination {
	case DestStream, "":
		out := cfg.Stream
		if out == nil {
			out = os.Stderr
		}
		w = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    !isTerminal(out),
			TimeFormat: time.RFC3339,
		}
	case DestSyslog:
		sw, err := openSyslog()
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("connect to syslog: %w", err)
		}
		w = zerolog.SyslogLevelWriter(sw)
		closer = sw
	case DestNone:
		return zerolog.Nop(), closer, nil
	default:
		return zerolog.Nop(), nil, fmt.Errorf("unknown log destination %q", cfg.Destination)
	}

	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("app", AppName).
		Logger()

	return logger, closer, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
