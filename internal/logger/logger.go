package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	out io.Writer
}

type Option func(*options)

// WithOutput sends log lines to w instead of stderr.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// Init sets the global level and format. Unknown levels fall back to info;
// format "console" gives human-readable lines, anything else JSON.
func Init(level string, format string, opts ...Option) {
	o := options{out: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	out := o.out
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: o.out, TimeFormat: "15:04:05.000"}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "photosync").Logger()
}

func Get() zerolog.Logger {
	return log.Logger
}
