// Package logging constrói o zerolog.Logger do servidor.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New cria um logger estruturado. format "pretty" usa ConsoleWriter,
// qualquer outro valor gera JSON.
func New(level, format string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

func NewWithWriter(out io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if format == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "device-webserver").
		Logger()
}
