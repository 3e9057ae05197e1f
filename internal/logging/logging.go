// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	base zerolog.Logger
)

// Setup initialises the global logger exactly once. verbose enables debug
// level. Output defaults to stderr so trend snapshots on stdout stay clean
// for piping.
func Setup(verbose bool, out io.Writer) {
	once.Do(func() {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		if out == nil {
			out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		}
		base = zerolog.New(out).With().Timestamp().Logger()
	})
}

// Component returns a logger tagged with a component name
// (e.g. "monitor", "source").
func Component(name string) zerolog.Logger {
	Setup(false, nil)
	return base.With().Str("component", name).Logger()
}
