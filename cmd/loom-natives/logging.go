package main

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/IMS212/loom/internal/natives"
)

// charmLogger adapts a charmbracelet logger to the natives.Logger
// interface.
type charmLogger struct {
	inner *log.Logger
}

func (l *charmLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, keysAndValues...)
}

func (l *charmLogger) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}

func (l *charmLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l *charmLogger) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Error(msg, keysAndValues...)
}

// newLogger builds the CLI logger. Verbose mode lowers the level to
// debug so per-artifact decisions are visible.
func newLogger(w io.Writer, verbose bool) natives.Logger {
	inner := log.NewWithOptions(w, log.Options{
		Prefix: "natives",
	})
	if verbose {
		inner.SetLevel(log.DebugLevel)
	}
	return &charmLogger{inner: inner}
}
