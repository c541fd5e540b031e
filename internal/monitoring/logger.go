// Package monitoring provides the diagnostic logger shared by the calibration
// pipeline. A Logger carries three independent streams so callers can route
// actionable warnings separately from high-volume telemetry.
package monitoring

import (
	"io"
	"log"
)

// Logger routes messages to the ops, diag and trace streams. A nil stream is
// silently dropped. The zero value and a nil *Logger both discard everything.
type Logger struct {
	ops   *log.Logger
	diag  *log.Logger
	trace *log.Logger
}

// NewLogger builds a Logger with the given prefix on every stream.
// Pass nil for any writer to disable that stream.
func NewLogger(prefix string, ops, diag, trace io.Writer) *Logger {
	return &Logger{
		ops:   newLogger(prefix, ops),
		diag:  newLogger(prefix, diag),
		trace: newLogger(prefix, trace),
	}
}

// Discard returns a Logger with every stream disabled.
func Discard() *Logger {
	return &Logger{}
}

// With returns a copy of l for one component. Its streams write to the same
// writers with prefix appended to l's prefix.
func (l *Logger) With(prefix string) *Logger {
	if l == nil {
		return Discard()
	}
	return &Logger{
		ops:   withPrefix(l.ops, prefix),
		diag:  withPrefix(l.diag, prefix),
		trace: withPrefix(l.trace, prefix),
	}
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func withPrefix(lg *log.Logger, prefix string) *log.Logger {
	if lg == nil {
		return nil
	}
	return log.New(lg.Writer(), lg.Prefix()+prefix, lg.Flags())
}

// Opsf logs to the ops stream (actionable warnings, errors, data loss).
func (l *Logger) Opsf(format string, args ...interface{}) {
	if l != nil && l.ops != nil {
		l.ops.Printf(format, args...)
	}
}

// Diagf logs to the diag stream (day-to-day diagnostics, threshold context).
func (l *Logger) Diagf(format string, args ...interface{}) {
	if l != nil && l.diag != nil {
		l.diag.Printf(format, args...)
	}
}

// Tracef logs to the trace stream (per-record telemetry).
func (l *Logger) Tracef(format string, args ...interface{}) {
	if l != nil && l.trace != nil {
		l.trace.Printf(format, args...)
	}
}

// Printf adapts the ops stream to Printf-style logger interfaces.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.Opsf(format, args...)
}

// Verbose reports whether the diag stream is enabled.
func (l *Logger) Verbose() bool {
	return l != nil && l.diag != nil
}
