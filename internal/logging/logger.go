// Package logging provides an explicit logger handle constructed once
// by the caller and threaded through constructors as a dependency,
// replacing the "context-manager logger" pattern called out in spec §9
// design notes. It keeps the teacher's bracketed-component convention
// ("[Component] message").
package logging

import (
	"io"
	"log"
	"os"
)

// Logger wraps the standard library logger with leveled, component
// tagged methods. Debug output is gated on the debug flag.
type Logger struct {
	std   *log.Logger
	debug bool
}

// New constructs a Logger writing to w (os.Stderr in production). debug
// gates Debugf output.
func New(w io.Writer, debug bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{std: log.New(w, "", log.LstdFlags), debug: debug}
}

// Default is a convenience constructor writing to stderr.
func Default(debug bool) *Logger {
	return New(os.Stderr, debug)
}

// Close is a no-op for the stdlib-backed logger but keeps the handle's
// lifecycle explicit so callers can always defer it.
func (l *Logger) Close() error { return nil }

func (l *Logger) Debugf(component, format string, args ...interface{}) {
	if l == nil || !l.debug {
		return
	}
	l.std.Printf("[DEBUG] ["+component+"] "+format, args...)
}

func (l *Logger) Infof(component, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.std.Printf("[INFO] ["+component+"] "+format, args...)
}

func (l *Logger) Warnf(component, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.std.Printf("[WARN] ["+component+"] "+format, args...)
}

func (l *Logger) Errorf(component, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.std.Printf("[ERROR] ["+component+"] "+format, args...)
}
