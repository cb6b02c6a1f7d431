// Package log implements the diagnostic channel of the push gate. Hooks
// talk to two audiences at once: the human whose push is being judged, who
// sees plain "*** " prefixed lines relayed by git, and the operator, who
// gets the same events as structured log records.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gitlab.com/gitlab-org/refgate/internal/env"
)

// messagePrefix marks every user-facing diagnostic line.
const messagePrefix = "*** "

// HookLogger writes user-facing diagnostics and mirrors them to a
// structured logger.
type HookLogger struct {
	out    io.Writer
	logger *logrus.Entry
}

// NewHookLogger returns a logger writing user-facing lines to stderr.
// Structured output is discarded unless REFGATE_LOG_FILE points at a
// writable file; REFGATE_LOG_LEVEL sets the level. Every invocation gets
// a fresh correlation ID so that one push's records can be grepped
// together.
func NewHookLogger() *HookLogger {
	return NewHookLoggerTo(os.Stderr)
}

// NewHookLoggerTo is NewHookLogger with the user-facing line writer made
// explicit.
func NewHookLoggerTo(out io.Writer) *HookLogger {
	logger := logrus.New()
	logger.Out = io.Discard
	logger.Formatter = &logrus.TextFormatter{DisableColors: true}

	if path := env.GetString("REFGATE_LOG_FILE", ""); path != "" {
		if file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			logger.Out = file
		}
	}

	level, err := logrus.ParseLevel(env.GetString("REFGATE_LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return &HookLogger{
		out:    out,
		logger: logger.WithField("correlation_id", uuid.NewString()),
	}
}

// Print writes one user-facing diagnostic line.
func (l *HookLogger) Print(msg string) {
	fmt.Fprintln(l.out, messagePrefix+msg)
	l.logger.Info(msg)
}

// Printf writes one formatted user-facing diagnostic line.
func (l *HookLogger) Printf(format string, args ...interface{}) {
	l.Print(fmt.Sprintf(format, args...))
}

// Errorf writes a formatted diagnostic and records it at error level.
func (l *HookLogger) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(l.out, messagePrefix+msg)
	l.logger.Error(msg)
}

// Fatal logs the error and terminates the process with a failing status.
func (l *HookLogger) Fatal(err error) {
	l.Fatalf("%v", err)
}

// Fatalf logs a formatted message and terminates the process with a
// failing status.
func (l *HookLogger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(l.out, messagePrefix+msg)
	l.logger.Error(msg)
	os.Exit(1)
}

// WithFields returns the structured side channel enriched with fields.
func (l *HookLogger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.logger.WithFields(fields)
}
