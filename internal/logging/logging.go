// Package logging builds the charmbracelet loggers used by the exporter,
// the HTTP server and the CLI, and carries them through context.Context.
package logging

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// TimeFormat renders timestamps as "HH:MM:SS.cc" (e.g. "14:32:01.45").
const TimeFormat = "15:04:05.00"

// New creates a logger that writes to w and filters below level.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Level:           level,
	})
}

// Discard returns a logger that drops everything. Library callers get it
// when they do not supply their own.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ParseLevel maps a level name to a log.Level, falling back to info.
func ParseLevel(name string) log.Level {
	if name == "" {
		return log.InfoLevel
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// Progress tracks the start time of an operation and logs completion with
// the elapsed duration. Not safe for concurrent use.
type Progress struct {
	logger *log.Logger
	start  time.Time
}

// NewProgress starts a progress tracker at the current time.
func NewProgress(l *log.Logger) *Progress {
	return &Progress{logger: l, start: time.Now()}
}

// Done logs msg with the elapsed time rounded to the millisecond.
// Example output: "exported report.pdf (1.234s)"
func (p *Progress) Done(msg string, keyvals ...any) {
	p.logger.Info(msg, append([]any{"elapsed", p.Elapsed()}, keyvals...)...)
}

// Elapsed returns the time since the tracker started, rounded to the millisecond.
func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}

type ctxKey int

const loggerKey ctxKey = 0

// WithLogger returns a new context carrying l.
func WithLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger carried by ctx, or log.Default().
func FromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok && l != nil {
		return l
	}
	return log.Default()
}
