package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Logger is a thin chainable wrapper around slog that tags every entry with
// the package, file, and function it came from.
type Logger struct {
	log *slog.Logger
}

func Init(environment string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if environment == "development" || environment == "test" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func New(pkg string) Logger {
	return Logger{log: slog.Default().With("package", pkg)}
}

func (l Logger) Function(name string) Logger {
	return Logger{log: l.log.With("function", name)}
}

func (l Logger) File(name string) Logger {
	return Logger{log: l.log.With("file", name)}
}

func (l Logger) With(args ...any) Logger {
	return Logger{log: l.log.With(args...)}
}

func (l Logger) Debug(msg string, args ...any) {
	l.log.Debug(msg, args...)
}

func (l Logger) Info(msg string, args ...any) {
	l.log.Info(msg, args...)
}

func (l Logger) Warn(msg string, args ...any) {
	l.log.Warn(msg, args...)
}

// Er logs an error without returning one, for paths that recover or continue.
func (l Logger) Er(msg string, err error, args ...any) {
	l.log.Error(msg, append([]any{"error", err}, args...)...)
}

func (l Logger) ErMsg(msg string, args ...any) {
	l.log.Error(msg, args...)
}

// Err logs and returns an error wrapping the cause, so call sites can do
// `return log.Err("failed to ...", err)` in one line.
func (l Logger) Err(msg string, err error, args ...any) error {
	l.Er(msg, err, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

// Error logs and returns a new error built from the message and key-value
// context.
func (l Logger) Error(msg string, args ...any) error {
	l.log.Error(msg, args...)
	if len(args) == 0 {
		return fmt.Errorf("%s", msg)
	}

	parts := make([]string, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", args[i], args[i+1]))
	}
	return fmt.Errorf("%s (%s)", msg, strings.Join(parts, " "))
}

func (l Logger) ErrMsg(msg string) error {
	l.log.Error(msg)
	return fmt.Errorf("%s", msg)
}
