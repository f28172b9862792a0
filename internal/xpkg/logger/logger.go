package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"room-service/internal/xpkg/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logger shared by every service mode.
// Action scopes the following records to a named step, e.g. "order_created".
type Logger interface {
	Action(action string) Logger
	With(args ...any) Logger
	WithGroup(name string) Logger

	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, err error, args ...any)
}

type Option func(*options)

type options struct {
	out      io.Writer
	file     string
	hostname string
}

// WithWriter sends records to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithFile writes records to a size-rotated file.
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

type logger struct {
	sl *slog.Logger
}

// New creates a JSON logger for the given level (DEBUG, INFO, WARN, ERROR).
func New(level string, opts ...Option) (Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	o := &options{out: os.Stdout}
	o.hostname, _ = os.Hostname()
	for _, opt := range opts {
		opt(o)
	}

	out := o.out
	if o.file != "" {
		out = &lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    32, // megabytes
			MaxBackups: 2,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	h := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 {
				switch a.Key {
				case slog.TimeKey:
					a.Key = "timestamp"
				case slog.MessageKey:
					a.Key = "message"
				}
			}
			return a
		},
	})

	return &logger{sl: slog.New(h).With("hostname", o.hostname)}, nil
}

// FromConfig builds the logger described by the logging section.
func FromConfig(cfg *config.Logging) (Logger, error) {
	if cfg == nil {
		return New("INFO")
	}
	var opts []Option
	if cfg.File != "" {
		opts = append(opts, WithFile(cfg.File))
	}
	return New(cfg.Level, opts...)
}

// Nop discards everything. Useful in tests.
func Nop() Logger {
	return &logger{sl: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

func (l *logger) Action(action string) Logger {
	return &logger{sl: l.sl.With("action", action)}
}

func (l *logger) With(args ...any) Logger {
	return &logger{sl: l.sl.With(args...)}
}

func (l *logger) WithGroup(name string) Logger {
	return &logger{sl: l.sl.WithGroup(name)}
}

func (l *logger) Debug(msg string, args ...any) {
	l.sl.Debug(msg, args...)
}

func (l *logger) Info(msg string, args ...any) {
	l.sl.Info(msg, args...)
}

func (l *logger) Warn(msg string, args ...any) {
	l.sl.Warn(msg, args...)
}

func (l *logger) Error(msg string, err error, args ...any) {
	if !l.sl.Enabled(context.Background(), slog.LevelError) {
		return
	}
	if err != nil {
		buf := make([]byte, 1024)
		n := runtime.Stack(buf, false)
		args = append(args, slog.Group("error",
			slog.String("msg", err.Error()),
			slog.String("stack", string(buf[:n])),
		))
	}
	l.sl.Error(msg, args...)
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
