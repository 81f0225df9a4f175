// Package logger builds the structured logger used by the whole process.
package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// TimeLayout renders timestamps as day/month/year hour:minute:second.
const TimeLayout = "02/01/2006 15:04:05"

// Config describes how the application logger should behave.
type Config struct {
	Level  string
	Format string
	// File, when set, receives a copy of every record through a rotating writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Output defaults to os.Stdout.
	Output io.Writer
}

var (
	defaultLogger *slog.Logger
	mu            sync.Mutex
	closers       []io.Closer
)

// Init builds the logger described by cfg and installs it as the package and
// slog default.
func Init(cfg Config) *slog.Logger {
	l, closer := New(cfg)

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		closers = append(closers, closer)
	}
	defaultLogger = l
	slog.SetDefault(l)
	return l
}

// New builds a logger without touching the package state. The returned
// closer is nil when no file output was configured.
func New(cfg Config) (*slog.Logger, io.Closer) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var closer io.Closer
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    positiveOr(cfg.MaxSizeMB, 100),
			MaxBackups: positiveOr(cfg.MaxBackups, 7),
			MaxAge:     positiveOr(cfg.MaxAgeDays, 30),
		}
		out = io.MultiWriter(out, rotating)
		closer = rotating
	}

	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: replaceTime,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), closer
}

func replaceTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, a.Value.Time().Format(TimeLayout))
	}
	return a
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// L returns the process logger, initialising a stdout logger on first use.
func L() *slog.Logger {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	if l == nil {
		return Init(Config{})
	}
	return l
}

// Named returns a child logger tagged with the component name.
func Named(name string) *slog.Logger {
	return L().With(slog.String("component", name))
}

// Sync closes file outputs opened by Init.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()

	var err error
	for _, c := range closers {
		err = errors.Join(err, c.Close())
	}
	closers = nil
	return err
}
