// Package log is the process-wide structured logger, a thin layer over slog.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures the global logger.
type Options struct {
	Level string // debug, info, warn, error

	// Format is FormatText or FormatJSON. Empty picks JSON when GO_ENV=production.
	Format string

	// File additionally writes to a size-rotated file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init sets up the global logger at level with default options.
func Init(level string) {
	InitWithOptions(Options{Level: level})
}

// InitWithOptions sets up the global logger. Only the first call takes effect.
func InitWithOptions(opts Options) {
	once.Do(func() {
		logger = slog.New(newHandler(opts))
		slog.SetDefault(logger)
	})
}

func newHandler(opts Options) slog.Handler {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 7),
			LocalTime:  true,
			Compress:   true,
		})
	}

	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	format := opts.Format
	if format == "" && os.Getenv("GO_ENV") == "production" {
		format = FormatJSON
	}
	if format == FormatJSON {
		return slog.NewJSONHandler(out, ho)
	}
	return slog.NewTextHandler(out, ho)
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// L returns the global logger, initializing it at info level on first use.
func L() *slog.Logger {
	InitWithOptions(Options{Level: "info"})
	return logger
}

func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a child logger carrying args on every record.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
