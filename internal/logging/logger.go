// Package logging provides the structured logger used throughout
// canvas-server. It wraps a zap.SugaredLogger behind the same leveled,
// key-value call shape the rest of the code expects (Debug/Info/Warn/Error
// plus a handful of With* helpers that attach worker/connection context),
// so call sites never touch zap directly.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel mirrors zapcore.Level with canvas-server's own names so callers
// never need to import zap.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps the standard level names ("debug", "info", "warn",
// "error", case-insensitive) to a LogLevel. Unrecognized input reports ok
// == false rather than silently defaulting, so callers can decide whether
// to warn about a bad CANVAS_LOG_LEVEL value.
func ParseLevel(s string) (level LogLevel, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Config holds logging configuration.
type Config struct {
	Level   LogLevel
	Format  string // "json" or "text" (console); defaults to "text"
	Output  io.Writer
	NoColor bool
}

// DefaultConfig returns a sensible default configuration: text encoding to
// stderr at info level, honoring the CANVAS_LOG_LEVEL environment variable
// ("debug", "info", "warn", "error") when set.
func DefaultConfig() *Config {
	level := LevelInfo
	if v := os.Getenv("CANVAS_LOG_LEVEL"); v != "" {
		if parsed, ok := ParseLevel(v); ok {
			level = parsed
		}
	}
	return &Config{
		Level:  level,
		Format: "text",
		Output: os.Stderr,
	}
}

// Logger is the structured logger used across workers, the master, and the
// transport layer. It is safe for concurrent use.
type Logger struct {
	sugar *zap.SugaredLogger
}

// NewLogger builds a Logger from Config, defaulting to DefaultConfig() when
// config is nil.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if !config.NoColor && config.Format != "json" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if config.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), config.Level.zapLevel())
	zl := zap.New(core)
	return &Logger{sugar: zl.Sugar()}
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// Default returns the process-wide default logger, creating it on first use.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

func (l *Logger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.sugar.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.sugar.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, kv...) }

// Debugf/Infof/Warnf/Errorf are kept for call sites that format a single
// string rather than passing key-value pairs.
func (l *Logger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Printf gives Logger the shape of the stdlib-ish *log.Logger callers that
// only want an info-level sink.
func (l *Logger) Printf(format string, args ...any) { l.Infof(format, args...) }

// WithWorker returns a Logger that tags every entry with worker_id.
func (l *Logger) WithWorker(id int) *Logger {
	return &Logger{sugar: l.sugar.With("worker_id", id)}
}

// WithConn returns a Logger that tags every entry with conn_id.
func (l *Logger) WithConn(id uint64) *Logger {
	return &Logger{sugar: l.sugar.With("conn_id", id)}
}

// WithError returns a Logger that tags every entry with the given error.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{sugar: l.sugar.With("error", err)}
}

// Sync flushes any buffered log entries. Call before process exit.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Global convenience functions operating on the default logger.
func Debug(msg string, kv ...any) { Default().Debug(msg, kv...) }
func Info(msg string, kv ...any)  { Default().Info(msg, kv...) }
func Warn(msg string, kv ...any)  { Default().Warn(msg, kv...) }
func Error(msg string, kv ...any) { Default().Error(msg, kv...) }
