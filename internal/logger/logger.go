// Package logger is the process-wide printf-style logger, backed by zap.
//
// Output is discarded until a file or writer is configured, so log lines
// never interleave with the interactive shell. DUAL_AI_LOG_LEVEL and
// DUAL_AI_LOG_FILE are honored at startup, before configuration is loaded.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func (l Level) zap() zapcore.Level {
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

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level: %s", s)
}

// Logger writes "2006/01/02 15:04:05 [LEVEL] message" lines.
type Logger struct {
	mu    sync.Mutex
	atom  zap.AtomicLevel
	sugar *zap.SugaredLogger
	file  *os.File
}

// Default is used by the package-level functions.
var Default = New()

// New creates a logger at info level writing nowhere, then applies the
// DUAL_AI_LOG_LEVEL and DUAL_AI_LOG_FILE environment variables.
func New() *Logger {
	l := &Logger{atom: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	l.sugar = l.build(io.Discard)

	if s := os.Getenv("DUAL_AI_LOG_LEVEL"); s != "" {
		if lvl, err := ParseLevel(s); err == nil {
			l.atom.SetLevel(lvl.zap())
		}
	}
	if path := os.Getenv("DUAL_AI_LOG_FILE"); path != "" {
		_ = l.openFile(path)
	}
	return l
}

func (l *Logger) build(w io.Writer) *zap.SugaredLogger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:    "ts",
		LevelKey:   "level",
		MessageKey: "msg",
		EncodeTime: zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05"),
		EncodeLevel: func(lvl zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString("[" + lvl.CapitalString() + "]")
		},
		ConsoleSeparator: " ",
		LineEnding:       zapcore.DefaultLineEnding,
	})
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), l.atom)).Sugar()
}

// Configure applies a level name and a log file path. Empty values leave
// the current setting untouched.
func (l *Logger) Configure(level, file string) error {
	if level != "" {
		lvl, err := ParseLevel(level)
		if err != nil {
			return err
		}
		l.SetLevel(lvl)
	}
	if file == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openFile(file)
}

// openFile appends to path, creating parent directories. Caller holds mu.
func (l *Logger) openFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = f
	l.sugar = l.build(f)
	return nil
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.sugar.Sync()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) SetLevel(level Level) {
	l.atom.SetLevel(level.zap())
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	switch l.atom.Level() {
	case zapcore.DebugLevel:
		return LevelDebug
	case zapcore.WarnLevel:
		return LevelWarn
	case zapcore.ErrorLevel:
		return LevelError
	default:
		return LevelInfo
	}
}

// SetOutput redirects output to w. An open log file stays open until Close.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sugar = l.build(w)
}

func (l *Logger) Debug(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *Logger) logf(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sugar.Logf(level.zap(), format, args...)
}

func Debug(format string, args ...any) { Default.Debug(format, args...) }
func Info(format string, args ...any)  { Default.Info(format, args...) }
func Warn(format string, args ...any)  { Default.Warn(format, args...) }
func Error(format string, args ...any) { Default.Error(format, args...) }

// Configure configures the default logger.
func Configure(level, file string) error { return Default.Configure(level, file) }

// Close closes the default logger.
func Close() error { return Default.Close() }
