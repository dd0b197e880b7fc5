package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted in Config.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Output formats accepted in Config.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// DefaultName is the logger name used when Config.Name is empty.
const DefaultName = "treadwell"

// Config describes how to build a Logger. The zero value logs errors only,
// in console format, to stderr.
type Config struct {
	Name   string    `yaml:"name,omitempty"`
	Level  string    `yaml:"level,omitempty"`
	Format string    `yaml:"format,omitempty"`
	Output io.Writer `yaml:"-"`
}

// Logger is a leveled, structured logger. Debug, Info, Warn and Error come
// from the embedded zap logger.
type Logger struct {
	*zap.Logger
	level zapcore.Level
}

// New builds a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	level := ParseLevel(cfg.Level)
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = DefaultName
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var encoder zapcore.Encoder
	switch format := strings.ToLower(strings.TrimSpace(cfg.Format)); format {
	case "", FormatConsole:
		encoder = zapcore.NewConsoleEncoder(consoleEncoderConfig(time.Now()))
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	return &Logger{Logger: zap.New(core).Named(name), level: level}, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zapcore.FatalLevel}
}

// Log is an alias for Info.
func (l *Logger) Log(msg string, fields ...zap.Field) {
	l.Info(msg, fields...)
}

// Named returns a child logger with name appended to the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), level: l.level}
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), level: l.level}
}

// Level reports the minimum enabled level.
func (l *Logger) Level() zapcore.Level {
	return l.level
}

// Close flushes buffered entries.
func (l *Logger) Close() error {
	if l == nil || l.Logger == nil {
		return nil
	}
	return l.Sync()
}

// ParseLevel maps a level name to a zap level. Empty or unknown names map to
// error, so an unconfigured logger stays quiet.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn, "warning":
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	}
	return zapcore.ErrorLevel
}

// consoleEncoderConfig prints the time column as seconds elapsed since start.
func consoleEncoderConfig(start time.Time) zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		elapsed := t.Sub(start)
		if elapsed < 0 {
			elapsed = 0
		}
		ms := elapsed.Milliseconds()
		enc.AppendString(fmt.Sprintf("%d.%03ds", ms/1000, ms%1000))
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	return cfg
}
