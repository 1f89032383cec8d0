package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

type Field struct {
	Key   string
	Value any
}

func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Enabled(level Level) bool
}

type zapLogger struct {
	z     *zap.Logger
	level zapcore.Level
}

// New builds a Logger writing logfmt-style console output to out.
func New(out io.Writer, level Level) Logger {
	if out == nil {
		out = os.Stdout
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderCfg.ConsoleSeparator = " "
	zl := zapLevel(level)
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(out),
		zl,
	)
	return &zapLogger{z: zap.New(core), level: zl}
}

func Nop() Logger {
	return &zapLogger{z: zap.NewNop(), level: zapcore.ErrorLevel}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.log(zapcore.DebugLevel, msg, fields) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.log(zapcore.InfoLevel, msg, fields) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.log(zapcore.WarnLevel, msg, fields) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.log(zapcore.ErrorLevel, msg, fields) }

func (l *zapLogger) log(level zapcore.Level, msg string, fields []Field) {
	if l == nil || l.z == nil {
		return
	}
	zapFields := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		zapFields = append(zapFields, zap.Any(field.Key, field.Value))
	}
	switch level {
	case zapcore.DebugLevel:
		l.z.Debug(msg, zapFields...)
	case zapcore.InfoLevel:
		l.z.Info(msg, zapFields...)
	case zapcore.WarnLevel:
		l.z.Warn(msg, zapFields...)
	default:
		l.z.Error(msg, zapFields...)
	}
}

func (l *zapLogger) With(fields ...Field) Logger {
	if l == nil || l.z == nil {
		return Nop()
	}
	zapFields := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		zapFields = append(zapFields, zap.Any(field.Key, field.Value))
	}
	return &zapLogger{z: l.z.With(zapFields...), level: l.level}
}

func (l *zapLogger) Enabled(level Level) bool {
	if l == nil || l.z == nil {
		return false
	}
	return l.z.Core().Enabled(zapLevel(level))
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}
