// Package logging provides the zap-backed loggers used across the service.
package logging

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level         = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	defaultLogger *zap.SugaredLogger
	loggerOnce    sync.Once
)

// SetLogLevel sets the level of every logger with ["debug", "info", "warn", "error"].
func SetLogLevel(lvl string) error {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "info":
		level.SetLevel(zapcore.InfoLevel)
	case "warn":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	default:
		return fmt.Errorf("invalid log level: %s", lvl)
	}
	return nil
}

// New creates a named logger.
func New(name string) *zap.SugaredLogger {
	return newLogger(name)
}

// Default returns the process-wide logger.
func Default() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		defaultLogger = newLogger("plantuml-studio")
	})
	return defaultLogger
}

func newLogger(name string) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)).Named(name).Sugar()
}

type requestIDKey struct{}

// WithRequestID stores a request ID in ctx for FromContext.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request ID set by WithRequestID.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides structured logging for services, tagged with the request ID
// and the operation being performed.
type Logger struct {
	requestID string
	sugar     *zap.SugaredLogger
}

// FromContext creates a logger with request context.
func FromContext(ctx context.Context) *Logger {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	return &Logger{
		requestID: requestID,
		sugar:     Default().With("request_id", requestID),
	}
}

func (l *Logger) RequestID() string { return l.requestID }

func (l *Logger) LogError(operation string, err error) {
	l.sugar.Errorw(err.Error(), "operation", operation)
}

func (l *Logger) LogErrorf(operation string, format string, args ...interface{}) {
	l.sugar.Errorw(fmt.Sprintf(format, args...), "operation", operation)
}

func (l *Logger) LogInfo(operation string, message string) {
	l.sugar.Infow(message, "operation", operation)
}

func (l *Logger) LogInfof(operation string, format string, args ...interface{}) {
	l.sugar.Infow(fmt.Sprintf(format, args...), "operation", operation)
}

func (l *Logger) LogWarn(operation string, message string) {
	l.sugar.Warnw(message, "operation", operation)
}

func (l *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	l.sugar.Warnw(fmt.Sprintf(format, args...), "operation", operation)
}

func (l *Logger) LogDebugf(operation string, format string, args ...interface{}) {
	l.sugar.Debugw(fmt.Sprintf(format, args...), "operation", operation)
}
