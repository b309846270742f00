// Package logger provides zap-backed implementations of the
// readerpool.Logger interface.
package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/forkserve/readerpool"
)

// ZapLogger adapts a zap.SugaredLogger to readerpool.Logger.
// The context argument is accepted for interface compatibility and ignored.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ readerpool.Logger = (*ZapLogger)(nil)

// NewZap creates a production-configured zap logger.
func NewZap() (*ZapLogger, error) {
	z, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return FromZap(z), nil
}

// NewZapDevelopment creates a development-configured zap logger with
// human-readable output.
func NewZapDevelopment() (*ZapLogger, error) {
	z, err := zap.NewDevelopment(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return FromZap(z), nil
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: z.Sugar()}
}

// Debug implements readerpool.Logger.
func (l *ZapLogger) Debug(_ context.Context, msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

// Info implements readerpool.Logger.
func (l *ZapLogger) Info(_ context.Context, msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

// Warn implements readerpool.Logger.
func (l *ZapLogger) Warn(_ context.Context, msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

// Error implements readerpool.Logger.
func (l *ZapLogger) Error(_ context.Context, msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

// Nop returns a logger that discards everything.
func Nop() *ZapLogger {
	return FromZap(zap.NewNop())
}
