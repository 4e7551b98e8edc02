package logger

import (
	"dizzycode.xyz/trading-engine/pkg/logger/level"
	"dizzycode.xyz/trading-engine/pkg/logger/strategies"

	"go.uber.org/zap"
)

// ZapLogger wraps uber/zap directly, without the strategy fan-out
type ZapLogger struct {
	zap         *zap.Logger
	serviceName string
}

// ZapOptions configures the Zap logger
type ZapOptions struct {
	ServiceName string
	IsPretty    bool        // colored console output for development
	Level       level.Level // minimum level
}

// NewZap creates a new Zap-based logger
func NewZap(opts ZapOptions) (*ZapLogger, error) {
	zapLogger, err := strategies.BuildZap(opts.IsPretty, opts.Level, 1)
	if err != nil {
		return nil, err
	}

	return &ZapLogger{
		zap:         zapLogger,
		serviceName: opts.ServiceName,
	}, nil
}

// NewZapMust creates a new Zap logger and panics on error
func NewZapMust(opts ZapOptions) *ZapLogger {
	l, err := NewZap(opts)
	if err != nil {
		panic(err)
	}
	return l
}

func (z *ZapLogger) convertContext(context []any) []zap.Field {
	fields := toFields(ParseContext(context))
	return append([]zap.Field{zap.String("service", z.serviceName)}, fields...)
}

func (z *ZapLogger) Info(msg string, context ...any) {
	z.zap.Info(msg, z.convertContext(context)...)
}

func (z *ZapLogger) Error(msg string, context ...any) {
	z.zap.Error(msg, z.convertContext(context)...)
}

func (z *ZapLogger) Warn(msg string, context ...any) {
	z.zap.Warn(msg, z.convertContext(context)...)
}

func (z *ZapLogger) Debug(msg string, context ...any) {
	z.zap.Debug(msg, z.convertContext(context)...)
}

// Sync flushes any buffered log entries
func (z *ZapLogger) Sync() error {
	return z.zap.Sync()
}
