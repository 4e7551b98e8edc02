package strategies

import (
	"dizzycode.xyz/trading-engine/pkg/logger/level"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap implements the Strategy interface using Uber's Zap logger
type Zap struct {
	logger *zap.Logger
}

// ZapOptions configures the Zap strategy
type ZapOptions struct {
	// IsPretty enables human-readable console output (development).
	// JSON output otherwise.
	IsPretty bool

	// Level sets the minimum log level
	Level level.Level
}

// NewZap creates a new Zap strategy with the given options
func NewZap(opts ZapOptions) (*Zap, error) {
	zapLogger, err := buildZap(opts.IsPretty, opts.Level, 3) // zap.go -> Dispatcher.log() -> Dispatcher.Info()
	if err != nil {
		return nil, err
	}
	return &Zap{logger: zapLogger}, nil
}

// buildZap is shared with the direct ZapLogger in the parent package.
func buildZap(isPretty bool, lvl level.Level, callerSkip int) (*zap.Logger, error) {
	var config zap.Config
	if isPretty {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
	}
	config.Level = zap.NewAtomicLevelAt(lvl.ToZapLevel())
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build(zap.AddCallerSkip(callerSkip))
}

// BuildZap builds a raw zap logger with the shared encoder settings
func BuildZap(isPretty bool, lvl level.Level, callerSkip int) (*zap.Logger, error) {
	return buildZap(isPretty, lvl, callerSkip)
}

// Log implements the Strategy interface
func (z *Zap) Log(entry Entry) error {
	fields := make([]zap.Field, len(entry.Fields)+1)
	fields[0] = zap.String("service", entry.ServiceName)
	copy(fields[1:], entry.Fields)

	switch entry.Level {
	case level.Debug:
		z.logger.Debug(entry.Message, fields...)
	case level.Warn:
		z.logger.Warn(entry.Message, fields...)
	case level.Error:
		z.logger.Error(entry.Message, fields...)
	case level.Fatal:
		z.logger.Fatal(entry.Message, fields...)
	default:
		z.logger.Info(entry.Message, fields...)
	}

	return nil
}

// Sync implements the Strategy interface
func (z *Zap) Sync() error {
	return z.logger.Sync()
}
