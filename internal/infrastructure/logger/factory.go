package logger

import (
	"dizzycode.xyz/trading-engine/internal/infrastructure/config"
	"dizzycode.xyz/trading-engine/pkg/logger"
	"dizzycode.xyz/trading-engine/pkg/logger/level"
	"dizzycode.xyz/trading-engine/pkg/logger/strategies"
)

const serviceName = "trading-engine"

// New creates a logger instance based on configuration
func New(cfg *config.Config) (logger.Logger, error) {
	lvl := level.Parse(cfg.LogLevel)

	if cfg.LogFormat == "console" {
		return logger.NewDispatcher(serviceName, []strategies.Strategy{
			strategies.NewConsole(strategies.ConsoleOptions{
				Colored:    cfg.IsDevelopment(),
				PrettyJSON: cfg.IsDevelopment(),
				MinLevel:   lvl,
			}),
		}, logger.WithFields(map[string]any{"env": cfg.Environment})), nil
	}

	return logger.NewZap(logger.ZapOptions{
		ServiceName: serviceName,
		IsPretty:    cfg.IsDevelopment(),
		Level:       lvl,
	})
}

// Must creates a logger and panics on error
func Must(cfg *config.Config) logger.Logger {
	log, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return log
}
