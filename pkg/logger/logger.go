package logger

import (
	"sort"
	"time"

	"dizzycode.xyz/trading-engine/pkg/logger/level"
	"dizzycode.xyz/trading-engine/pkg/logger/strategies"

	"go.uber.org/zap"
)

// Logger is the logging contract used across the engine.
//
// Context is passed as map[string]any (or alternating key/value pairs):
//
//	log.Info("Order placed", map[string]any{"symbol": "ETH/USDT", "amount": 0.5})
type Logger interface {
	Debug(msg string, context ...any)
	Info(msg string, context ...any)
	Warn(msg string, context ...any)
	Error(msg string, context ...any)
	Sync() error
}

// Dispatcher fans every entry out to a set of strategies
type Dispatcher struct {
	strategies  []strategies.Strategy
	serviceName string
	baseFields  []zap.Field
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithFields adds permanent fields to the dispatcher
func WithFields(fields map[string]any) Option {
	return func(d *Dispatcher) {
		d.baseFields = append(d.baseFields, toFields(fields)...)
	}
}

// NewDispatcher creates a logger over the given strategies.
// Defaults to Console when none are provided.
func NewDispatcher(serviceName string, strats []strategies.Strategy, opts ...Option) *Dispatcher {
	if len(strats) == 0 {
		strats = []strategies.Strategy{strategies.NewConsole()}
	}

	d := &Dispatcher{
		strategies:  strats,
		serviceName: serviceName,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewNop creates a logger that discards all output
func NewNop() *Dispatcher {
	return &Dispatcher{
		strategies:  []strategies.Strategy{strategies.NewNop()},
		serviceName: "nop",
	}
}

func (d *Dispatcher) log(lvl level.Level, message string, context []any) {
	fields := toFields(ParseContext(context))

	allFields := make([]zap.Field, 0, len(d.baseFields)+len(fields))
	allFields = append(allFields, d.baseFields...)
	allFields = append(allFields, fields...)

	entry := strategies.Entry{
		Level:       lvl,
		Message:     message,
		Fields:      allFields,
		Time:        time.Now(),
		ServiceName: d.serviceName,
	}

	for _, strategy := range d.strategies {
		// a failing sink must not stop the others
		_ = strategy.Log(entry)
	}
}

func (d *Dispatcher) Debug(msg string, context ...any) { d.log(level.Debug, msg, context) }
func (d *Dispatcher) Info(msg string, context ...any)  { d.log(level.Info, msg, context) }
func (d *Dispatcher) Warn(msg string, context ...any)  { d.log(level.Warn, msg, context) }
func (d *Dispatcher) Error(msg string, context ...any) { d.log(level.Error, msg, context) }

// With returns a child dispatcher carrying extra fields on every entry
func (d *Dispatcher) With(fields map[string]any) *Dispatcher {
	extra := toFields(fields)
	newFields := make([]zap.Field, 0, len(d.baseFields)+len(extra))
	newFields = append(newFields, d.baseFields...)
	newFields = append(newFields, extra...)

	return &Dispatcher{
		strategies:  d.strategies,
		serviceName: d.serviceName,
		baseFields:  newFields,
	}
}

// Sync flushes all strategies and returns the last error seen
func (d *Dispatcher) Sync() error {
	var lastErr error
	for _, strategy := range d.strategies {
		if err := strategy.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// toFields converts a context map to zap fields in key order
func toFields(context map[string]any) []zap.Field {
	if len(context) == 0 {
		return nil
	}

	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := context[k].(error); ok {
			fields = append(fields, zap.NamedError(k, err))
			continue
		}
		fields = append(fields, zap.Any(k, context[k]))
	}
	return fields
}
