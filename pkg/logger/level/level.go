package level

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level is the severity of a log entry
type Level int8

const (
	Debug Level = iota - 1
	Info
	Warn
	Error
	Fatal
)

var names = map[Level]string{
	Debug: "debug",
	Info:  "info",
	Warn:  "warn",
	Error: "error",
	Fatal: "fatal",
}

func (l Level) String() string {
	if name, ok := names[l]; ok {
		return name
	}
	return "unknown"
}

// Enabled reports whether an entry at lvl passes a minimum of l
func (l Level) Enabled(lvl Level) bool {
	return lvl >= l
}

// ToZapLevel converts Level to zapcore.Level
func (l Level) ToZapLevel() zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	case Fatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Parse converts a string to Level, falling back to Info
func Parse(s string) Level {
	lvl, err := ParseStrict(s)
	if err != nil {
		return Info
	}
	return lvl
}

// ParseStrict converts a string to Level and rejects unknown names
func ParseStrict(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	case "fatal":
		return Fatal, nil
	default:
		return Info, fmt.Errorf("unknown log level %q", s)
	}
}
