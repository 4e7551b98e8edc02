package strategies

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"dizzycode.xyz/trading-engine/pkg/logger/level"

	"go.uber.org/zap/zapcore"
)

// Console writes human readable lines, suitable for tests and local runs
type Console struct {
	out        io.Writer
	colored    bool
	prettyJSON bool
	minLevel   level.Level
	mu         sync.Mutex
}

// ConsoleOptions configures the Console strategy
type ConsoleOptions struct {
	Out        io.Writer // default os.Stdout
	Colored    bool
	PrettyJSON bool
	MinLevel   level.Level
}

// NewConsole creates a new Console strategy
func NewConsole(opts ...ConsoleOptions) *Console {
	c := &Console{
		out:        os.Stdout,
		colored:    true,
		prettyJSON: true,
		minLevel:   level.Debug,
	}

	if len(opts) > 0 {
		if opts[0].Out != nil {
			c.out = opts[0].Out
		}
		c.colored = opts[0].Colored
		c.prettyJSON = opts[0].PrettyJSON
		c.minLevel = opts[0].MinLevel
	}

	return c
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

func (c *Console) levelString(lvl level.Level) string {
	if !c.colored {
		return lvl.String()
	}

	color := ""
	switch lvl {
	case level.Debug:
		color = colorGray
	case level.Info:
		color = colorBlue
	case level.Warn:
		color = colorYellow
	case level.Error, level.Fatal:
		color = colorRed
	}
	return color + lvl.String() + colorReset
}

// Log implements the Strategy interface
func (c *Console) Log(entry Entry) error {
	if !c.minLevel.Enabled(entry.Level) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// timestamp LEVEL: message
	if _, err := fmt.Fprintf(c.out, "%s %s: %s\n",
		entry.Time.Format(time.RFC3339),
		c.levelString(entry.Level),
		entry.Message,
	); err != nil {
		return err
	}

	if len(entry.Fields) == 0 {
		return nil
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range entry.Fields {
		field.AddTo(enc)
	}
	fieldsMap := enc.Fields
	fieldsMap["service"] = entry.ServiceName

	var (
		jsonBytes []byte
		err       error
	)
	if c.prettyJSON {
		jsonBytes, err = json.MarshalIndent(fieldsMap, "", "  ")
	} else {
		jsonBytes, err = json.Marshal(fieldsMap)
	}
	if err != nil {
		_, werr := fmt.Fprintf(c.out, "  (failed to marshal fields: %v)\n", err)
		return werr
	}

	_, err = fmt.Fprintf(c.out, "%s\n", jsonBytes)
	return err
}

// Sync implements the Strategy interface
func (c *Console) Sync() error {
	if f, ok := c.out.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		return f.Sync()
	}
	return nil
}
