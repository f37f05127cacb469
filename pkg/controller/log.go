package controller

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// LogLevel controls controller log verbosity.
type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelTrace:
		return "trace"
	default:
		return "none"
	}
}

// ParseLogLevel maps a level name or digit to a LogLevel, defaulting to warn.
func ParseLogLevel(raw string) LogLevel {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "none", "off", "0":
		return LogLevelNone
	case "error", "err", "1":
		return LogLevelError
	case "warn", "warning", "2":
		return LogLevelWarn
	case "info", "3":
		return LogLevelInfo
	case "debug", "4":
		return LogLevelDebug
	case "trace", "5":
		return LogLevelTrace
	default:
		return LogLevelWarn
	}
}

func logLevelFromEnv() LogLevel {
	return ParseLogLevel(os.Getenv("JSCOPE_LOG_LEVEL"))
}

// logEvent writes one JSON line when level passes the configured threshold.
func (c *Controller) logEvent(level LogLevel, event string, fields map[string]any) {
	if c == nil || level == LogLevelNone || c.logLevel == LogLevelNone || level > c.logLevel {
		return
	}
	payload := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level.String(),
		"component": "controller",
		"event":     event,
	}
	for k, v := range fields {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		c.logger.Printf("controller: failed to marshal log event %s: %v", event, err)
		return
	}
	c.logger.Printf("%s", b)
}

func defaultLogger() *log.Logger {
	return log.Default()
}
