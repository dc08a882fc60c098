package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Prefix is the prefix stamped on every line written by the shared logger.
const Prefix = "oxy-morph"

var (
	once      sync.Once
	singleton *log.Logger
)

// Get returns the process-wide logger, creating it on first use.
// The logger writes to stderr at info level with timestamps.
//
// Returns:
//   - *log.Logger: the shared logger
func Get() *log.Logger {
	once.Do(func() {
		singleton = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          Prefix,
			Level:           log.InfoLevel,
		})
	})
	return singleton
}

// Configure applies a level name and output format to the shared logger.
//
// Parameters:
//   - level: one of debug, info, warn, error, fatal (case insensitive). Empty keeps the current level.
//   - format: one of text, json, logfmt. Empty keeps the current format.
//
// Returns:
//   - error: an error if level or format is not recognized
func Configure(level, format string) error {
	l := Get()
	if level != "" {
		lvl, err := log.ParseLevel(strings.ToLower(level))
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		l.SetLevel(lvl)
	}

	switch strings.ToLower(format) {
	case "":
	case "text":
		l.SetFormatter(log.TextFormatter)
	case "json":
		l.SetFormatter(log.JSONFormatter)
	case "logfmt":
		l.SetFormatter(log.LogfmtFormatter)
	default:
		return fmt.Errorf("logger: unknown format %q", format)
	}
	return nil
}

// SetOutput redirects the shared logger.
//
// Parameters:
//   - w: the destination writer
func SetOutput(w io.Writer) {
	Get().SetOutput(w)
}

// Component returns a child logger whose prefix names a subsystem, e.g. "oxy-morph/kernels".
//
// Parameters:
//   - name: the subsystem name
//
// Returns:
//   - *log.Logger: the child logger, copied from the shared logger's current settings
func Component(name string) *log.Logger {
	return Get().WithPrefix(Prefix + "/" + name)
}

// Debug logs msg with structured key/value pairs at debug level.
func Debug(msg string, keyvals ...any) {
	Get().Helper()
	Get().Debug(msg, keyvals...)
}

// Info logs msg with structured key/value pairs at info level.
func Info(msg string, keyvals ...any) {
	Get().Helper()
	Get().Info(msg, keyvals...)
}

// Warn logs msg with structured key/value pairs at warn level.
func Warn(msg string, keyvals ...any) {
	Get().Helper()
	Get().Warn(msg, keyvals...)
}

// Error logs msg with structured key/value pairs at error level.
func Error(msg string, keyvals ...any) {
	Get().Helper()
	Get().Error(msg, keyvals...)
}
