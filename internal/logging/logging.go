// Package logging configures the process-wide charmbracelet/log logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// ParseLevel maps a config level name to a log.Level.
func ParseLevel(level string) (log.Level, error) {
	switch level {
	case "", "info":
		return log.InfoLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	}
	return log.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// ParseFormatter maps a config format name to a log.Formatter.
func ParseFormatter(format string) (log.Formatter, error) {
	switch format {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	}
	return log.TextFormatter, fmt.Errorf("unknown log format %q", format)
}

// New builds a logger writing to w. Unknown names fall back to info and text.
func New(w io.Writer, level, format, prefix string) *log.Logger {
	lvl, _ := ParseLevel(level)
	f, _ := ParseFormatter(format)
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Formatter:       f,
		ReportTimestamp: true,
		Prefix:          prefix,
	})
}

// Setup replaces the default logger, writing to stderr.
func Setup(level, format, prefix string) {
	log.SetDefault(New(os.Stderr, level, format, prefix))
}
