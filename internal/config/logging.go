package config

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger creates the application logger. Stdout carries MCP and CLI JSON
// output, so callers pass os.Stderr in production.
// Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "mahader",
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
}

// DiscardLogger returns a logger that drops everything. Used by tests and
// by callers that have not configured logging.
func DiscardLogger() *log.Logger {
	return log.New(io.Discard)
}
