// ABOUTME: Diagnostic logger for CLI commands
// ABOUTME: Level follows the global --verbose and --quiet flags
package commands

import (
	"io"

	"github.com/charmbracelet/log"
)

func newLogger(w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "converse",
		ReportTimestamp: true,
		Level:           log.WarnLevel,
	})
	switch {
	case verbose:
		logger.SetLevel(log.DebugLevel)
	case quiet:
		logger.SetLevel(log.ErrorLevel)
	}
	return logger
}
