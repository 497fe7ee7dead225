package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures a logger with pretty console output on stderr
func SetupLogger(debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
}

// SetupLoggerWithLevel configures a logger from a level name. Unknown names
// fall back to info.
func SetupLoggerWithLevel(levelName string) *log.Logger {
	level, err := log.ParseLevel(levelName)
	if err != nil {
		level = log.InfoLevel
	}

	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
}

// SetupFileLogger writes logs to the given writer, for commands that own the
// terminal (the TUI)
func SetupFileLogger(w io.Writer, debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
}
