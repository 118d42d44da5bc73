package app

import (
	"fmt"
	"os"
)

// Config holds the validated runtime configuration of a single cob run.
type Config struct {
	// Path is the .cob file or directory of .cob files to load.
	Path string
	// LogFormat selects the logger output: "text" or "json".
	LogFormat string
	// LogLevel selects verbosity: "debug", "info", "warn", or "error".
	LogLevel string
	// DumpResolved emits each resolved file as JSON on stdout.
	DumpResolved bool
}

// NewConfig validates raw option values and returns a usable Config.
func NewConfig(path, logFormat, logLevel string, dumpResolved bool) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("a .cob file or directory path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot access %q: %w", path, err)
	}

	switch logFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"text\" or \"json\"", logFormat)
	}

	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be one of \"debug\", \"info\", \"warn\", \"error\"", logLevel)
	}

	return &Config{
		Path:         path,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		DumpResolved: dumpResolved,
	}, nil
}
