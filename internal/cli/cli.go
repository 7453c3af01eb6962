// Package cli parses command-line arguments for binaries built on the run
// core and constructs their logger from the effective configuration.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/coot/tasty"
	"github.com/coot/tasty/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments into an effective run
// configuration. Flags override values from the optional HCL config file.
// It returns the configuration, a boolean indicating the program should exit
// cleanly (help requested), or an ExitError.
func Parse(name string, args []string, output io.Writer) (*config.Config, bool, error) {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprintf(output, `%s - runs a test suite with bounded parallelism.

Usage:
  %s [options]

Options:
`, name, name)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to an HCL run configuration file.")
	workersFlag := flagSet.Int("workers", 0, "Number of tests executed concurrently. 0 uses the config file or the CPU count.")
	timeoutFlag := flagSet.String("timeout", "", "Per-test timeout as a duration, e.g. '30s'. Empty means no timeout unless the config file sets one.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg := config.Default()
	if *configFlag != "" {
		loaded, err := config.LoadFile(*configFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		cfg = loaded
	}

	if *workersFlag != 0 {
		if *workersFlag < 0 {
			return nil, false, &ExitError{Code: 2, Message: "workers must be positive"}
		}
		cfg.Workers = *workersFlag
	}
	if *timeoutFlag != "" {
		d, err := time.ParseDuration(*timeoutFlag)
		if err != nil || d <= 0 {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid timeout %q", *timeoutFlag)}
		}
		cfg.Timeout = &tasty.Timeout{Duration: d, Label: *timeoutFlag}
	}
	if *logFormatFlag != "" {
		format := strings.ToLower(*logFormatFlag)
		if format != "text" && format != "json" {
			return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
		}
		cfg.LogFormat = format
	}
	if *logLevelFlag != "" {
		level := strings.ToLower(*logLevelFlag)
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
		}
	}

	return cfg, false, nil
}

// NewLogger creates a slog.Logger per the configuration. It does not set the
// global logger, allowing for isolated logger instances.
func NewLogger(cfg *config.Config, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}
