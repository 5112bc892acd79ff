// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/spektr-org/tally/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a logger writing to w, or to cfg.File when one is set.
// The returned closer releases the log file.
func New(cfg config.LoggingConfig, w io.Writer) (*log.Logger, io.Closer, error) {
	level, err := log.ParseLevel(orDefault(cfg.Level, "info"))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
		Formatter:       formatter(cfg.Format),
	})
	return logger, closer, nil
}

// Init builds the logger and installs it as the package default.
func Init(cfg config.LoggingConfig) (*log.Logger, io.Closer, error) {
	logger, closer, err := New(cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	log.SetDefault(logger)
	return logger, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func formatter(name string) log.Formatter {
	switch name {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	}
	return log.TextFormatter
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
