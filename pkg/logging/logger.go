// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging builds the structured loggers the grid service and CLI
// run on.
//
// Output goes to stderr by default, following Unix CLI conventions, with
// optional JSON file logging for deployed instances. Everything is built on
// the standard library slog package; this package only assembles handlers.
//
// This package does NOT redact sensitive data. Callers must ensure case
// material and credentials are not logged:
//
//	// BAD: logs subject data
//	logger.Info("loaded node", "metadata", node.Metadata)
//
//	// GOOD: log identifiers only
//	logger.Info("loaded node", "node_id", node.ID)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config configures logger construction. The zero value produces an
// Info-level text logger on stderr.
type Config struct {
	// Level sets the minimum level. Default slog.LevelInfo.
	Level slog.Level

	// Service names the component; it appears on every record and in the
	// log file name.
	Service string

	// LogDir enables JSON file logging in the given directory. The file
	// is named {service}_{date}.log. Empty disables file logging.
	LogDir string

	// JSON switches the stderr stream to JSON format.
	JSON bool
}

// Logger wraps slog.Logger with ownership of the optional log file.
type Logger struct {
	*slog.Logger
	file *os.File
}

// Default returns an Info-level stderr logger for CLI use.
func Default() *Logger {
	l, _ := New(Config{})
	return l
}

// New builds a logger from the config. File logging failures are returned,
// not fatal: callers may fall back to Default.
func New(cfg Config) (*Logger, error) {
	service := cfg.Service
	if service == "" {
		service = "grid"
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}

	var stderrHandler slog.Handler
	if cfg.JSON {
		stderrHandler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		stderrHandler = slog.NewTextHandler(os.Stderr, opts)
	}

	out := &Logger{}
	handler := stderrHandler

	if cfg.LogDir != "" {
		f, err := openLogFile(cfg.LogDir, service)
		if err != nil {
			return nil, err
		}
		out.file = f
		handler = fanout{
			stderrHandler,
			slog.NewJSONHandler(f, opts),
		}
	}

	out.Logger = slog.New(handler).With(slog.String("service", service))
	return out, nil
}

// Close flushes and closes the log file, if one is open.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// openLogFile creates the log directory and opens today's log file for
// append.
func openLogFile(dir, service string) (*os.File, error) {
	expanded := expandHome(dir)
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", expanded, err)
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(expanded, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// expandHome resolves a leading ~ in a path.
func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// discardWriter is kept for tests that need a silent logger.
var discardWriter io.Writer = io.Discard

// Silent returns a logger that drops everything. Used by tests.
func Silent() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(discardWriter, &slog.HandlerOptions{
		Level: slog.Level(127),
	}))}
}
