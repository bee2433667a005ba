// Copyright (C) 2026 Zadorian Intelligence (ops@zadorian.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_NotNil(t *testing.T) {
	l := Default()
	if l == nil || l.Logger == nil {
		t.Fatal("Default() must return a usable logger")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() without a file must be a no-op, got %v", err)
	}
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{
		Service: "gridtest",
		LogDir:  dir,
		Level:   slog.LevelDebug,
	})
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hello", "node_id", "acme-ltd")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one log file, got %d", len(entries))
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "gridtest_") || !strings.HasSuffix(name, ".log") {
		t.Errorf("log file name %q does not match {service}_{date}.log", name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"node_id":"acme-ltd"`) {
		t.Errorf("file record missing structured attr: %s", raw)
	}
	if !strings.Contains(string(raw), `"service":"gridtest"`) {
		t.Errorf("file record missing service attr: %s", raw)
	}
}

func TestNew_BadLogDir(t *testing.T) {
	// A file where the directory should be.
	path := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Config{LogDir: filepath.Join(path, "logs")}); err == nil {
		t.Error("expected an error for an uncreatable log dir")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandHome("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/var/log"); got != "/var/log" {
		t.Errorf("absolute path must pass through, got %q", got)
	}
}

func TestSilent_DropsEverything(t *testing.T) {
	l := Silent()
	l.Error("this should vanish")
}
