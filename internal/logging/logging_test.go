package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_DefaultConfig(t *testing.T) {
	var console bytes.Buffer
	logger, closer := newWithConsole(DefaultConfig(), &console)
	defer closer.Close() //nolint:errcheck

	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be disabled by default")
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("expected warn to be enabled by default")
	}

	logger.Warn("careful", "key", "value")
	if !strings.Contains(console.String(), "msg=careful") {
		t.Errorf("expected text output, got %q", console.String())
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var console bytes.Buffer
	logger, closer := newWithConsole(Config{Level: "debug", Format: "json"}, &console)
	defer closer.Close() //nolint:errcheck

	logger.Debug("hello")
	if !strings.HasPrefix(console.String(), "{") {
		t.Errorf("expected JSON output, got %q", console.String())
	}
}

func TestNew_FileOutput(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "test.log")

	var console bytes.Buffer
	logger, closer := newWithConsole(Config{
		Level:          "info",
		Format:         "json",
		FilePath:       logFile,
		FileMaxSizeMB:  1,
		FileMaxFiles:   1,
		FileMaxAgeDays: 1,
	}, &console)

	logger.Info("hello from test")

	if err := closer.Close(); err != nil {
		t.Fatalf("closing log file: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("expected log file to contain the record, got %q", data)
	}
	if console.Len() == 0 {
		t.Error("expected console output alongside the file")
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if err := (Config{Level: "trace", Format: "text"}).Validate(); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := (Config{Level: "info", Format: "xml"}).Validate(); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(l) {
			t.Errorf("expected %q to be valid", l)
		}
	}
	for _, l := range []string{"", "trace", "fatal", "DEBUG"} {
		if ValidLevel(l) {
			t.Errorf("expected %q to be invalid", l)
		}
	}
}
