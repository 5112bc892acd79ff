package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spektr-org/tally/config"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closer.Close()

	logger.Debug("fetched", "rows", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if line["msg"] != "fetched" || line["rows"] == nil {
		t.Errorf("line = %v", line)
	}
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(config.LoggingConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q", out)
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tally.log")
	logger, closer, err := New(config.LoggingConfig{File: path}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("to file")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file = %q", data)
	}
}

func TestNewBadLevel(t *testing.T) {
	if _, _, err := New(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
