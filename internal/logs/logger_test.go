package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "run", "log.jsonl")
	logger, closer, err := New(&console, path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("test", "hello", "world!")
	logger.Debug("hidden")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(console.String(), "hello=world!") {
		t.Errorf("console output = %q", console.String())
	}
	if strings.Contains(console.String(), "hidden") {
		t.Error("debug record logged at info level")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("log file is not JSON lines: %v", err)
	}
	if record["hello"] != "world!" {
		t.Errorf("file record = %v", record)
	}
}

func TestLoggerLevel(t *testing.T) {
	Level.Set(slog.LevelDebug)
	t.Cleanup(func() { Level.Set(slog.LevelInfo) })

	var console bytes.Buffer
	logger, closer, err := New(&console, "")
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	logger.Debug("visible")
	if !strings.Contains(console.String(), "visible") {
		t.Errorf("debug record missing at debug level: %q", console.String())
	}
}
