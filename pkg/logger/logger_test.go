package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_ConsoleLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "info", Console: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Close()

	Debug("hidden %d", 1)
	Info("resolved %s", "login_button")
	Warn("capture failed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered at info level: %q", out)
	}
	if !strings.Contains(out, "resolved login_button") {
		t.Errorf("info message missing: %q", out)
	}
	if !strings.Contains(out, "WARN") {
		t.Errorf("level name missing: %q", out)
	}
}

func TestInit_InvalidLevel(t *testing.T) {
	if err := Init(Config{Level: "chatty", NoConsole: true}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pageflow.log")
	if err := Init(Config{Level: "debug", File: path, NoConsole: true}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Debug("attempt %d", 2)
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"attempt 2"`) {
		t.Errorf("expected JSON line with message, got %q", data)
	}
}

func TestL_BeforeInit(t *testing.T) {
	Close()
	if L() == nil {
		t.Fatal("L() must never return nil")
	}
	Info("no-op before init")
}
