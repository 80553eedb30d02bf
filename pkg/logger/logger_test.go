package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestInitAndLevelString(t *testing.T) {
	defer Init("info")
	Init("debug")
	if got := LevelString(); got != "debug" {
		t.Fatalf("LevelString() = %q, want %q", got, "debug")
	}
	Init("WARN")
	if got := LevelString(); got != "warn" {
		t.Fatalf("LevelString() = %q, want %q", got, "warn")
	}
	Init("Error")
	if got := LevelString(); got != "error" {
		t.Fatalf("LevelString() = %q, want %q", got, "error")
	}
	Init("nonsense")
	if got := LevelString(); got != "info" {
		t.Fatalf("LevelString() = %q, want %q for unknown input", got, "info")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	defer Init("info")

	Init("warn")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg %d", 7)

	out := buf.String()
	if strings.Contains(out, "debug-msg") {
		t.Fatalf("debug messages should be suppressed at warn level")
	}
	if strings.Contains(out, "info-msg") {
		t.Fatalf("info messages should be suppressed at warn level")
	}
	if !strings.Contains(out, "warn-msg") {
		t.Fatalf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "error-msg 7") {
		t.Fatalf("error message missing: %q", out)
	}

	buf.Reset()
	Info("hello")
	if strings.Contains(buf.String(), "hello") {
		t.Fatalf("Info should be suppressed at warn level")
	}

	Init("info")
	buf.Reset()
	Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("Info expected at info level, got: %q", buf.String())
	}
}

func TestProductionEnvironmentWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnvironment("production")
	defer SetOutput(os.Stdout)
	defer SetEnvironment("development")

	Warn("seed skipped")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "seed skipped" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatalf("timestamp key missing: %v", entry)
	}
}
