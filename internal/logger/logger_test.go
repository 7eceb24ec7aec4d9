package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitCreatesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "planner")

	if err := Init(Config{ConfigDir: dir}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after Init")
	}

	Warn("queue overloaded", "agent", "alice")

	data, err := os.ReadFile(filepath.Join(dir, "logs", "plannerctl.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "queue overloaded") {
		t.Errorf("expected message in log file, got %q", data)
	}
}

func TestDebugLevelFiltering(t *testing.T) {
	dir := t.TempDir()

	if err := Init(Config{ConfigDir: dir}); err != nil {
		t.Fatalf("init: %v", err)
	}
	Debug("hidden debug line")
	Info("hidden info line")

	data, _ := os.ReadFile(filepath.Join(dir, "logs", "plannerctl.log"))
	if strings.Contains(string(data), "hidden") {
		t.Errorf("debug and info should be filtered without --debug, got %q", data)
	}
}

func TestSlogBridge(t *testing.T) {
	dir := t.TempDir()
	if err := Init(Config{ConfigDir: dir}); err != nil {
		t.Fatalf("init: %v", err)
	}

	Slog().Warn("task created", "task_id", "abc")

	data, _ := os.ReadFile(filepath.Join(dir, "logs", "plannerctl.log"))
	if !strings.Contains(string(data), "task_id=abc") {
		t.Errorf("expected slog record in log file, got %q", data)
	}
}

func TestHelpersWithoutInit(t *testing.T) {
	Logger = nil

	Debug("no-op")
	Info("no-op")
	Warn("no-op")
	Error("no-op")
	Slog().Info("no-op")
}

func TestInitUnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Init(Config{ConfigDir: file}); err == nil {
		t.Error("expected error when config dir is a file")
	}
}
