package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewParsesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", logger.GetLevel())
	}

	logger.WithField("task_id", 3).Debug("loaded")
	if !strings.Contains(buf.String(), "task_id=3") {
		t.Fatalf("expected structured field in output, got %q", buf.String())
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "chatty"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "console.log")
	logger, closer, err := OpenFile(path, "")
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	logger.Info("first")
	_ = closer.Close()

	logger, closer, err = OpenFile(path, "info")
	if err != nil {
		t.Fatalf("reopen file: %v", err)
	}
	logger.Info("second")
	_ = closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "first") || !strings.Contains(string(data), "second") {
		t.Fatalf("expected both lines, got %q", data)
	}
}
