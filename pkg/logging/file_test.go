package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newFileLogger(t *testing.T, format Format, level Level) (*LogrusLogger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, err := NewLogrusLogger(Config{
		Format: format,
		Level:  level,
		File:   RotatingFileConfig{Path: logPath},
	})
	if err != nil {
		t.Fatalf("NewLogrusLogger() error = %v", err)
	}
	return logger, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestNewRotatingFile_CreatesDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "dir", "test.log")

	file, err := NewRotatingFile(RotatingFileConfig{Path: logPath})
	if err != nil {
		t.Fatalf("NewRotatingFile() error = %v", err)
	}
	defer file.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestLogrusLogger_LogLevels(t *testing.T) {
	logger, logPath := newFileLogger(t, FormatText, InfoLevel)
	ctx := context.Background()

	logger.Debug(ctx, "debug message", nil)
	logger.Info(ctx, "info message", nil)
	logger.Warn(ctx, "warn message", nil)
	logger.Error(ctx, "error message", nil, nil)
	logger.Close()

	logContent := readLog(t, logPath)

	if strings.Contains(logContent, "debug message") {
		t.Error("Debug message should be filtered at INFO level")
	}
	for _, msg := range []string{"info message", "warn message", "error message"} {
		if !strings.Contains(logContent, msg) {
			t.Errorf("%q should be present", msg)
		}
	}
}

func TestLogrusLogger_DebugLevel(t *testing.T) {
	logger, logPath := newFileLogger(t, FormatText, DebugLevel)
	logger.Debug(context.Background(), "debug message", nil)
	logger.Close()

	if !strings.Contains(readLog(t, logPath), "debug message") {
		t.Error("Debug message should be present at DEBUG level")
	}
}

func TestLogrusLogger_TextFormat(t *testing.T) {
	logger, logPath := newFileLogger(t, FormatText, InfoLevel)
	logger.Info(context.Background(), "test message", Fields{"key": "value", "count": 42})
	logger.Close()

	logContent := readLog(t, logPath)

	if !strings.Contains(logContent, "level=info") {
		t.Error("Log should contain the level")
	}
	if !strings.Contains(logContent, "test message") {
		t.Error("Log should contain the message")
	}
	if !strings.Contains(logContent, "key=value") {
		t.Error("Log should contain the field")
	}
}

func TestLogrusLogger_JSONFormat(t *testing.T) {
	logger, logPath := newFileLogger(t, FormatJSON, InfoLevel)
	logger.Info(context.Background(), "test message", Fields{"key": "value", "count": 42})
	logger.Close()

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(readLog(t, logPath)), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["message"] != "test message" {
		t.Errorf("message = %v, want 'test message'", entry["message"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want 'value'", entry["key"])
	}
	if entry["timestamp"] == nil {
		t.Error("timestamp should be present")
	}
}

func TestLogrusLogger_ErrorWithErr(t *testing.T) {
	logger, logPath := newFileLogger(t, FormatJSON, InfoLevel)
	logger.Error(context.Background(), "operation failed", errors.New("something went wrong"), Fields{"operation": "test"})
	logger.Close()

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(readLog(t, logPath)), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if entry["error"] != "something went wrong" {
		t.Errorf("error = %v, want 'something went wrong'", entry["error"])
	}
}

func TestLogrusLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogrusLogger(Config{Format: FormatJSON, Level: InfoLevel, Output: &buf})
	if err != nil {
		t.Fatalf("NewLogrusLogger() error = %v", err)
	}

	logger.WithFields(Fields{"svc": "task.Manager"}).Info(context.Background(), "test", Fields{"action": "copy"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	if entry["svc"] != "task.Manager" {
		t.Errorf("svc = %v, want 'task.Manager'", entry["svc"])
	}
	if entry["action"] != "copy" {
		t.Errorf("action = %v, want 'copy'", entry["action"])
	}
}

func TestRotatingFile_Rotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	file, err := NewRotatingFile(RotatingFileConfig{
		Path:       logPath,
		MaxSize:    100, // Very small for testing
		MaxBackups: 2,
	})
	if err != nil {
		t.Fatalf("NewRotatingFile() error = %v", err)
	}

	line := []byte("This is a test message that is long enough to trigger rotation eventually\n")
	for i := 0; i < 20; i++ {
		if _, err := file.Write(line); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	file.Close()

	for _, p := range []string{logPath, logPath + ".1", logPath + ".2"} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			t.Errorf("%s should exist after rotation", filepath.Base(p))
		}
	}
	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Error("Only MaxBackups backups should be kept")
	}
}

func TestRotatingFile_WriteAfterClose(t *testing.T) {
	file, err := NewRotatingFile(RotatingFileConfig{Path: filepath.Join(t.TempDir(), "x.log")})
	if err != nil {
		t.Fatalf("NewRotatingFile() error = %v", err)
	}
	file.Close()

	if _, err := file.Write([]byte("late")); !errors.Is(err, os.ErrClosed) {
		t.Errorf("Write() error = %v, want os.ErrClosed", err)
	}
}

func TestNoop(t *testing.T) {
	ctx := context.Background()

	// None of these should panic
	Noop.Debug(ctx, "debug", nil)
	Noop.Info(ctx, "info", nil)
	Noop.Warn(ctx, "warn", nil)
	Noop.Error(ctx, "error", nil, nil)

	if got := Noop.WithFields(Fields{"key": "value"}); got != Noop {
		t.Errorf("WithFields() = %v, want Noop", got)
	}

	if err := Noop.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"unknown", InfoLevel}, // Default
		{"", InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.level.String(); result != tt.expected {
				t.Errorf("Level(%d).String() = %q, want %q", int(tt.level), result, tt.expected)
			}
		})
	}
}

func TestLogrusLogger_ConcurrentWrites(t *testing.T) {
	logger, logPath := newFileLogger(t, FormatText, InfoLevel)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				logger.Info(ctx, "concurrent message", Fields{"goroutine": id, "iteration": j})
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	lines := strings.Count(readLog(t, logPath), "\n")
	if lines != 1000 {
		t.Errorf("Expected 1000 log lines, got %d", lines)
	}
}
