package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/services"
)

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller", logging.String("movie", "berlin.dir"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if !strings.Contains(string(content), "movie=berlin.dir") {
		t.Fatalf("expected key=value attribute, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestComponentRendersAsPrefix(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "component.log")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(base, "extraction").Info("runtime exited")

	content, _ := os.ReadFile(logPath)
	if !strings.Contains(string(content), "INFO extraction: runtime exited") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if strings.Contains(string(content), "component=") {
		t.Fatalf("component should not repeat as attribute: %q", content)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	base, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-7")
	ctx = services.WithJob(ctx, "heden.dir")
	ctx = services.WithStage(ctx, "imaging")
	logging.WithContext(ctx, base).Info("asset processed")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if entry["run_id"] != "run-7" || entry["job"] != "heden.dir" || entry["stage"] != "imaging" {
		t.Fatalf("missing context fields: %v", entry)
	}
	if entry["msg"] != "asset processed" || entry["level"] != "info" {
		t.Fatalf("unexpected json shape: %v", entry)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	base, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(base, "asset skipped", "asset_skipped", logging.String(logging.FieldImpact, "member missing from output"))

	content, _ := os.ReadFile(logPath)
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry[logging.FieldEventType] != "asset_skipped" {
		t.Fatalf("expected event type, got %v", entry)
	}
	if entry[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default error hint, got %v", entry)
	}
	if entry[logging.FieldImpact] != "member missing from output" {
		t.Fatalf("expected caller impact retained, got %v", entry)
	}
}

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "error"

	run, err := logging.NewFromConfig(&cfg, "abc123")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	run.Logger.Error("fatal condition")
	if err := run.Close(); err != nil {
		t.Fatalf("close run log: %v", err)
	}
	if filepath.Base(run.LogPath) != "cgex-abc123.log" {
		t.Fatalf("unexpected run log path %q", run.LogPath)
	}
	content, err := os.ReadFile(run.LogPath)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"fatal condition"`) {
		t.Fatalf("expected json record in run log, got %q", content)
	}
}

func TestPruneRunLogsKeepsRecentAndCurrent(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "cgex-old.log")
	current := filepath.Join(dir, "cgex-current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, current, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, p := range []string{old, current, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if removed := logging.PruneRunLogs(logging.NewNop(), dir, 5, current); removed != 1 {
		t.Fatalf("expected one log pruned, got %d", removed)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log pruned, stat err=%v", err)
	}
	for _, p := range []string{current, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s retained: %v", p, err)
		}
	}
}

func TestPruneRunLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "cgex-old.log")
	if err := os.WriteFile(old, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().AddDate(-1, 0, 0)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	if removed := logging.PruneRunLogs(logging.NewNop(), dir, 0, ""); removed != 0 {
		t.Fatalf("expected retention 0 to keep logs, removed %d", removed)
	}
}

func TestRunLoggerTeesConsoleAndFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "debug"

	run, err := logging.NewFromConfig(&cfg, "tee1")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logging.NewComponentLogger(run.Logger, "pipeline").With("job", "02.dxr").Debug("scratch ready")
	_ = run.Close()

	content, err := os.ReadFile(run.LogPath)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if entry["component"] != "pipeline" || entry["job"] != "02.dxr" {
		t.Fatalf("expected With attrs in file copy, got %v", entry)
	}
}
