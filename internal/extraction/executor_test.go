package extraction

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestCommandExecutorTimeoutIgnoresDetachedChild(t *testing.T) {
	if _, err := exec.LookPath("setsid"); err != nil {
		t.Skip("setsid not available")
	}
	pidFile := filepath.Join(t.TempDir(), "helper.pid")
	t.Cleanup(func() {
		data, err := os.ReadFile(pidFile)
		if err != nil {
			return
		}
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			_ = syscall.Kill(pid, syscall.SIGKILL)
		}
	})

	script := "setsid sh -c 'echo $$ > " + pidFile + "; exec sleep 30' & sleep 60"
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	err := commandExecutor{}.Run(ctx, Command{Argv: []string{"sh", "-c", script}}, nil)
	elapsed := time.Since(start)
	if err == nil {
		t.Fatal("expected an error from the killed command")
	}
	if elapsed > 10*time.Second {
		t.Fatalf("Run blocked %s past a 1s deadline", elapsed)
	}
}

func TestCommandExecutorKeepsLongLines(t *testing.T) {
	const size = 200_000
	script := "head -c " + strconv.Itoa(size) + " /dev/zero | tr '\\0' a; echo; echo done"

	var (
		mu    sync.Mutex
		lines []string
	)
	err := commandExecutor{}.Run(context.Background(), Command{Argv: []string{"sh", "-c", script}}, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(lines) != 2 || len(lines[0]) != size || lines[1] != "done" {
		t.Fatalf("expected one %d-byte line then done, got %d lines", size, len(lines))
	}
}

func TestCommandExecutorDetachedChildAfterCleanExit(t *testing.T) {
	if _, err := exec.LookPath("setsid"); err != nil {
		t.Skip("setsid not available")
	}
	pidFile := filepath.Join(t.TempDir(), "helper.pid")
	t.Cleanup(func() {
		if data, err := os.ReadFile(pidFile); err == nil {
			if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
				_ = syscall.Kill(pid, syscall.SIGKILL)
			}
		}
	})

	script := "setsid sh -c 'echo $$ > " + pidFile + "; exec sleep 30' & echo extracted"
	start := time.Now()
	err := commandExecutor{}.Run(context.Background(), Command{Argv: []string{"sh", "-c", script}}, nil)
	if err != nil {
		t.Fatalf("a clean exit with a lingering helper should succeed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("Run waited %s for the detached helper", elapsed)
	}
}
