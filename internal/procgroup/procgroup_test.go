package procgroup

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

func TestTerminateStopsGroup(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 30 & sleep 30")
	Set(cmd)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	pid := cmd.Process.Pid
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	if !Alive(pid) {
		t.Fatal("expected group to be alive after start")
	}
	if err := Terminate(pid, time.Second, exited); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("leader did not exit")
	}
	deadline := time.Now().Add(2 * time.Second)
	for Alive(pid) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if Alive(pid) {
		t.Fatal("expected background child in group to be reaped")
	}
}

func TestContextCancelKillsGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	cmd := exec.CommandContext(ctx, "sh", "-c", "sleep 30")
	SetContext(cmd)
	start := time.Now()
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected killed command to return error")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("command outlived its context: %s", time.Since(start))
	}
}

func TestSignalMissingGroupIsNotError(t *testing.T) {
	cmd := exec.Command("true")
	Set(cmd)
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := Signal(cmd.Process.Pid, 0); err != nil {
		t.Fatalf("expected exited group to be ignored, got %v", err)
	}
}
