// Package procgroup runs external commands in their own process group so the
// whole tree a command spawns (wine, wineserver, dialog helpers) can be reaped
// together.
package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Set places cmd in a new process group.
func Set(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.WaitDelay = 2 * time.Second
}

// SetContext is Set for commands built with exec.CommandContext: context
// cancellation kills the whole group rather than only the leader.
func SetContext(cmd *exec.Cmd) {
	Set(cmd)
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return Signal(cmd.Process.Pid, unix.SIGKILL)
	}
}

// Signal delivers sig to every process in the group led by pid. A group that
// has already exited is not an error.
func Signal(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	err := unix.Kill(-pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

// Alive reports whether any process in the group is still running.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(-pid, 0) == nil
}

// Terminate sends SIGTERM to the group and waits up to grace for exited to
// close, then sends SIGKILL to whatever remains. exited should be closed by the
// goroutine that reaps the leader with cmd.Wait.
func Terminate(pid int, grace time.Duration, exited <-chan struct{}) error {
	if err := Signal(pid, unix.SIGTERM); err != nil {
		return err
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
	}
	// Children may outlive the leader; SIGKILL is a no-op for an empty group.
	return Signal(pid, unix.SIGKILL)
}
