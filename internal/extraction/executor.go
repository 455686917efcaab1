package extraction

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/kottz/cgex/internal/procgroup"
)

// Command is one process invocation inside a scratch directory.
type Command struct {
	Argv []string
	Dir  string
	Env  []string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command, onLine func(string)) error
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, spec Command, onLine func(string)) error {
	if len(spec.Argv) == 0 {
		return errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...) //nolint:gosec
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	procgroup.SetContext(cmd)

	// Wait stops copying these after WaitDelay even while a detached
	// descendant still holds the write ends.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	if err := cmd.Start(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go readLines(&wg, stdoutR, onLine)
	go readLines(&wg, stderrR, onLine)

	err := cmd.Wait()
	stdoutW.Close()
	stderrW.Close()
	wg.Wait()
	if errors.Is(err, exec.ErrWaitDelay) {
		// The leader exited cleanly; a detached helper still held the pipes.
		return nil
	}
	return err
}

// readLines forwards r line by line until EOF. Lines of any length are kept
// whole.
func readLines(wg *sync.WaitGroup, r *io.PipeReader, onLine func(string)) {
	defer wg.Done()
	defer r.Close()
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" && onLine != nil {
			onLine(line)
		}
		if err != nil {
			return
		}
	}
}
