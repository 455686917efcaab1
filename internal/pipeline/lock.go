package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/fileutil"
	"github.com/kottz/cgex/internal/services"
)

// ErrOutputLocked reports another run writing into the same output root.
var ErrOutputLocked = errors.New("output root locked by another run")

// OutputLock serializes runs that share an output root.
type OutputLock struct {
	path string
	lock *flock.Flock
}

// LockOutput acquires the lock for cfg's output root without blocking.
func LockOutput(cfg *config.Config) (*OutputLock, error) {
	dir := cfg.LockDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "lock", "create lock dir", dir, err)
	}
	root, err := filepath.Abs(cfg.Paths.OutputDir)
	if err != nil {
		root = cfg.Paths.OutputDir
	}
	path := filepath.Join(dir, fileutil.HashBytes([]byte(root))[:16]+".lock")
	l := &OutputLock{path: path, lock: flock.New(path)}

	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, root)
	}
	return l, nil
}

// Path returns the lock file location.
func (l *OutputLock) Path() string {
	return l.path
}

// Release drops the lock.
func (l *OutputLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
