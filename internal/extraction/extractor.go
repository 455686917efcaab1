package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kottz/cgex/internal/catalog"
	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/discovery"
	"github.com/kottz/cgex/internal/fileutil"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/services"
)

const dismissTimeout = 2 * time.Second

// RawFile is one file the runtime wrote into the scratch directory.
type RawFile struct {
	Path string
	Name string
}

// Result lists what an extraction produced.
type Result struct {
	Files      []RawFile
	Skipped    []string
	Duplicates []string
}

// Runtime supplies the process environment for the legacy runtime.
type Runtime interface {
	Env() []string
}

// Extractor dumps the members of one movie into its scratch directory.
type Extractor interface {
	Extract(ctx context.Context, rt Runtime, job discovery.MovieJob) (Result, error)
}

// Settings configures a Driver.
type Settings struct {
	InputDir        string
	ToolsDir        string
	Command         []string
	Timeout         time.Duration
	DismissCommand  []string
	DismissInterval time.Duration
	Dedupe          bool
}

// SettingsFromConfig derives driver settings from the application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		InputDir:        cfg.Paths.InputDir,
		ToolsDir:        cfg.Extractor.ToolsDir,
		Command:         append([]string(nil), cfg.Extractor.Command...),
		Timeout:         cfg.ExtractorTimeout(),
		DismissCommand:  append([]string(nil), cfg.Extractor.DismissCommand...),
		DismissInterval: cfg.DismissInterval(),
		Dedupe:          cfg.Extractor.DedupeIdentical,
	}
}

// Option configures the driver.
type Option func(*Driver)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(d *Driver) {
		if exec != nil {
			d.exec = exec
		}
	}
}

// Driver runs the legacy extractor under the supervised environment.
type Driver struct {
	settings Settings
	exec     Executor
	logger   *slog.Logger
}

// NewDriver constructs a driver.
func NewDriver(settings Settings, logger *slog.Logger, opts ...Option) (*Driver, error) {
	if len(settings.Command) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "extraction", "init", "extractor command required", nil)
	}
	d := &Driver{
		settings: settings,
		exec:     commandExecutor{},
		logger:   logging.NewComponentLogger(logger, "extraction"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// jobInputs selects what of the input directory a job's scratch needs: every
// support file and shared cast, but of the movies only the job's own.
func jobInputs(job discovery.MovieJob) func(rel string) bool {
	return func(rel string) bool {
		name := filepath.Base(rel)
		if !catalog.IsMovieFile(name) || strings.EqualFold(filepath.Ext(name), ".cxt") {
			return true
		}
		return catalog.SameName(name, job.MovieName)
	}
}

// Extract prepares the scratch directory, runs the extractor against the movie
// and returns the new files it produced.
func (d *Driver) Extract(ctx context.Context, rt Runtime, job discovery.MovieJob) (Result, error) {
	logger := logging.WithContext(ctx, d.logger)
	scratch := job.ScratchDir
	if scratch == "" {
		return Result{}, services.Wrap(services.ErrInvariant, "extraction", "prepare", "job has no scratch directory", nil)
	}
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrRuntimeCrash, "extraction", "create scratch", scratch, err)
	}
	if err := fileutil.CopyDirFiltered(d.settings.InputDir, scratch, jobInputs(job)); err != nil {
		return Result{}, services.Wrap(services.ErrRuntimeCrash, "extraction", "copy input", d.settings.InputDir, err)
	}
	if d.settings.ToolsDir != "" {
		if _, err := os.Stat(d.settings.ToolsDir); err == nil {
			if err := fileutil.CopyDir(d.settings.ToolsDir, scratch); err != nil {
				return Result{}, services.Wrap(services.ErrRuntimeCrash, "extraction", "copy tools", d.settings.ToolsDir, err)
			}
		} else {
			logger.Debug("extractor tools directory missing", logging.String("tools_dir", d.settings.ToolsDir))
		}
	}
	if err := PrepareLayout(scratch, job.Title); err != nil {
		return Result{}, services.Wrap(services.ErrRuntimeCrash, "extraction", "prepare layout", scratch, err)
	}

	before, err := snapshot(scratch)
	if err != nil {
		return Result{}, services.Wrap(services.ErrRuntimeCrash, "extraction", "snapshot scratch", scratch, err)
	}

	env := os.Environ()
	if rt != nil {
		env = rt.Env()
	}

	runCtx := ctx
	if d.settings.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.settings.Timeout)
		defer cancel()
	}

	argv := append(append([]string(nil), d.settings.Command...), job.MovieName)
	logger.Info("extraction started",
		logging.String("movie", job.MovieName),
		logging.Strings("command", argv),
		logging.String(logging.FieldEventType, "extraction_start"),
	)
	started := time.Now()

	var stop func()
	if job.Title.DismissDialogs && len(d.settings.DismissCommand) > 0 {
		stop = d.dismissLoop(runCtx, scratch, env, logger)
	}
	runErr := d.exec.Run(runCtx, Command{Argv: argv, Dir: scratch, Env: env}, func(line string) {
		logger.Debug("runtime output", logging.String("line", line))
	})
	if stop != nil {
		stop()
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Result{}, services.Wrap(services.ErrExtractionTimeout, "extraction", "run runtime",
			fmt.Sprintf("%s exceeded %s", job.MovieName, d.settings.Timeout), runErr)
	}

	names, err := newFiles(scratch, before)
	if err != nil {
		return Result{}, services.Wrap(services.ErrRuntimeCrash, "extraction", "scan scratch", scratch, err)
	}
	if len(names) == 0 {
		var cause error
		if runErr != nil {
			cause = services.Wrap(services.ErrRuntimeCrash, "extraction", "run runtime", "", runErr)
		}
		return Result{}, services.Wrap(services.ErrNoAssets, "extraction", "collect output", job.MovieName, cause)
	}
	if runErr != nil {
		logging.WarnWithContext(logger, "runtime exited with error; using produced files", "runtime_exit_nonzero",
			logging.Error(runErr),
			logging.Int("files", len(names)),
			logging.String(logging.FieldImpact, "some members may be missing"),
		)
	}

	result, err := finish(scratch, names, job.Title, d.settings.Dedupe, logger)
	if err != nil {
		return Result{}, err
	}
	logger.Info("extraction finished",
		logging.Int("files", len(result.Files)),
		logging.Int("skipped", len(result.Skipped)),
		logging.Int("duplicates", len(result.Duplicates)),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "extraction_complete"),
	)
	return result, nil
}

// dismissLoop presses the dialog dismissal command until the returned stop
// function is called.
func (d *Driver) dismissLoop(ctx context.Context, dir string, env []string, logger *slog.Logger) func() {
	interval := d.settings.DismissInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				pressCtx, cancel := context.WithTimeout(ctx, dismissTimeout)
				if err := d.exec.Run(pressCtx, Command{Argv: d.settings.DismissCommand, Dir: dir, Env: env}, nil); err != nil {
					logger.Debug("dialog dismissal failed", logging.Error(err))
				}
				cancel()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// PrepareLayout flattens the title's movie subdirectories into the scratch
// root and applies its directory renames, matching names case-insensitively.
func PrepareLayout(root string, title catalog.Title) error {
	for _, dir := range title.MovieDirs {
		matches, err := findDirs(root, dir)
		if err != nil {
			return err
		}
		for _, name := range matches {
			src := filepath.Join(root, name)
			if err := fileutil.CopyDir(src, root); err != nil {
				return fmt.Errorf("flatten %s: %w", name, err)
			}
			if err := os.RemoveAll(src); err != nil {
				return fmt.Errorf("remove %s: %w", name, err)
			}
		}
	}
	for _, rename := range title.Renames {
		matches, err := findDirs(root, rename.From)
		if err != nil {
			return err
		}
		dst := filepath.Join(root, rename.To)
		for _, name := range matches {
			if name == rename.To {
				continue
			}
			src := filepath.Join(root, name)
			if _, err := os.Stat(dst); err == nil {
				if err := fileutil.CopyDir(src, dst); err != nil {
					return fmt.Errorf("merge %s into %s: %w", name, rename.To, err)
				}
				if err := os.RemoveAll(src); err != nil {
					return fmt.Errorf("remove %s: %w", name, err)
				}
				continue
			}
			if err := os.Rename(src, dst); err != nil {
				return fmt.Errorf("rename %s to %s: %w", name, rename.To, err)
			}
		}
	}
	return nil
}

func findDirs(root, name string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() && catalog.SameName(entry.Name(), name) {
			out = append(out, entry.Name())
		}
	}
	return out, nil
}

func snapshot(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		set[entry.Name()] = struct{}{}
	}
	return set, nil
}

func newFiles(dir string, before map[string]struct{}) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if _, seen := before[entry.Name()]; seen {
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		out = append(out, entry.Name())
	}
	sort.Strings(out)
	return out, nil
}

// finish applies the title skip list and optional content de-duplication to
// sorted raw names inside dir.
func finish(dir string, names []string, title catalog.Title, dedupe bool, logger *slog.Logger) (Result, error) {
	var result Result
	hashes := make(map[string]string)
	for _, name := range names {
		if title.Skips(name) {
			result.Skipped = append(result.Skipped, name)
			logger.Debug("skipping known-broken member", logging.String("file", name))
			continue
		}
		path := filepath.Join(dir, name)
		if dedupe {
			sum, err := fileutil.HashFile(path)
			if err != nil {
				return Result{}, services.Wrap(services.ErrRuntimeCrash, "extraction", "hash output", name, err)
			}
			if first, dup := hashes[sum]; dup {
				result.Duplicates = append(result.Duplicates, name)
				logger.Info("dropping identical member",
					logging.String("file", name),
					logging.String("kept", first),
					logging.String(logging.FieldEventType, "duplicate_dropped"),
				)
				continue
			}
			hashes[sum] = name
		}
		result.Files = append(result.Files, RawFile{Path: path, Name: name})
	}
	return result, nil
}
