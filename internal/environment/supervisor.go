package environment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/procgroup"
	"github.com/kottz/cgex/internal/services"
	"github.com/kottz/cgex/internal/stage"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	probeTimeout        = 5 * time.Second
	cleanupTimeout      = 15 * time.Second
)

// Settings configures a Supervisor.
type Settings struct {
	Enabled        bool
	Display        string
	StartupTimeout time.Duration
	StopGrace      time.Duration
	PollInterval   time.Duration
	StalePaths     []string
	CleanupCommand []string
	Services       []config.Service
}

// SettingsFromConfig derives supervisor settings from the application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Enabled:        cfg.Environment.Enabled,
		Display:        cfg.Environment.Display,
		StartupTimeout: cfg.StartupTimeout(),
		StopGrace:      cfg.StopGrace(),
		PollInterval:   defaultPollInterval,
		StalePaths:     append([]string(nil), cfg.Environment.StalePaths...),
		CleanupCommand: append([]string(nil), cfg.Environment.CleanupCommand...),
		Services:       append([]config.Service(nil), cfg.Environment.Services...),
	}
}

// Supervisor owns the lifecycle of the virtual display and audio services the
// legacy runtime needs.
type Supervisor struct {
	settings Settings
	logger   *slog.Logger
}

// NewSupervisor constructs a supervisor.
func NewSupervisor(settings Settings, logger *slog.Logger) *Supervisor {
	if settings.PollInterval <= 0 {
		settings.PollInterval = defaultPollInterval
	}
	return &Supervisor{settings: settings, logger: logging.NewComponentLogger(logger, "environment")}
}

// Start removes stale session artifacts, launches every configured service and
// waits until each reports ready. On failure everything already started is
// torn down and a services.ErrEnvironmentStartup error is returned.
func (s *Supervisor) Start(ctx context.Context) (*Environment, error) {
	env := &Environment{
		settings: s.settings,
		logger:   s.logger,
		vars:     buildVars(s.settings),
	}
	if !s.settings.Enabled {
		s.logger.Info("runtime environment disabled; using host display",
			logging.String(logging.FieldEventType, "environment_disabled"))
		return env, nil
	}

	s.removeStale()

	startCtx := ctx
	if s.settings.StartupTimeout > 0 {
		var cancel context.CancelFunc
		startCtx, cancel = context.WithTimeout(ctx, s.settings.StartupTimeout)
		defer cancel()
	}

	for _, spec := range s.settings.Services {
		proc, err := env.launch(spec)
		if err != nil {
			env.Stop(context.Background())
			return nil, services.Wrap(services.ErrEnvironmentStartup, "environment", "start "+spec.Name, "service failed to launch", err)
		}
		if err := env.awaitReady(startCtx, proc); err != nil {
			env.Stop(context.Background())
			return nil, services.Wrap(services.ErrEnvironmentStartup, "environment", "start "+spec.Name, "service not ready", err)
		}
		s.logger.Info("environment service ready",
			logging.String("service", spec.Name),
			logging.Int("pid", proc.cmd.Process.Pid),
			logging.String(logging.FieldEventType, "environment_service_ready"),
		)
	}
	return env, nil
}

// HealthCheck reports whether every configured service binary is installed.
// It does not start anything.
func (s *Supervisor) HealthCheck(context.Context) stage.Health {
	if !s.settings.Enabled {
		return stage.Healthy("environment")
	}
	var missing []string
	for _, spec := range s.settings.Services {
		if len(spec.Command) == 0 {
			continue
		}
		if _, err := exec.LookPath(spec.Command[0]); err != nil {
			missing = append(missing, spec.Command[0])
		}
	}
	if len(missing) > 0 {
		return stage.Unhealthy("environment", "missing binaries: "+strings.Join(missing, ", "))
	}
	return stage.Healthy("environment")
}

func (s *Supervisor) removeStale() {
	for _, path := range s.settings.StalePaths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if _, err := os.Lstat(path); err != nil {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			logging.WarnWithContext(s.logger, "failed to remove stale session artifact", "environment_stale_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the file manually or run with sufficient permissions"),
				logging.String(logging.FieldImpact, "display server may refuse to start"),
			)
			continue
		}
		s.logger.Debug("removed stale session artifact", logging.String("path", path))
	}
}

func buildVars(settings Settings) []string {
	vars := os.Environ()
	if !settings.Enabled || settings.Display == "" {
		return vars
	}
	out := make([]string, 0, len(vars)+1)
	for _, v := range vars {
		if strings.HasPrefix(v, "DISPLAY=") {
			continue
		}
		out = append(out, v)
	}
	return append(out, "DISPLAY="+settings.Display)
}

type process struct {
	spec    config.Service
	cmd     *exec.Cmd
	exited  chan struct{}
	waitErr error
}

func (p *process) running() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// Environment is a started runtime environment. It is safe for sequential use
// by one run; Stop may be called from a signal path concurrently.
type Environment struct {
	settings Settings
	logger   *slog.Logger
	vars     []string

	mu        sync.Mutex
	processes []*process
	stopOnce  sync.Once
}

// Env returns the environment variables child processes should run with.
func (e *Environment) Env() []string {
	return append([]string(nil), e.vars...)
}

func (e *Environment) launch(spec config.Service) (*process, error) {
	if len(spec.Command) == 0 {
		return nil, errors.New("empty service command")
	}
	cmd := exec.Command(spec.Command[0], spec.Command[1:]...) //nolint:gosec
	cmd.Env = e.Env()
	cmd.Stdout = newLineWriter(e.logger, spec.Name)
	cmd.Stderr = cmd.Stdout
	procgroup.Set(cmd)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	proc := &process{spec: spec, cmd: cmd, exited: make(chan struct{})}
	go func() {
		proc.waitErr = cmd.Wait()
		close(proc.exited)
	}()
	e.mu.Lock()
	e.processes = append(e.processes, proc)
	e.mu.Unlock()
	return proc, nil
}

func (e *Environment) awaitReady(ctx context.Context, proc *process) error {
	ticker := time.NewTicker(e.settings.PollInterval)
	defer ticker.Stop()
	for {
		if !proc.running() {
			return fmt.Errorf("%s exited before becoming ready: %v", proc.spec.Name, proc.waitErr)
		}
		if e.probe(ctx, proc.spec) == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s not ready: %w", proc.spec.Name, ctx.Err())
		case <-proc.exited:
		case <-ticker.C:
		}
	}
}

func (e *Environment) probe(ctx context.Context, spec config.Service) error {
	if spec.ReadyPath != "" {
		if _, err := os.Stat(spec.ReadyPath); err != nil {
			return err
		}
	}
	if len(spec.ReadyCommand) > 0 {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		cmd := exec.CommandContext(probeCtx, spec.ReadyCommand[0], spec.ReadyCommand[1:]...) //nolint:gosec
		cmd.Env = e.Env()
		procgroup.SetContext(cmd)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("ready probe: %w (%s)", err, strings.TrimSpace(string(out)))
		}
	}
	return nil
}

// HealthCheck verifies every service is still alive and passes its probe.
func (e *Environment) HealthCheck(ctx context.Context) error {
	e.mu.Lock()
	procs := append([]*process(nil), e.processes...)
	e.mu.Unlock()
	for _, proc := range procs {
		if !proc.running() {
			return fmt.Errorf("%s exited: %v", proc.spec.Name, proc.waitErr)
		}
		if err := e.probe(ctx, proc.spec); err != nil {
			return fmt.Errorf("%s unhealthy: %w", proc.spec.Name, err)
		}
	}
	return nil
}

// Cleanup runs the between-movie cleanup command, such as shutting down a
// lingering wineserver. Failures are logged and otherwise ignored.
func (e *Environment) Cleanup(ctx context.Context) {
	if len(e.settings.CleanupCommand) == 0 {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()
	cmd := exec.CommandContext(cleanupCtx, e.settings.CleanupCommand[0], e.settings.CleanupCommand[1:]...) //nolint:gosec
	cmd.Env = e.Env()
	procgroup.SetContext(cmd)
	if out, err := cmd.CombinedOutput(); err != nil {
		e.logger.Debug("runtime cleanup command failed",
			logging.Strings("command", e.settings.CleanupCommand),
			logging.String("output", strings.TrimSpace(string(out))),
			logging.Error(err),
		)
	}
}

// Stop terminates every service in reverse start order. It never fails and is
// safe to call more than once.
func (e *Environment) Stop(ctx context.Context) {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		procs := append([]*process(nil), e.processes...)
		e.mu.Unlock()
		for i := len(procs) - 1; i >= 0; i-- {
			proc := procs[i]
			grace := e.settings.StopGrace
			if ctx.Err() != nil {
				grace = 0
			}
			if err := procgroup.Terminate(proc.cmd.Process.Pid, grace, proc.exited); err != nil {
				logging.WarnWithContext(e.logger, "failed to stop environment service", "environment_stop_failed",
					logging.String("service", proc.spec.Name),
					logging.Error(err),
					logging.String(logging.FieldImpact, "service process may linger after exit"),
				)
				continue
			}
			e.logger.Debug("environment service stopped", logging.String("service", proc.spec.Name))
		}
	})
}

// lineWriter forwards subprocess output to the debug log one line at a time.
type lineWriter struct {
	mu      sync.Mutex
	logger  *slog.Logger
	service string
	buf     bytes.Buffer
}

func newLineWriter(logger *slog.Logger, service string) *lineWriter {
	return &lineWriter{logger: logger, service: service}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			w.logger.Debug("service output", logging.String("service", w.service), logging.String("line", trimmed))
		}
	}
	return len(p), nil
}
