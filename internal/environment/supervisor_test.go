package environment_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/environment"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/services"
)

func testSettings(svcs ...config.Service) environment.Settings {
	return environment.Settings{
		Enabled:        true,
		Display:        ":42",
		StartupTimeout: 3 * time.Second,
		StopGrace:      500 * time.Millisecond,
		PollInterval:   20 * time.Millisecond,
		Services:       svcs,
	}
}

func readyService(t *testing.T, name string) (config.Service, string) {
	t.Helper()
	dir := t.TempDir()
	ready := filepath.Join(dir, name+".ready")
	return config.Service{
		Name:      name,
		Command:   []string{"sh", "-c", "sleep 0.1; touch " + ready + "; exec sleep 30"},
		ReadyPath: ready,
	}, ready
}

func TestStartWaitsForReadinessAndStops(t *testing.T) {
	display, _ := readyService(t, "xvfb")
	audio := config.Service{
		Name:         "audio",
		Command:      []string{"sleep", "30"},
		ReadyCommand: []string{"true"},
	}
	stale := filepath.Join(t.TempDir(), ".X42-lock")
	if err := os.WriteFile(stale, []byte("123"), 0o644); err != nil {
		t.Fatal(err)
	}
	settings := testSettings(audio, display)
	settings.StalePaths = []string{stale}

	sup := environment.NewSupervisor(settings, logging.NewNop())
	env, err := sup.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale artifact removed, stat err=%v", err)
	}
	if err := env.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected healthy environment: %v", err)
	}
	found := false
	for _, v := range env.Env() {
		if v == "DISPLAY=:42" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected DISPLAY in child environment")
	}

	done := make(chan struct{})
	go func() {
		env.Stop(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	if err := env.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected stopped environment to be unhealthy")
	}
	env.Stop(context.Background())
}

func TestStartFailsWhenServiceExitsEarly(t *testing.T) {
	crash := config.Service{Name: "xvfb", Command: []string{"sh", "-c", "exit 3"}, ReadyPath: filepath.Join(t.TempDir(), "never")}
	sup := environment.NewSupervisor(testSettings(crash), logging.NewNop())

	_, err := sup.Start(context.Background())
	if !errors.Is(err, services.ErrEnvironmentStartup) {
		t.Fatalf("expected environment startup error, got %v", err)
	}
	if services.Classify(err) != services.SeverityFatal {
		t.Fatal("expected startup failure to be fatal")
	}
}

func TestStartTimesOutAndTearsDown(t *testing.T) {
	first, _ := readyService(t, "audio")
	marker := filepath.Join(t.TempDir(), "pid")
	hung := config.Service{
		Name:      "xvfb",
		Command:   []string{"sh", "-c", "echo $$ > " + marker + "; exec sleep 30"},
		ReadyPath: filepath.Join(t.TempDir(), "never"),
	}
	settings := testSettings(first, hung)
	settings.StartupTimeout = 400 * time.Millisecond

	start := time.Now()
	_, err := environment.NewSupervisor(settings, logging.NewNop()).Start(context.Background())
	if !errors.Is(err, services.ErrEnvironmentStartup) {
		t.Fatalf("expected startup error, got %v", err)
	}
	if !strings.Contains(err.Error(), "xvfb") {
		t.Fatalf("expected failing service named in error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("startup wait was not bounded: %s", time.Since(start))
	}
}

func TestHealthCheckDetectsDeadService(t *testing.T) {
	dir := t.TempDir()
	ready := filepath.Join(dir, "ready")
	svc := config.Service{Name: "xvfb", Command: []string{"sh", "-c", "touch " + ready + "; sleep 0.3"}, ReadyPath: ready}
	env, err := environment.NewSupervisor(testSettings(svc), logging.NewNop()).Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer env.Stop(context.Background())

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if env.HealthCheck(context.Background()) != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("expected health check to fail after service exit")
}

func TestDisabledEnvironmentOwnsNothing(t *testing.T) {
	settings := testSettings(config.Service{Name: "xvfb", Command: []string{"false"}})
	settings.Enabled = false
	env, err := environment.NewSupervisor(settings, logging.NewNop()).Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := env.HealthCheck(context.Background()); err != nil {
		t.Fatalf("disabled environment should be healthy: %v", err)
	}
	env.Cleanup(context.Background())
	env.Stop(context.Background())
}

func TestSupervisorHealthReportsMissingBinaries(t *testing.T) {
	settings := testSettings(config.Service{Name: "xvfb", Command: []string{"cgex-no-such-binary"}})
	health := environment.NewSupervisor(settings, logging.NewNop()).HealthCheck(context.Background())
	if health.Ready || !strings.Contains(health.Detail, "cgex-no-such-binary") {
		t.Fatalf("unexpected health %+v", health)
	}
}
