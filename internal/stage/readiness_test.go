package stage_test

import (
	"context"
	"testing"

	"github.com/kottz/cgex/internal/stage"
)

type fixedChecker stage.Health

func (f fixedChecker) HealthCheck(context.Context) stage.Health { return stage.Health(f) }

func TestCheckAllPreservesOrder(t *testing.T) {
	results := stage.CheckAll(context.Background(),
		fixedChecker(stage.Healthy("environment")),
		nil,
		fixedChecker(stage.Unhealthy("upscaler", "binary missing")),
	)
	if len(results) != 2 {
		t.Fatalf("expected nil checker to be skipped, got %d results", len(results))
	}
	if results[0].Name != "environment" || !results[0].Ready {
		t.Fatalf("unexpected first result %+v", results[0])
	}
	if results[1].Detail != "binary missing" {
		t.Fatalf("unexpected detail %+v", results[1])
	}
	if stage.AllReady(results) {
		t.Fatal("expected AllReady to be false")
	}
}

func TestHealthString(t *testing.T) {
	if got := stage.Healthy("environment").String(); got != "environment: ready" {
		t.Fatalf("unexpected ready string %q", got)
	}
	if got := stage.Unhealthy("environment", "missing binaries: Xvfb").String(); got != "environment: not ready (missing binaries: Xvfb)" {
		t.Fatalf("unexpected unhealthy string %q", got)
	}
}
