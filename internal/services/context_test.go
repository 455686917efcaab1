package services_test

import (
	"context"
	"testing"

	"github.com/kottz/cgex/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithJob(ctx, "berlin.dir")
	ctx = services.WithStage(ctx, "extraction")
	ctx = services.WithAsset(ctx, "berlin--Anim__a-1.bmp")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if job, ok := services.JobFromContext(ctx); !ok || job != "berlin.dir" {
		t.Fatalf("unexpected job: %v %v", job, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "extraction" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if asset, ok := services.AssetFromContext(ctx); !ok || asset != "berlin--Anim__a-1.bmp" {
		t.Fatalf("unexpected asset: %v %v", asset, ok)
	}
}

func TestBlankValuesLeaveContextUntouched(t *testing.T) {
	base := services.WithJob(context.Background(), "heden.dir")
	ctx := services.WithJob(services.WithStage(base, ""), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if job, ok := services.JobFromContext(ctx); !ok || job != "heden.dir" {
		t.Fatalf("blank job should keep the outer value, got %q", job)
	}
	if _, ok := services.RunIDFromContext(context.Background()); ok {
		t.Fatal("expected no run id on empty context")
	}
}
