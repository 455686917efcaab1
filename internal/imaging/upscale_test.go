package imaging_test

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/imaging"
	"github.com/kottz/cgex/internal/services"
)

func TestCommandUpscalerRoundTrip(t *testing.T) {
	up := &imaging.CommandUpscaler{
		Command: []string{"sh", "-c", "cp \"$0\" \"$1\"", "{input}", "{output}"},
		WorkDir: t.TempDir(),
	}
	img := image.NewRGBA(image.Rect(0, 0, 3, 5))
	out, err := up.Upscale(context.Background(), img, 2)
	if err != nil {
		t.Fatalf("Upscale: %v", err)
	}
	if out.Bounds().Dx() != 3 || out.Bounds().Dy() != 5 {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
}

func TestCommandUpscalerFailure(t *testing.T) {
	up := &imaging.CommandUpscaler{Command: []string{"sh", "-c", "echo boom >&2; exit 1"}, WorkDir: t.TempDir()}
	_, err := up.Upscale(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)), 2)
	if !errors.Is(err, services.ErrUpscaleFailed) {
		t.Fatalf("expected ErrUpscaleFailed, got %v", err)
	}
}

func TestResampleUpscalerScales(t *testing.T) {
	out, err := imaging.ResampleUpscaler{}.Upscale(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 3)), 3)
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds().Dx() != 6 || out.Bounds().Dy() != 9 {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
}

func TestNewUpscalerBackends(t *testing.T) {
	if _, err := imaging.NewUpscaler(config.Upscale{Backend: "resample"}, ""); err != nil {
		t.Fatalf("resample: %v", err)
	}
	if _, err := imaging.NewUpscaler(config.Upscale{Backend: "command", Command: []string{"x"}}, ""); err != nil {
		t.Fatalf("command: %v", err)
	}
	if _, err := imaging.NewUpscaler(config.Upscale{Backend: "command"}, ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty command, got %v", err)
	}
	if _, err := imaging.NewUpscaler(config.Upscale{Backend: "magic"}, ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown backend, got %v", err)
	}
}
