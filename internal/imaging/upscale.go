package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/procgroup"
	"github.com/kottz/cgex/internal/services"
)

// Upscaler enlarges an image by an integer factor.
type Upscaler interface {
	Upscale(ctx context.Context, img image.Image, factor int) (image.Image, error)
}

// NewUpscaler builds the configured backend. workDir hosts the command
// backend's temporary files.
func NewUpscaler(cfg config.Upscale, workDir string) (Upscaler, error) {
	switch cfg.Backend {
	case "resample":
		return ResampleUpscaler{}, nil
	case "command", "":
		if len(cfg.Command) == 0 {
			return nil, services.Wrap(services.ErrConfiguration, "imaging", "init", "upscale command required", nil)
		}
		return &CommandUpscaler{Command: append([]string(nil), cfg.Command...), WorkDir: workDir}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "imaging", "init", fmt.Sprintf("unknown upscale backend %q", cfg.Backend), nil)
	}
}

// ResampleUpscaler scales with Catmull-Rom interpolation. Deterministic and
// dependency free, but not a substitute for a learned upscaler.
type ResampleUpscaler struct{}

// Upscale implements Upscaler.
func (ResampleUpscaler) Upscale(ctx context.Context, img image.Image, factor int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

// CommandUpscaler shells out to an external upscaler that reads and writes PNG
// files. Command arguments may contain {input}, {output} and {scale}.
type CommandUpscaler struct {
	Command []string
	WorkDir string
}

// Upscale implements Upscaler.
func (u *CommandUpscaler) Upscale(ctx context.Context, img image.Image, factor int) (image.Image, error) {
	if u.WorkDir != "" {
		if err := os.MkdirAll(u.WorkDir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrUpscaleFailed, "imaging", "upscale", "create work dir", err)
		}
	}
	dir, err := os.MkdirTemp(u.WorkDir, "upscale-*")
	if err != nil {
		return nil, services.Wrap(services.ErrUpscaleFailed, "imaging", "upscale", "create temp dir", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "in.png")
	output := filepath.Join(dir, "out.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, services.Wrap(services.ErrUpscaleFailed, "imaging", "upscale", "encode input", err)
	}
	if err := os.WriteFile(input, buf.Bytes(), 0o644); err != nil {
		return nil, services.Wrap(services.ErrUpscaleFailed, "imaging", "upscale", "write input", err)
	}

	args := expandArgs(u.Command, map[string]string{
		"{input}":  input,
		"{output}": output,
		"{scale}":  strconv.Itoa(factor),
	})
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec
	cmd.Dir = dir
	procgroup.SetContext(cmd)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrUpscaleFailed, "imaging", "upscale", tail(string(out)), err)
	}

	f, err := os.Open(output)
	if err != nil {
		return nil, services.Wrap(services.ErrUpscaleFailed, "imaging", "upscale", "read output", err)
	}
	defer f.Close()
	result, err := png.Decode(f)
	if err != nil {
		return nil, services.Wrap(services.ErrUpscaleFailed, "imaging", "upscale", "decode output", err)
	}
	return result, nil
}

func expandArgs(argv []string, values map[string]string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		for placeholder, value := range values {
			arg = strings.ReplaceAll(arg, placeholder, value)
		}
		out[i] = arg
	}
	return out
}

func tail(output string) string {
	output = strings.TrimSpace(output)
	if idx := strings.LastIndexByte(output, '\n'); idx >= 0 {
		output = output[idx+1:]
	}
	const limit = 200
	if len(output) > limit {
		output = output[len(output)-limit:]
	}
	return output
}
