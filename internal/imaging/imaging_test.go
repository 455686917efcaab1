package imaging_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"golang.org/x/image/bmp"

	"github.com/kottz/cgex/internal/imaging"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/services"
)

var magenta = color.RGBA{R: 255, B: 255, A: 255}

// sampleBMP returns a 4x2 bitmap whose left column is the key colour.
func sampleBMP(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
		img.SetRGBA(0, y, magenta)
	}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png output: %v", err)
	}
	return img
}

func alphaAt(img image.Image, x, y int) uint8 {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).A
}

func TestProcessKeyColourUpscaledPNG(t *testing.T) {
	proc, err := imaging.NewProcessor(imaging.Settings{Factor: 2, LosslessFormat: "png"}, imaging.ResampleUpscaler{}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	result, err := proc.Process(context.Background(), sampleBMP(t), magenta)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.Upscaled || !result.AlphaSynthesized || result.Fallback {
		t.Fatalf("unexpected record %+v", result)
	}
	if result.Width != 8 || result.Height != 4 || result.Format != imaging.FormatPNG {
		t.Fatalf("unexpected geometry %dx%d %s", result.Width, result.Height, result.Format)
	}
	img := decodePNG(t, result.Data)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			a := alphaAt(img, x, y)
			want := uint8(255)
			if x < 2 {
				want = 0
			}
			if a != want {
				t.Fatalf("pixel (%d,%d): alpha %d, want %d", x, y, a, want)
			}
		}
	}
}

func TestProcessWithoutUpscaleOrAlpha(t *testing.T) {
	proc, err := imaging.NewProcessor(imaging.Settings{SkipUpscale: true, StripAlpha: true, LosslessFormat: "bmp"}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	result, err := proc.Process(context.Background(), sampleBMP(t), magenta)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Upscaled || result.AlphaSynthesized || result.Format != imaging.FormatBMP {
		t.Fatalf("unexpected record %+v", result)
	}
	img, err := bmp.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decode bmp output: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Fatalf("expected original width, got %d", img.Bounds().Dx())
	}
	if alphaAt(img, 0, 0) != 255 {
		t.Fatal("expected opaque output when alpha is stripped")
	}
}

func TestProcessCompressedWebP(t *testing.T) {
	proc, err := imaging.NewProcessor(imaging.Settings{SkipUpscale: true, Compress: true, WebPQuality: 80}, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	result, err := proc.Process(context.Background(), sampleBMP(t), magenta)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Format != imaging.FormatWebP {
		t.Fatalf("expected webp, got %s", result.Format)
	}
	if len(result.Data) < 12 || string(result.Data[0:4]) != "RIFF" || string(result.Data[8:12]) != "WEBP" {
		t.Fatalf("output is not a webp stream")
	}
}

type failingUpscaler struct{ err error }

func (f failingUpscaler) Upscale(context.Context, image.Image, int) (image.Image, error) {
	return nil, f.err
}

type wrongSizeUpscaler struct{}

func (wrongSizeUpscaler) Upscale(_ context.Context, img image.Image, _ int) (image.Image, error) {
	return img, nil
}

type blockingUpscaler struct{}

func (blockingUpscaler) Upscale(ctx context.Context, _ image.Image, _ int) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingUpscaler struct {
	input image.Image
}

func (r *recordingUpscaler) Upscale(ctx context.Context, img image.Image, factor int) (image.Image, error) {
	r.input = img
	return imaging.ResampleUpscaler{}.Upscale(ctx, img, factor)
}

func TestProcessUpscalesTransparentKeyPixels(t *testing.T) {
	rec := &recordingUpscaler{}
	proc, err := imaging.NewProcessor(imaging.Settings{Factor: 2, LosslessFormat: "png"}, rec, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	result, err := proc.Process(context.Background(), sampleBMP(t), magenta)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if rec.input == nil {
		t.Fatal("upscaler was not called")
	}
	if got := color.NRGBAModel.Convert(rec.input.At(0, 0)).(color.NRGBA); got.A != 0 {
		t.Fatalf("key pixel reached the upscaler as %+v", got)
	}
	img := decodePNG(t, result.Data)
	for y := 0; y < 4; y++ {
		for x := 2; x < 8; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A != 255 || drifts(c.R, 10) || drifts(c.G, 20) || drifts(c.B, 30) {
				t.Fatalf("pixel (%d,%d) = %+v, want opaque {10 20 30} without key bleed", x, y, c)
			}
		}
	}
}

// drifts reports whether got is further from want than resampler overshoot
// and rounding allow.
func drifts(got, want uint8) bool {
	d := int(got) - int(want)
	return d > 4 || d < -4
}

func TestProcessUpscaleFallbacks(t *testing.T) {
	cases := []struct {
		name     string
		upscaler imaging.Upscaler
		reason   string
	}{
		{name: "error", upscaler: failingUpscaler{err: errors.New("gpu missing")}, reason: "gpu missing"},
		{name: "wrong size", upscaler: wrongSizeUpscaler{}},
		{name: "timeout", upscaler: blockingUpscaler{}, reason: "timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proc, err := imaging.NewProcessor(imaging.Settings{Factor: 3, UpscaleTimeout: 20 * time.Millisecond}, tc.upscaler, logging.NewNop())
			if err != nil {
				t.Fatal(err)
			}
			result, err := proc.Process(context.Background(), sampleBMP(t), magenta)
			if err != nil {
				t.Fatalf("upscale failure must not fail the asset: %v", err)
			}
			if !result.Fallback || result.Upscaled {
				t.Fatalf("expected fallback record, got %+v", result)
			}
			if tc.reason != "" && result.FallbackReason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, result.FallbackReason)
			}
			if result.Width != 4 || result.Height != 2 {
				t.Fatalf("expected original resolution, got %dx%d", result.Width, result.Height)
			}
			if alphaAt(decodePNG(t, result.Data), 0, 0) != 0 {
				t.Fatal("expected alpha preserved on fallback")
			}
		})
	}
}

func TestProcessRejectsCorruptBitmap(t *testing.T) {
	proc, _ := imaging.NewProcessor(imaging.Settings{SkipUpscale: true}, nil, logging.NewNop())
	_, err := proc.Process(context.Background(), []byte("not a bitmap"), magenta)
	if !errors.Is(err, services.ErrImageDecode) {
		t.Fatalf("expected ErrImageDecode, got %v", err)
	}
	if services.Classify(err) != services.SeverityAsset {
		t.Fatalf("expected asset severity")
	}
}

func TestNewProcessorRejectsBMPWithAlpha(t *testing.T) {
	_, err := imaging.NewProcessor(imaging.Settings{SkipUpscale: true, LosslessFormat: "bmp"}, nil, logging.NewNop())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestApplyMaskZeroesTransparentColour(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	mask := imaging.KeyMask(img, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	out := imaging.ApplyMask(img, mask)
	if got := out.NRGBAAt(0, 0); got != (color.NRGBA{}) {
		t.Fatalf("expected fully transparent black, got %+v", got)
	}
	if got := out.NRGBAAt(1, 0); got != (color.NRGBA{R: 1, G: 2, B: 3, A: 255}) {
		t.Fatalf("expected opaque original colour, got %+v", got)
	}
}
