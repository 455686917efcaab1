package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"time"

	"github.com/chai2010/webp"
	"golang.org/x/image/bmp"

	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/services"
)

// Output formats.
const (
	FormatWebP = "webp"
	FormatPNG  = "png"
	FormatBMP  = "bmp"
)

// Settings controls one run's image chain.
type Settings struct {
	SkipUpscale    bool
	Compress       bool
	StripAlpha     bool
	WebPQuality    int
	LosslessFormat string
	Factor         int
	UpscaleTimeout time.Duration
}

// SettingsFromConfig resolves image settings from the application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	p := cfg.Pipeline()
	return Settings{
		SkipUpscale:    p.SkipUpscale,
		Compress:       p.Compress,
		StripAlpha:     p.StripAlpha,
		WebPQuality:    cfg.Images.WebPQuality,
		LosslessFormat: cfg.Images.LosslessFormat,
		Factor:         cfg.Upscale.Factor,
		UpscaleTimeout: cfg.UpscaleTimeout(),
	}
}

// Format returns the encoder the settings select.
func (s Settings) Format() string {
	if s.Compress {
		return FormatWebP
	}
	if s.LosslessFormat == FormatBMP {
		return FormatBMP
	}
	return FormatPNG
}

// Result is one processed bitmap.
type Result struct {
	Data             []byte
	Format           string
	Width            int
	Height           int
	AlphaSynthesized bool
	Upscaled         bool
	Fallback         bool
	FallbackReason   string
}

// Processor runs bitmaps through decode, key-colour transparency, optional
// upscaling and encoding.
type Processor struct {
	settings Settings
	upscaler Upscaler
	logger   *slog.Logger
}

// NewProcessor constructs a processor. upscaler may be nil when upscaling is
// disabled.
func NewProcessor(settings Settings, upscaler Upscaler, logger *slog.Logger) (*Processor, error) {
	if settings.Format() == FormatBMP && !settings.StripAlpha {
		return nil, services.Wrap(services.ErrConfiguration, "imaging", "init",
			"bmp output cannot carry transparency; enable compression or disable transparent backgrounds", nil)
	}
	if !settings.SkipUpscale && upscaler == nil {
		return nil, services.Wrap(services.ErrConfiguration, "imaging", "init", "upscaler required when upscaling", nil)
	}
	if settings.Factor < 2 {
		settings.Factor = 2
	}
	return &Processor{
		settings: settings,
		upscaler: upscaler,
		logger:   logging.NewComponentLogger(logger, "imaging"),
	}, nil
}

// Settings returns the processor's settings.
func (p *Processor) Settings() Settings {
	return p.settings
}

// Process converts one BMP member. Upscale failures fall back to the original
// resolution and are recorded on the result rather than returned.
func (p *Processor) Process(ctx context.Context, data []byte, key color.RGBA) (Result, error) {
	img, err := Decode(data)
	if err != nil {
		return Result{}, err
	}

	var result Result
	var mask *image.Alpha
	if !p.settings.StripAlpha {
		mask = KeyMask(img, key)
		result.AlphaSynthesized = true
	}

	out := img
	if !p.settings.SkipUpscale {
		src := img
		if mask != nil {
			// Key pixels must reach the upscaler transparent or their colour
			// is interpolated into neighbouring edges.
			src = ApplyMask(img, mask)
		}
		upscaled, err := p.upscale(ctx, src)
		switch {
		case err == nil:
			out = upscaled
			result.Upscaled = true
		case ctx.Err() != nil:
			return Result{}, ctx.Err()
		default:
			result.Fallback = true
			result.FallbackReason = fallbackReason(err)
			logging.WithContext(ctx, p.logger).Debug("upscale failed; keeping original resolution",
				logging.Error(err),
				logging.String("reason", result.FallbackReason),
			)
		}
	}

	var final image.Image
	if mask != nil {
		final = ApplyMask(out, mask)
	} else {
		final = opaque(out)
	}

	result.Format = p.settings.Format()
	encoded, err := Encode(final, result.Format, p.settings.WebPQuality)
	if err != nil {
		return Result{}, services.Wrap(services.ErrImageEncode, "imaging", "encode", result.Format, err)
	}
	b := final.Bounds()
	result.Data = encoded
	result.Width = b.Dx()
	result.Height = b.Dy()
	return result, nil
}

func (p *Processor) upscale(ctx context.Context, img image.Image) (image.Image, error) {
	upCtx := ctx
	if p.settings.UpscaleTimeout > 0 {
		var cancel context.CancelFunc
		upCtx, cancel = context.WithTimeout(ctx, p.settings.UpscaleTimeout)
		defer cancel()
	}
	out, err := p.upscaler.Upscale(upCtx, img, p.settings.Factor)
	if err != nil {
		if errors.Is(upCtx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrUpscaleFailed, "imaging", "upscale",
				fmt.Sprintf("exceeded %s", p.settings.UpscaleTimeout), context.DeadlineExceeded)
		}
		return nil, err
	}
	if err := verifyScale(img.Bounds(), out.Bounds(), p.settings.Factor); err != nil {
		return nil, err
	}
	return out, nil
}

func verifyScale(in, out image.Rectangle, factor int) error {
	if out.Dx() != in.Dx()*factor || out.Dy() != in.Dy()*factor {
		return services.Wrap(services.ErrUpscaleFailed, "imaging", "verify",
			fmt.Sprintf("expected %dx%d, got %dx%d", in.Dx()*factor, in.Dy()*factor, out.Dx(), out.Dy()), nil)
	}
	return nil
}

func fallbackReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}

// Decode parses a BMP byte stream.
func Decode(data []byte) (image.Image, error) {
	img, err := bmp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrImageDecode, "imaging", "decode", "bmp", err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, services.Wrap(services.ErrImageDecode, "imaging", "decode", "empty bitmap", nil)
	}
	return img, nil
}

// Encode serializes img in the named format.
func Encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatWebP:
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)})
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatBMP:
		err = bmp.Encode(&buf, opaque(img))
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
