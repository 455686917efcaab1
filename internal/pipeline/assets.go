package pipeline

import (
	"context"
	"log/slog"
	"os"

	"github.com/kottz/cgex/internal/assetid"
	"github.com/kottz/cgex/internal/audio"
	"github.com/kottz/cgex/internal/catalog"
	"github.com/kottz/cgex/internal/imaging"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/organizer"
	"github.com/kottz/cgex/internal/services"
	"github.com/kottz/cgex/internal/textutil"
)

// Record is how an asset was processed.
type Record struct {
	AlphaSynthesized bool
	Upscaled         bool
	Fallback         bool
	FallbackReason   string
	Format           string
}

// ProcessedAsset is a member ready for commit.
type ProcessedAsset struct {
	Asset  organizer.Asset
	Record Record
}

type assetTask struct {
	path     string
	identity assetid.Identity
}

type assetOutcome struct {
	processed ProcessedAsset
	err       error
}

// assetProcessor dispatches one member by kind.
type assetProcessor struct {
	images *imaging.Processor
	text   *textutil.Transcoder
	logger *slog.Logger
}

func (p *assetProcessor) process(ctx context.Context, title catalog.Title, task assetTask) (ProcessedAsset, error) {
	ctx = services.WithAsset(ctx, task.identity.Raw)
	data, err := os.ReadFile(task.path)
	if err != nil {
		return ProcessedAsset{}, services.Wrap(services.ErrUnrecognizedAsset, "assets", "read", task.identity.Raw, err)
	}

	id := task.identity
	switch id.Kind {
	case assetid.KindBitmap:
		result, err := p.images.Process(ctx, data, title.KeyColor)
		if err != nil {
			return ProcessedAsset{}, err
		}
		return ProcessedAsset{
			Asset: organizer.Asset{Identity: id, Ext: result.Format, Data: result.Data},
			Record: Record{
				AlphaSynthesized: result.AlphaSynthesized,
				Upscaled:         result.Upscaled,
				Fallback:         result.Fallback,
				FallbackReason:   result.FallbackReason,
				Format:           result.Format,
			},
		}, nil
	case assetid.KindSound:
		result, err := audio.Process(data)
		if err != nil {
			return ProcessedAsset{}, err
		}
		logging.WithContext(ctx, p.logger).Debug("audio validated",
			logging.Int("channels", result.Channels),
			logging.Int("sample_rate", result.SampleRate),
			logging.Duration("duration", result.Duration),
		)
		return ProcessedAsset{
			Asset:  organizer.Asset{Identity: id, Ext: "wav", Data: result.Data},
			Record: Record{Format: "wav"},
		}, nil
	case assetid.KindText:
		out, converted, err := p.text.Transcode(data)
		if err != nil {
			return ProcessedAsset{}, services.Wrap(services.ErrUnrecognizedAsset, "assets", "transcode text", id.Raw, err)
		}
		format := "txt"
		if converted {
			format = "txt:" + p.text.Charset()
		}
		return ProcessedAsset{
			Asset:  organizer.Asset{Identity: id, Ext: "txt", Data: out},
			Record: Record{Format: format},
		}, nil
	default:
		return ProcessedAsset{}, services.Wrap(services.ErrUnrecognizedAsset, "assets", "dispatch", id.Raw, nil)
	}
}
