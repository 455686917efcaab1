package extraction

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kottz/cgex/internal/catalog"
	"github.com/kottz/cgex/internal/discovery"
	"github.com/kottz/cgex/internal/fileutil"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/services"
)

// ReplayExtractor copies a previously recorded dump instead of running the
// legacy runtime. The dump is either <dir>/<movie stem>/* or a flat directory
// whose files carry the "<movie stem>--" prefix.
type ReplayExtractor struct {
	Dir    string
	Dedupe bool
	Logger *slog.Logger
}

// Extract implements Extractor.
func (r *ReplayExtractor) Extract(ctx context.Context, _ Runtime, job discovery.MovieJob) (Result, error) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "replay"))
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(job.ScratchDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrRuntimeCrash, "extraction", "create scratch", job.ScratchDir, err)
	}

	sources, err := r.sources(job.Stem())
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "extraction", "read replay dir", r.Dir, err)
	}
	names := make([]string, 0, len(sources))
	for _, src := range sources {
		name := filepath.Base(src)
		if err := fileutil.CopyFile(src, filepath.Join(job.ScratchDir, name)); err != nil {
			return Result{}, services.Wrap(services.ErrRuntimeCrash, "extraction", "copy replay file", name, err)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return Result{}, services.Wrap(services.ErrNoAssets, "extraction", "replay", job.MovieName, nil)
	}
	sort.Strings(names)
	logger.Info("replaying recorded dump",
		logging.String("movie", job.MovieName),
		logging.Int("files", len(names)),
		logging.String(logging.FieldEventType, "replay_start"),
	)
	return finish(job.ScratchDir, names, job.Title, r.Dedupe, logger)
}

func (r *ReplayExtractor) sources(stem string) ([]string, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() && catalog.SameName(entry.Name(), stem) {
			return regularFiles(filepath.Join(r.Dir, entry.Name()), "")
		}
	}
	return regularFiles(r.Dir, stem+"--")
}

func regularFiles(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	lowerPrefix := strings.ToLower(prefix)
	var out []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(entry.Name()), lowerPrefix) {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	return out, nil
}
