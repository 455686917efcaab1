package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kottz/cgex/internal/assetid"
	"github.com/kottz/cgex/internal/catalog"
	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/discovery"
	"github.com/kottz/cgex/internal/environment"
	"github.com/kottz/cgex/internal/extraction"
	"github.com/kottz/cgex/internal/imaging"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/manifest"
	"github.com/kottz/cgex/internal/organizer"
	"github.com/kottz/cgex/internal/services"
	"github.com/kottz/cgex/internal/staging"
	"github.com/kottz/cgex/internal/textutil"
)

const (
	staleScratchAge = 24 * time.Hour
	stopSlack       = 5 * time.Second
)

// Option configures a Runner.
type Option func(*Runner)

// WithExtractor replaces the legacy runtime driver, e.g. with a replay.
func WithExtractor(e extraction.Extractor) Option {
	return func(r *Runner) {
		if e != nil {
			r.extractor = e
		}
	}
}

// WithStarter replaces the environment supervisor.
func WithStarter(s Starter) Option {
	return func(r *Runner) {
		if s != nil {
			r.starter = s
		}
	}
}

// WithCatalog replaces the built-in title catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(r *Runner) {
		if c != nil {
			r.catalog = c
		}
	}
}

// WithManifest records the run in store.
func WithManifest(store *manifest.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithRunID fixes the run identifier.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// WithUpscaler replaces the configured upscaler backend.
func WithUpscaler(u imaging.Upscaler) Option {
	return func(r *Runner) {
		r.upscaler = u
	}
}

// Runner executes one extraction run end to end.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	runID     string
	catalog   *catalog.Catalog
	starter   Starter
	extractor extraction.Extractor
	upscaler  imaging.Upscaler
	store     *manifest.Store
	organizer *organizer.Organizer
	assets    *assetProcessor
	workers   int
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
}

// New wires a runner from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	r := &Runner{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		runID:   NewRunID(),
		catalog: catalog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.starter == nil {
		r.starter = supervisorStarter{supervisor: environment.NewSupervisor(environment.SettingsFromConfig(cfg), logger)}
	}
	if r.extractor == nil {
		driver, err := extraction.NewDriver(extraction.SettingsFromConfig(cfg), logger)
		if err != nil {
			return nil, err
		}
		r.extractor = driver
	}

	settings := imaging.SettingsFromConfig(cfg)
	if !settings.SkipUpscale && r.upscaler == nil {
		up, err := imaging.NewUpscaler(cfg.Upscale, filepath.Join(cfg.Paths.ScratchDir, r.runID, "upscale"))
		if err != nil {
			return nil, err
		}
		r.upscaler = up
	}
	images, err := imaging.NewProcessor(settings, r.upscaler, logger)
	if err != nil {
		return nil, err
	}
	text, err := textutil.NewTranscoder(cfg.TextCharset())
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "text charset", err)
	}
	r.assets = &assetProcessor{images: images, text: text, logger: logging.NewComponentLogger(logger, "assets")}
	r.organizer = organizer.New(cfg.Paths.OutputDir, logger)

	r.workers = cfg.Processing.Workers
	if r.workers <= 0 {
		r.workers = runtime.NumCPU()
	}
	return r, nil
}

// RunID returns the run identifier.
func (r *Runner) RunID() string {
	return r.runID
}

// Run discovers movies, extracts and processes each in turn and commits the
// results. Job and asset failures are recorded in the summary; only fatal
// errors are returned.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	ctx = services.WithRunID(ctx, r.runID)
	logger := logging.WithContext(ctx, r.logger)
	summary := newSummary(r.runID)

	pipe := r.cfg.Pipeline()
	logger.Info("run started",
		logging.String("input_dir", r.cfg.Paths.InputDir),
		logging.String("output_dir", r.cfg.Paths.OutputDir),
		logging.Bool("upscale", !pipe.SkipUpscale),
		logging.Bool("compress", pipe.Compress),
		logging.Bool("transparent_background", !pipe.StripAlpha),
		logging.Int("workers", r.workers),
		logging.String(logging.FieldEventType, "run_start"),
	)

	if removed, err := organizer.SweepTemp(r.cfg.Paths.OutputDir); err != nil {
		logger.Debug("temp sweep failed", logging.Error(err))
	} else if removed > 0 {
		logger.Info("removed interrupted writes", logging.Int("count", removed))
	}
	staging.CleanStale(r.cfg.Paths.ScratchDir, r.runID, staleScratchAge, logger)

	ledgerID := r.beginLedger(ctx, started)
	finish := func(err error) (Summary, error) {
		summary.Duration = time.Since(started)
		r.removeRunScratch(logger)
		r.finishLedger(ledgerID, summary, err)
		return summary, err
	}

	jobs, report, err := discovery.Discover(discovery.Options{
		InputDir:    r.cfg.Paths.InputDir,
		ScratchRoot: r.cfg.Paths.ScratchDir,
		RunID:       r.runID,
		Catalog:     r.catalog,
	}, r.logger)
	if err != nil {
		return finish(err)
	}
	summary.JobsFound = len(jobs)
	if len(report.Detections) > 0 {
		summary.Title = report.Detections[0].Title.Name
	}
	if len(jobs) == 0 {
		return finish(nil)
	}

	env, err := r.starter.Start(ctx)
	if err != nil {
		return finish(err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), r.cfg.StopGrace()+stopSlack)
		defer cancel()
		env.Stop(stopCtx)
	}()

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		if err := env.HealthCheck(ctx); err != nil {
			logging.WarnWithContext(logger, "runtime environment unhealthy; restarting", "environment_restart",
				logging.Error(err),
				logging.String(logging.FieldImpact, "environment restarted before next movie"),
			)
			stopCtx, cancel := context.WithTimeout(context.Background(), r.cfg.StopGrace()+stopSlack)
			env.Stop(stopCtx)
			cancel()
			if env, err = r.starter.Start(ctx); err != nil {
				env = stopped{}
				return finish(err)
			}
		}

		result, fatal := r.runJob(ctx, env, job)
		summary.add(result.job)
		for reason, n := range result.skipped {
			summary.skip(reason, n)
		}
		env.Cleanup(ctx)
		r.removeScratch(logger, job)
		r.recordJob(ctx, ledgerID, result)
		if fatal != nil {
			return finish(fatal)
		}
	}

	logger.Info("run finished",
		logging.Int("jobs_found", summary.JobsFound),
		logging.Int("jobs_succeeded", summary.JobsSucceeded),
		logging.Int("jobs_failed", summary.JobsFailed),
		logging.Int("assets_written", summary.AssetsWritten),
		logging.Int("assets_skipped", summary.AssetsSkipped()),
		logging.Int("upscale_fallbacks", summary.UpscaleFallbacks),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "run_complete"),
	)
	return finish(nil)
}

type jobResult struct {
	job     JobSummary
	skipped map[string]int
	written []organizer.Written
	records map[string]Record
}

// runJob extracts one movie and commits its assets. The second return value
// is non-nil only for fatal errors.
func (r *Runner) runJob(ctx context.Context, env Runtime, job discovery.MovieJob) (jobResult, error) {
	started := time.Now()
	ctx = services.WithJob(ctx, job.MovieName)
	logger := logging.WithContext(ctx, r.logger)
	res := jobResult{
		job:     JobSummary{Seq: job.Seq, Movie: job.MovieName, Title: job.Title.Name},
		skipped: make(map[string]int),
		records: make(map[string]Record),
	}
	fail := func(err error) (jobResult, error) {
		res.job.Duration = time.Since(started)
		res.job.Err = err
		res.job.Reason = services.Reason(err)
		res.job.Status = JobFailed
		if ctx.Err() != nil {
			res.job.Status = JobAborted
			return res, ctx.Err()
		}
		if services.Classify(err) == services.SeverityFatal {
			res.job.Status = JobAborted
			return res, err
		}
		logging.ErrorWithContext(logger, "movie failed", "job_failed",
			logging.Error(err),
			logging.String("reason", res.job.Reason),
			logging.String(logging.FieldErrorHint, "see run log for runtime output"),
		)
		return res, nil
	}

	extracted, err := r.extractor.Extract(services.WithStage(ctx, "extraction"), env, job)
	if err != nil {
		return fail(err)
	}
	res.skipped[SkipKnownBroken] += len(extracted.Skipped)
	res.skipped[SkipDuplicate] += len(extracted.Duplicates)

	resolver := assetid.NewResolver()
	tasks := make([]assetTask, 0, len(extracted.Files))
	for _, raw := range extracted.Files {
		id, err := assetid.Parse(raw.Name)
		if err != nil {
			res.skipped[services.Reason(err)]++
			logger.Debug("skipping member", logging.String("file", raw.Name), logging.Error(err))
			continue
		}
		tasks = append(tasks, assetTask{path: raw.Path, identity: resolver.Assign(id)})
	}

	outcomes := make([]assetOutcome, len(tasks))
	g, gctx := errgroup.WithContext(services.WithStage(ctx, "assets"))
	g.SetLimit(r.workers)
	for i, task := range tasks {
		g.Go(func() error {
			processed, err := r.assets.process(gctx, job.Title, task)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			outcomes[i] = assetOutcome{processed: processed, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	assets := make([]organizer.Asset, 0, len(outcomes))
	type alias struct {
		raw  string
		name string
	}
	var aliases []alias
	for _, outcome := range outcomes {
		if outcome.err != nil {
			if services.Classify(outcome.err) == services.SeverityFatal {
				return fail(outcome.err)
			}
			res.skipped[services.Reason(outcome.err)]++
			logger.Debug("asset skipped", logging.Error(outcome.err))
			continue
		}
		p := outcome.processed
		id := p.Asset.Identity
		res.records[id.Raw] = p.Record
		if p.Record.Fallback {
			res.job.Fallbacks++
		}
		assets = append(assets, p.Asset)
		for _, name := range job.Title.AliasesFor(id.Movie, id.Area, id.Name()) {
			if resolver.Reserve(id, name) {
				aliases = append(aliases, alias{raw: id.Raw, name: name})
			}
		}
	}

	committed, err := r.organizer.Commit(services.WithStage(ctx, "commit"), job, assets)
	if err != nil {
		return fail(err)
	}
	res.written = committed.Written
	res.skipped[SkipConflict] += len(committed.Conflicts)

	byRaw := make(map[string]organizer.Written, len(committed.Written))
	for _, w := range committed.Written {
		byRaw[w.Asset.Identity.Raw] = w
	}
	for _, a := range aliases {
		w, ok := byRaw[a.raw]
		if !ok {
			continue
		}
		copied, err := r.organizer.CopyAlias(w, a.name)
		if err != nil {
			return fail(err)
		}
		res.written = append(res.written, copied)
	}

	for reason, n := range res.skipped {
		if n == 0 {
			delete(res.skipped, reason)
			continue
		}
		res.job.Skipped += n
	}
	res.job.Written = len(res.written)
	res.job.Status = JobSucceeded
	res.job.Duration = time.Since(started)
	logger.Info("movie finished",
		logging.Int("written", res.job.Written),
		logging.Int("skipped", res.job.Skipped),
		logging.Int("upscale_fallbacks", res.job.Fallbacks),
		logging.Duration("elapsed", res.job.Duration),
		logging.String(logging.FieldEventType, "job_complete"),
	)
	return res, nil
}

func (r *Runner) removeScratch(logger *slog.Logger, job discovery.MovieJob) {
	if r.cfg.Extractor.KeepScratch {
		logger.Debug("keeping scratch directory", logging.String("path", job.ScratchDir))
		return
	}
	if err := staging.RemoveJob(job.ScratchDir); err != nil {
		logging.WarnWithContext(logger, "failed to remove scratch directory", "scratch_cleanup_failed",
			logging.String("path", job.ScratchDir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
}

func (r *Runner) removeRunScratch(logger *slog.Logger) {
	if r.cfg.Extractor.KeepScratch {
		return
	}
	dir := filepath.Join(r.cfg.Paths.ScratchDir, r.runID)
	if err := os.RemoveAll(dir); err != nil {
		logger.Debug("run scratch cleanup failed", logging.String("path", dir), logging.Error(err))
	}
}

func (r *Runner) beginLedger(ctx context.Context, started time.Time) int64 {
	if r.store == nil {
		return 0
	}
	pipe := r.cfg.Pipeline()
	id, err := r.store.BeginRun(ctx, manifest.RunStart{
		RunID:     r.runID,
		StartedAt: started,
		InputDir:  r.cfg.Paths.InputDir,
		OutputDir: r.cfg.Paths.OutputDir,
		Upscale:   !pipe.SkipUpscale,
		Compress:  pipe.Compress,
		Alpha:     !pipe.StripAlpha,
	})
	if err != nil {
		logging.WarnWithContext(r.logger, "manifest unavailable; run will not be recorded", "manifest_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from history"),
		)
		r.store = nil
		return 0
	}
	return id
}

func (r *Runner) recordJob(ctx context.Context, ledgerID int64, res jobResult) {
	if r.store == nil {
		return
	}
	records := make([]manifest.AssetRecord, 0, len(res.written))
	for _, w := range res.written {
		rec := res.records[w.Asset.Identity.Raw]
		records = append(records, manifest.AssetRecord{
			RelPath:        w.Rel,
			Kind:           w.Asset.Identity.Kind.String(),
			Format:         rec.Format,
			Alpha:          rec.AlphaSynthesized,
			Upscaled:       rec.Upscaled,
			Fallback:       rec.Fallback,
			FallbackReason: rec.FallbackReason,
			Size:           w.Size,
			SHA256:         w.SHA256,
		})
	}
	var errText string
	if res.job.Err != nil {
		errText = res.job.Err.Error()
	}
	err := r.store.RecordJob(context.WithoutCancel(ctx), ledgerID, manifest.JobRecord{
		Seq:           res.job.Seq,
		Movie:         res.job.Movie,
		Title:         res.job.Title,
		Status:        res.job.Status,
		Reason:        res.job.Reason,
		Error:         errText,
		AssetsWritten: res.job.Written,
		AssetsSkipped: res.job.Skipped,
		Duration:      res.job.Duration,
	}, records)
	if err != nil {
		r.logger.Debug("manifest job record failed", logging.Error(err))
	}
}

func (r *Runner) finishLedger(ledgerID int64, summary Summary, runErr error) {
	if r.store == nil {
		return
	}
	status := manifest.StatusCompleted
	var errText string
	if runErr != nil {
		status = manifest.StatusFailed
		errText = runErr.Error()
		if errors.Is(runErr, context.Canceled) {
			errText = fmt.Sprintf("interrupted: %v", runErr)
		}
	}
	err := r.store.FinishRun(context.Background(), ledgerID, manifest.RunTotals{
		Status:           status,
		JobsFound:        summary.JobsFound,
		JobsSucceeded:    summary.JobsSucceeded,
		JobsFailed:       summary.JobsFailed,
		AssetsWritten:    summary.AssetsWritten,
		AssetsSkipped:    summary.AssetsSkipped(),
		UpscaleFallbacks: summary.UpscaleFallbacks,
		Error:            errText,
	})
	if err != nil {
		r.logger.Debug("manifest finish failed", logging.Error(err))
	}
}

// stopped is the handle left behind when a restart failed.
type stopped struct{}

func (stopped) Env() []string                     { return nil }
func (stopped) HealthCheck(context.Context) error { return nil }
func (stopped) Cleanup(context.Context)           {}
func (stopped) Stop(context.Context)              {}
