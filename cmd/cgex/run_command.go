package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/deps"
	"github.com/kottz/cgex/internal/extraction"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/manifest"
	"github.com/kottz/cgex/internal/pipeline"
	"github.com/kottz/cgex/internal/preflight"
)

type runFlags struct {
	inputDir    string
	outputDir   string
	noUpscale   bool
	compress    bool
	noAlpha     bool
	replayDir   string
	workers     int
	keepScratch bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract every recognised movie in the input directory",
		Long: `Extract every recognised movie in the input directory into the output tree.

Bitmaps become PNG (or WebP with --compression) with the title's key colour made
transparent, sounds are validated and copied, and text members are passed
through. Jobs that fail are reported in the summary; the command only exits
non-zero when the run could not continue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Apply(flags.overrides(cmd)); err != nil {
				return err
			}
			if flags.keepScratch {
				cfg.Extractor.KeepScratch = true
			}
			replay := strings.TrimSpace(flags.replayDir) != ""
			if replay {
				if flags.replayDir, err = config.ExpandPath(flags.replayDir); err != nil {
					return fmt.Errorf("replay dir: %w", err)
				}
				cfg.Environment.Enabled = false
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			return executeRun(cmd, cfg, flags.replayDir)
		},
	}

	cmd.Flags().StringVarP(&flags.inputDir, "input", "i", "", "Directory containing the game's movie files")
	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", "", "Directory receiving the extracted asset tree")
	cmd.Flags().BoolVar(&flags.noUpscale, "no-upscale", false, "Keep bitmaps at their original resolution")
	cmd.Flags().BoolVar(&flags.compress, "compression", false, "Write lossy WebP instead of lossless images")
	cmd.Flags().BoolVar(&flags.noAlpha, "no-transparent-background", false, "Keep the key colour instead of making it transparent")
	cmd.Flags().StringVar(&flags.replayDir, "replay", "", "Use a recorded dump directory instead of running the legacy runtime")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Concurrent asset workers per movie (default: CPU count)")
	cmd.Flags().BoolVar(&flags.keepScratch, "keep-scratch", false, "Leave per-movie scratch directories in place")
	return cmd
}

// overrides only carries toggles the user actually set so the config file
// and environment keep their say otherwise.
func (f *runFlags) overrides(cmd *cobra.Command) config.Overrides {
	o := config.Overrides{
		InputDir:  f.inputDir,
		OutputDir: f.outputDir,
		Workers:   f.workers,
	}
	if cmd.Flags().Changed("no-upscale") {
		o.SkipUpscale = &f.noUpscale
	}
	if cmd.Flags().Changed("compression") {
		o.Compress = &f.compress
	}
	if cmd.Flags().Changed("no-transparent-background") {
		o.StripAlpha = &f.noAlpha
	}
	return o
}

func executeRun(cmd *cobra.Command, cfg *config.Config, replayDir string) error {
	replay := replayDir != ""
	if failed := preflight.Failed(preflight.RunAll(cfg, replay)); len(failed) > 0 {
		parts := make([]string, 0, len(failed))
		for _, r := range failed {
			parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
	}
	if !replay {
		if err := deps.MissingError(preflight.CheckSystemDeps(cfg)); err != nil {
			return fmt.Errorf("%w (run `cgex check` for details)", err)
		}
	}

	lock, err := pipeline.LockOutput(cfg)
	if err != nil {
		return err
	}
	defer lock.Release()

	runID := pipeline.NewRunID()
	logRun, err := logging.NewFromConfig(cfg, runID)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logRun.Close()
	logger := logRun.Logger

	opts := []pipeline.Option{pipeline.WithRunID(runID)}
	if cfg.Manifest.Enabled {
		store, err := manifest.Open(cfg.ManifestPath())
		if err != nil {
			logging.WarnWithContext(logger, "manifest unavailable; run will not be recorded", "manifest_unavailable",
				logging.String("path", cfg.ManifestPath()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "run missing from history"),
			)
		} else {
			defer store.Close()
			opts = append(opts, pipeline.WithManifest(store))
		}
	}
	if replay {
		opts = append(opts, pipeline.WithExtractor(&extraction.ReplayExtractor{
			Dir:    replayDir,
			Dedupe: cfg.Extractor.DedupeIdentical,
			Logger: logger,
		}))
	}

	runner, err := pipeline.New(cfg, logger, opts...)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := runner.Run(runCtx)
	summary.LogPath = logRun.LogPath

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderSummary(summary, shouldColorize(out)))
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("run interrupted: %w", runErr)
		}
		return runErr
	}
	return nil
}
