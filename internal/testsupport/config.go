package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kottz/cgex/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The runtime environment is disabled and upscaling uses the in-process
// resampler so no external programs are needed unless a test opts in.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "input")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Extractor.ToolsDir = filepath.Join(base, "tools")
	cfgVal.Environment.Enabled = false
	cfgVal.Upscale.Backend = "resample"
	cfgVal.Upscale.Factor = 2
	cfgVal.Processing.Workers = 2

	for _, dir := range []string{cfgVal.Paths.InputDir, cfgVal.Extractor.ToolsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	b := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(b)
	}
	return b.cfg
}

// WithPipeline sets the image pipeline toggles.
func WithPipeline(p config.PipelineConfig) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Images.SkipUpscale = p.SkipUpscale
		b.cfg.Images.Compress = p.Compress
		b.cfg.Images.StripAlpha = p.StripAlpha
	}
}

// WithExtractorScript writes a shell script into the base directory and makes
// it the extractor command. The script receives the movie filename as $1 and
// runs inside the job's scratch directory.
func WithExtractorScript(body string) ConfigOption {
	return func(b *configBuilder) {
		script := WriteScript(b.t, filepath.Join(b.baseDir, "extract.sh"), body)
		b.cfg.Extractor.Command = []string{"sh", script}
	}
}

// WithStubbedBinaries puts no-op executables named names first on PATH for
// the rest of the test. With no names the runtime, dialog and cleanup
// programs of the default config are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"wine", "xdotool", "wineserver"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, filepath.Join(binDir, name), "exit 0")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WriteScript writes an executable shell script with body and returns its path.
func WriteScript(t testing.TB, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
	return path
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InputDir)
}
