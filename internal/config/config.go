package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains input, output and working directory configuration.
type Paths struct {
	InputDir   string `toml:"input_dir"`
	OutputDir  string `toml:"output_dir"`
	ScratchDir string `toml:"scratch_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Images controls the bitmap post-processing chain.
type Images struct {
	SkipUpscale    bool   `toml:"skip_upscale"`
	Compress       bool   `toml:"compress"`
	StripAlpha     bool   `toml:"strip_alpha"`
	WebPQuality    int    `toml:"webp_quality"`
	LosslessFormat string `toml:"lossless_format"`
}

// Upscale configures the upscaling backend.
//
// Command placeholders {input}, {output} and {scale} are substituted per
// invocation when Backend is "command".
type Upscale struct {
	Backend string   `toml:"backend"`
	Factor  int      `toml:"factor"`
	Command []string `toml:"command"`
	Timeout int      `toml:"timeout"`
}

// Extractor configures how the legacy runtime is driven for each movie.
type Extractor struct {
	ToolsDir        string   `toml:"tools_dir"`
	Command         []string `toml:"command"`
	Timeout         int      `toml:"timeout"`
	DismissCommand  []string `toml:"dismiss_command"`
	DismissInterval int      `toml:"dismiss_interval_ms"`
	DedupeIdentical bool     `toml:"dedupe_identical"`
	KeepScratch     bool     `toml:"keep_scratch"`
}

// Service is one long-lived process of the runtime environment, such as the
// virtual display server.
type Service struct {
	Name         string   `toml:"name"`
	Command      []string `toml:"command"`
	ReadyPath    string   `toml:"ready_path"`
	ReadyCommand []string `toml:"ready_command"`
}

// Environment describes the virtual display/audio environment the legacy
// runtime needs.
type Environment struct {
	Enabled        bool      `toml:"enabled"`
	Display        string    `toml:"display"`
	StartupTimeout int       `toml:"startup_timeout"`
	StopGrace      int       `toml:"stop_grace"`
	StalePaths     []string  `toml:"stale_paths"`
	CleanupCommand []string  `toml:"cleanup_command"`
	Services       []Service `toml:"services"`
}

// Text configures member text passthrough.
type Text struct {
	SourceCharset string `toml:"source_charset"`
}

// Processing configures the per-movie asset worker pool.
type Processing struct {
	Workers int `toml:"workers"`
}

// Manifest configures the SQLite run ledger.
type Manifest struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for cgex.
//
// Configuration sections by subsystem:
//   - Paths: input, output, scratch, state and log directories
//   - Images: alpha synthesis, upscaling toggle and output encoding
//   - Upscale: upscaler backend and its invocation
//   - Extractor: legacy runtime invocation, timeouts and dialog dismissal
//   - Environment: virtual display/audio services around the runtime
//   - Text: charset handling for text members
//   - Processing: worker pool sizing
//   - Manifest: run ledger
//   - Logging: log format, level, and retention
type Config struct {
	Paths       Paths       `toml:"paths"`
	Images      Images      `toml:"images"`
	Upscale     Upscale     `toml:"upscale"`
	Extractor   Extractor   `toml:"extractor"`
	Environment Environment `toml:"environment"`
	Text        Text        `toml:"text"`
	Processing  Processing  `toml:"processing"`
	Manifest    Manifest    `toml:"manifest"`
	Logging     Logging     `toml:"logging"`
}

// PipelineConfig is the resolved image pipeline behaviour for one run.
type PipelineConfig struct {
	SkipUpscale bool
	Compress    bool
	StripAlpha  bool
}

// Overrides carries command-line toggles applied on top of the loaded file.
// Nil fields leave the configured value untouched.
type Overrides struct {
	InputDir    string
	OutputDir   string
	SkipUpscale *bool
	Compress    *bool
	StripAlpha  *bool
	Workers     int
	LogLevel    string
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cgex/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cgex.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Apply layers command-line overrides onto the configuration and re-validates it.
func (c *Config) Apply(o Overrides) error {
	var err error
	if strings.TrimSpace(o.InputDir) != "" {
		if c.Paths.InputDir, err = expandPath(o.InputDir); err != nil {
			return fmt.Errorf("input dir: %w", err)
		}
	}
	if strings.TrimSpace(o.OutputDir) != "" {
		if c.Paths.OutputDir, err = expandPath(o.OutputDir); err != nil {
			return fmt.Errorf("output dir: %w", err)
		}
	}
	if o.SkipUpscale != nil {
		c.Images.SkipUpscale = *o.SkipUpscale
	}
	if o.Compress != nil {
		c.Images.Compress = *o.Compress
	}
	if o.StripAlpha != nil {
		c.Images.StripAlpha = *o.StripAlpha
	}
	if o.Workers > 0 {
		c.Processing.Workers = o.Workers
	}
	if lvl := strings.TrimSpace(o.LogLevel); lvl != "" {
		c.Logging.Level = strings.ToLower(lvl)
	}
	return c.Validate()
}

// Pipeline returns the immutable image pipeline configuration for a run.
func (c *Config) Pipeline() PipelineConfig {
	return PipelineConfig{
		SkipUpscale: c.Images.SkipUpscale,
		Compress:    c.Images.Compress,
		StripAlpha:  c.Images.StripAlpha,
	}
}

// EnsureDirectories creates the working directories a run writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.ScratchDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExtractorTimeout returns the per-movie extraction deadline.
func (c *Config) ExtractorTimeout() time.Duration {
	return time.Duration(c.Extractor.Timeout) * time.Second
}

// UpscaleTimeout returns the per-image upscale deadline.
func (c *Config) UpscaleTimeout() time.Duration {
	return time.Duration(c.Upscale.Timeout) * time.Second
}

// StartupTimeout returns how long environment services may take to become ready.
func (c *Config) StartupTimeout() time.Duration {
	return time.Duration(c.Environment.StartupTimeout) * time.Second
}

// StopGrace returns the SIGTERM to SIGKILL grace period for environment services.
func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Environment.StopGrace) * time.Second
}

// DismissInterval returns the delay between modal dialog dismissals.
func (c *Config) DismissInterval() time.Duration {
	return time.Duration(c.Extractor.DismissInterval) * time.Millisecond
}

// ManifestPath returns the location of the run ledger database.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.StateDir, "manifest.db")
}

// LockDir returns the directory holding output-tree lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
