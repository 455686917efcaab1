package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateUpscale(); err != nil {
		return err
	}
	if err := c.validateExtractor(); err != nil {
		return err
	}
	if err := c.validateEnvironment(); err != nil {
		return err
	}
	if err := c.validateText(); err != nil {
		return err
	}
	if c.Processing.Workers < 0 {
		return errors.New("processing.workers must not be negative")
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.InputDir == "" {
		return errors.New("paths.input_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.InputDir == c.Paths.OutputDir {
		return errors.New("paths.output_dir must differ from paths.input_dir")
	}
	return nil
}

func (c *Config) validateImages() error {
	if c.Images.WebPQuality < 1 || c.Images.WebPQuality > 100 {
		return errors.New("images.webp_quality must be between 1 and 100")
	}
	switch c.Images.LosslessFormat {
	case "png":
	case "bmp":
		if !c.Images.Compress && !c.Images.StripAlpha {
			return errors.New("images.lossless_format bmp cannot carry transparency; enable compression or disable transparent backgrounds")
		}
	default:
		return fmt.Errorf("images.lossless_format: unsupported value %q (want png or bmp)", c.Images.LosslessFormat)
	}
	return nil
}

func (c *Config) validateUpscale() error {
	if c.Images.SkipUpscale {
		return nil
	}
	switch c.Upscale.Backend {
	case "command":
		if len(c.Upscale.Command) == 0 {
			return errors.New("upscale.command must be set when upscale.backend is command")
		}
	case "resample":
	default:
		return fmt.Errorf("upscale.backend: unsupported value %q (want command or resample)", c.Upscale.Backend)
	}
	if c.Upscale.Factor < 2 {
		return errors.New("upscale.factor must be at least 2")
	}
	if c.Upscale.Timeout <= 0 {
		return errors.New("upscale.timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateExtractor() error {
	if len(c.Extractor.Command) == 0 {
		return errors.New("extractor.command must be set")
	}
	if c.Extractor.Timeout <= 0 {
		return errors.New("extractor.timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateEnvironment() error {
	if !c.Environment.Enabled {
		return nil
	}
	if c.Environment.StartupTimeout <= 0 {
		return errors.New("environment.startup_timeout must be positive (seconds)")
	}
	if c.Environment.StopGrace <= 0 {
		return errors.New("environment.stop_grace must be positive (seconds)")
	}
	seen := make(map[string]struct{}, len(c.Environment.Services))
	for i, svc := range c.Environment.Services {
		if len(svc.Command) == 0 {
			return fmt.Errorf("environment.services[%d].command must be set", i)
		}
		if _, dup := seen[svc.Name]; dup {
			return fmt.Errorf("environment.services[%d]: duplicate name %q", i, svc.Name)
		}
		seen[svc.Name] = struct{}{}
	}
	return nil
}

func (c *Config) validateText() error {
	if c.Text.SourceCharset == "" {
		return nil
	}
	if _, ok := lookupCharset(c.Text.SourceCharset); !ok {
		return fmt.Errorf("text.source_charset: unsupported value %q", c.Text.SourceCharset)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

var charsetNames = map[string]string{
	"windows-1252": "windows-1252",
	"cp1252":       "windows-1252",
	"iso-8859-1":   "iso-8859-1",
	"latin1":       "iso-8859-1",
	"macintosh":    "macintosh",
	"macroman":     "macintosh",
}

// lookupCharset canonicalizes a supported legacy text charset name.
func lookupCharset(name string) (string, bool) {
	canonical, ok := charsetNames[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// TextCharset returns the canonical source charset for text members, or ""
// when text is passed through unchanged.
func (c *Config) TextCharset() string {
	canonical, _ := lookupCharset(c.Text.SourceCharset)
	return canonical
}
