package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeImages()
	c.normalizeUpscale()
	c.normalizeExtractor()
	c.normalizeEnvironment()
	c.Text.SourceCharset = strings.ToLower(strings.TrimSpace(c.Text.SourceCharset))
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.InputDir) == "" {
		c.Paths.InputDir = defaultInputDir
	}
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir()
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeImages() {
	if value, ok := lookupBoolEnv("NO_UPSCALE"); ok {
		c.Images.SkipUpscale = value
	}
	if value, ok := lookupBoolEnv("COMPRESSION"); ok {
		c.Images.Compress = value
	}
	if value, ok := lookupBoolEnv("NO_TRANSPARENT_BACKGROUND"); ok {
		c.Images.StripAlpha = value
	}
	c.Images.LosslessFormat = strings.ToLower(strings.TrimSpace(c.Images.LosslessFormat))
	if c.Images.LosslessFormat == "" {
		c.Images.LosslessFormat = defaultLosslessFormat
	}
	if c.Images.WebPQuality == 0 {
		c.Images.WebPQuality = defaultWebPQuality
	}
}

func (c *Config) normalizeUpscale() {
	c.Upscale.Backend = strings.ToLower(strings.TrimSpace(c.Upscale.Backend))
	if c.Upscale.Backend == "" {
		c.Upscale.Backend = defaultUpscaleBackend
	}
	if c.Upscale.Factor == 0 {
		c.Upscale.Factor = defaultUpscaleFactor
	}
	c.Upscale.Command = trimArgs(c.Upscale.Command)
	if len(c.Upscale.Command) == 0 {
		c.Upscale.Command = defaultUpscaleCommand()
	}
}

func (c *Config) normalizeExtractor() {
	c.Extractor.ToolsDir = strings.TrimSpace(c.Extractor.ToolsDir)
	if c.Extractor.ToolsDir == "" {
		c.Extractor.ToolsDir = defaultToolsDir
	}
	if expanded, err := expandPath(c.Extractor.ToolsDir); err == nil {
		c.Extractor.ToolsDir = expanded
	}
	c.Extractor.Command = trimArgs(c.Extractor.Command)
	c.Extractor.DismissCommand = trimArgs(c.Extractor.DismissCommand)
	if c.Extractor.DismissInterval <= 0 {
		c.Extractor.DismissInterval = defaultDismissInterval
	}
}

func (c *Config) normalizeEnvironment() {
	c.Environment.Display = strings.TrimSpace(c.Environment.Display)
	if c.Environment.Display == "" {
		c.Environment.Display = defaultDisplay
	}
	c.Environment.CleanupCommand = trimArgs(c.Environment.CleanupCommand)
	for i := range c.Environment.Services {
		svc := &c.Environment.Services[i]
		svc.Name = strings.TrimSpace(svc.Name)
		svc.Command = trimArgs(svc.Command)
		svc.ReadyPath = strings.TrimSpace(svc.ReadyPath)
		svc.ReadyCommand = trimArgs(svc.ReadyCommand)
		if svc.Name == "" && len(svc.Command) > 0 {
			svc.Name = svc.Command[0]
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lookupBoolEnv(key string) (bool, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "":
		return false, false
	case "yes", "on", "y":
		return true, true
	case "no", "off", "n":
		return false, true
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, false
	}
	return parsed, true
}
