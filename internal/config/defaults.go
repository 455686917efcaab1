package config

import (
	"os"
	"path/filepath"
)

const (
	defaultInputDir         = "disc_contents"
	defaultOutputDir        = "output"
	defaultStateDir         = "~/.local/share/cgex"
	defaultLogDir           = "~/.local/share/cgex/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultWebPQuality      = 90
	defaultLosslessFormat   = "png"
	defaultUpscaleBackend   = "command"
	defaultUpscaleFactor    = 3
	defaultUpscaleTimeout   = 120
	defaultToolsDir         = "extractor_tools"
	defaultExtractorTimeout = 900
	defaultDismissInterval  = 250
	defaultDisplay          = ":99"
	defaultStartupTimeout   = 30
	defaultStopGrace        = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:   defaultInputDir,
			OutputDir:  defaultOutputDir,
			ScratchDir: defaultScratchDir(),
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Images: Images{
			WebPQuality:    defaultWebPQuality,
			LosslessFormat: defaultLosslessFormat,
		},
		Upscale: Upscale{
			Backend: defaultUpscaleBackend,
			Factor:  defaultUpscaleFactor,
			Command: defaultUpscaleCommand(),
			Timeout: defaultUpscaleTimeout,
		},
		Extractor: Extractor{
			ToolsDir:        defaultToolsDir,
			Command:         []string{"wine", "dir_extractor.exe"},
			Timeout:         defaultExtractorTimeout,
			DismissCommand:  []string{"xdotool", "key", "Return"},
			DismissInterval: defaultDismissInterval,
		},
		Environment: Environment{
			Enabled:        true,
			Display:        defaultDisplay,
			StartupTimeout: defaultStartupTimeout,
			StopGrace:      defaultStopGrace,
			StalePaths:     []string{"/tmp/.X99-lock", "/tmp/.X11-unix/X99"},
			CleanupCommand: []string{"wineserver", "-k"},
			Services:       defaultServices(),
		},
		Processing: Processing{},
		Manifest: Manifest{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

func defaultUpscaleCommand() []string {
	return []string{"realesrgan-ncnn-vulkan", "-i", "{input}", "-o", "{output}", "-s", "{scale}"}
}

func defaultServices() []Service {
	return []Service{
		{
			Name:         "pulseaudio",
			Command:      []string{"pulseaudio", "--exit-idle-time=-1", "--daemonize=no"},
			ReadyCommand: []string{"pactl", "info"},
		},
		{
			Name:      "xvfb",
			Command:   []string{"Xvfb", defaultDisplay, "-screen", "0", "1024x768x24"},
			ReadyPath: "/tmp/.X11-unix/X99",
		},
	}
}

func defaultScratchDir() string {
	return filepath.Join(os.TempDir(), "cgex")
}
