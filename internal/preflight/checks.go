package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, ok string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, ok)}
}

// CheckOutputRoot creates the output root when missing and verifies it is
// writable.
func CheckOutputRoot(path string) Result {
	const name = "Output directory"
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, err)}
	}
	return CheckDirectoryAccess(name, path)
}

// CheckExtractorTools verifies the tools directory holds the program the
// extractor command runs.
func CheckExtractorTools(cfg *config.Config) Result {
	const name = "Extractor tools"
	result := CheckReadableDirectory(name, cfg.Extractor.ToolsDir)
	if !result.Passed {
		return result
	}
	args := cfg.Extractor.Command
	if len(args) < 2 {
		return result
	}
	program := args[len(args)-1]
	if _, err := os.Stat(filepath.Join(cfg.Extractor.ToolsDir, program)); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s missing from %s", program, cfg.Extractor.ToolsDir)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s present)", cfg.Extractor.ToolsDir, program)}
}

// CheckSystemDeps evaluates the external programs the current config launches.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	var requirements []deps.Requirement
	if len(cfg.Extractor.Command) > 0 {
		requirements = append(requirements, deps.Requirement{
			Name:        "Extractor runtime",
			Command:     cfg.Extractor.Command[0],
			Description: "Runs the legacy extractor",
		})
	}
	if len(cfg.Extractor.DismissCommand) > 0 {
		requirements = append(requirements, deps.Requirement{
			Name:        "Dialog dismissal",
			Command:     cfg.Extractor.DismissCommand[0],
			Description: "Dismisses modal dialogs for titles that raise them",
			Optional:    true,
		})
	}
	if !cfg.Images.SkipUpscale && cfg.Upscale.Backend == "command" && len(cfg.Upscale.Command) > 0 {
		requirements = append(requirements, deps.Requirement{
			Name:        "Upscaler",
			Command:     cfg.Upscale.Command[0],
			Description: "Upscales bitmaps; failures fall back to original resolution",
			Optional:    true,
		})
	}
	if cfg.Environment.Enabled {
		for _, svc := range cfg.Environment.Services {
			if len(svc.Command) == 0 {
				continue
			}
			requirements = append(requirements, deps.Requirement{
				Name:        svc.Name,
				Command:     svc.Command[0],
				Description: "Runtime environment service",
			})
		}
		if len(cfg.Environment.CleanupCommand) > 0 {
			requirements = append(requirements, deps.Requirement{
				Name:        "Runtime cleanup",
				Command:     cfg.Environment.CleanupCommand[0],
				Description: "Clears runtime state between movies",
				Optional:    true,
			})
		}
	}
	return deps.CheckBinaries(requirements)
}
