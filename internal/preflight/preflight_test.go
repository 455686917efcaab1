package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kottz/cgex/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || result.Detail == "" {
		t.Fatalf("expected failure with detail, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckDirectoryAccess("test", f).Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOutputRootCreatesDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "output")
	if result := CheckOutputRoot(out); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output root created: %v", err)
	}
}

func TestCheckExtractorTools(t *testing.T) {
	tools := t.TempDir()
	cfg := config.Default()
	cfg.Extractor.ToolsDir = tools
	cfg.Extractor.Command = []string{"wine", "dir_extractor.exe"}

	if CheckExtractorTools(&cfg).Passed {
		t.Fatal("expected failure when the extractor program is missing")
	}
	if err := os.WriteFile(filepath.Join(tools, "dir_extractor.exe"), []byte("MZ"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckExtractorTools(&cfg); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
}

func TestRunAllReplaySkipsTools(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.InputDir = t.TempDir()
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Extractor.ToolsDir = filepath.Join(t.TempDir(), "missing")

	if failed := Failed(RunAll(&cfg, true)); len(failed) != 0 {
		t.Fatalf("expected replay preflight to pass, got %+v", failed)
	}
	if failed := Failed(RunAll(&cfg, false)); len(failed) != 1 || failed[0].Name != "Extractor tools" {
		t.Fatalf("expected tools check to fail, got %+v", failed)
	}
}

func TestCheckSystemDepsFollowsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Environment.Enabled = false
	cfg.Images.SkipUpscale = true
	statuses := CheckSystemDeps(&cfg)
	for _, s := range statuses {
		if s.Name == "Upscaler" || s.Name == "xvfb" {
			t.Fatalf("unexpected requirement %s for disabled feature", s.Name)
		}
	}
	if len(statuses) == 0 || statuses[0].Name != "Extractor runtime" {
		t.Fatalf("expected extractor runtime requirement, got %+v", statuses)
	}
}
