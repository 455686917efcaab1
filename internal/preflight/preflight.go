package preflight

import (
	"github.com/kottz/cgex/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks for a run. replay skips the checks
// that only matter when the legacy runtime is launched.
func RunAll(cfg *config.Config, replay bool) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckReadableDirectory("Input directory", cfg.Paths.InputDir),
		CheckOutputRoot(cfg.Paths.OutputDir),
	}
	if !replay {
		results = append(results, CheckExtractorTools(cfg))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
