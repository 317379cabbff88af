package preflight

import (
	"fmt"
	"strings"

	"kaldialign/internal/config"
	"kaldialign/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem, model and toolkit checks for one run. The
// audio directory is left to the manifest stage, which reports it as missing
// input rather than misconfiguration.
func RunAll(cfg *config.Config, dataDir string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckCreatableDirectory("Data directory", dataDir))
	results = append(results, CheckReadableDirectory("Recipe directory", cfg.Toolkit.RecipeDir))
	results = append(results, CheckModelFiles(cfg)...)
	for _, status := range CheckSystemDeps(cfg) {
		if status.Optional {
			continue
		}
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Resolved}
		if !status.Available {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Error folds failed results into a configuration error, or nil when all passed.
func Error(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, len(failed))
	for i, r := range failed {
		parts[i] = fmt.Sprintf("%s: %s", r.Name, r.Detail)
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "", strings.Join(parts, "; "), nil)
}
