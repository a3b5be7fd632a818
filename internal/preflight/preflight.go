package preflight

import (
	"context"
	"fmt"
	"strings"

	"aaxconv/internal/config"
	"aaxconv/internal/deps"
	"aaxconv/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the path and service checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}
	results = append(results, CheckMetadataService(ctx, cfg.Metadata.BaseURL, cfg.MetadataTimeout()))
	return results
}

// Conversion verifies that a conversion run can start: the output directory
// is usable and every required binary resolves. The metadata service is not
// probed; its failures are per job.
func Conversion(cfg *config.Config, outputDir string) error {
	var problems []string
	if result := CheckDirectoryAccess("output directory", outputDir); !result.Passed {
		problems = append(problems, result.Name+": "+result.Detail)
	}
	for _, status := range deps.Missing(CheckSystemDeps(cfg)) {
		problems = append(problems, fmt.Sprintf("%s: %s", status.Name, status.Detail))
	}
	if len(problems) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, "preflight", "check environment", strings.Join(problems, "; "), nil)
}
