package preflight

import (
	"context"

	"fragreel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the filesystem and configuration checks. db may be nil
// when the caller has not opened the store.
func RunAll(ctx context.Context, cfg *config.Config, db Pinger) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckReadableDirectory("Demo directory", cfg.Paths.DemoDir),
		CheckDefaultTemplate(cfg.Render.DefaultTemplate),
	}
	if db != nil {
		results = append(results, CheckDatabase(ctx, db, cfg.DatabasePath()))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
