package preflight

import (
	"context"

	"splicer/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the configuration checks and, when projects are given,
// the project checks for each of them.
func RunAll(ctx context.Context, cfg *config.Config, projects ...string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckProfile(cfg))
	results = append(results, CheckDirectoryAccess("Project directory", cfg.Paths.ProjectDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	// The snapshot store only matters when autosave writes to it.
	if cfg.Autosave.Enabled {
		results = append(results, CheckSnapshotStore(ctx, cfg.SnapshotDBPath()))
	}

	for _, project := range projects {
		results = append(results, CheckProjectFile(project))
		results = append(results, CheckProjectLock(project))
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
