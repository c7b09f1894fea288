package preflight

import (
	"context"

	"inpaint/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to the configured backend. The
// in-memory backend touches no files, so only the log directory is checked.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	dataDir := cfg.Repository.DataDir

	switch cfg.Repository.Kind {
	case config.KindFile:
		results = append(results,
			CheckDirectoryAccess("Data directory", dataDir),
			CheckFreeSpace("Free space", dataDir, cfg.MinFreeBytes()),
			CheckLock("Repository lock", dataDir),
			CheckSnapshot("Snapshot", dataDir),
		)
	case config.KindSQLite:
		results = append(results,
			CheckDirectoryAccess("Data directory", dataDir),
			CheckFreeSpace("Free space", dataDir, cfg.MinFreeBytes()),
			CheckDatabase(ctx, "Database", dataDir),
		)
	}

	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}
	return results
}

// FirstFailure returns the first failed result, if any.
func FirstFailure(results []Result) (Result, bool) {
	for _, result := range results {
		if !result.Passed {
			return result, true
		}
	}
	return Result{}, false
}
