package preflight

import (
	"context"

	"github.com/NovoNihilo/clipforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check that applies to the given config:
// directory access for the pipeline's working trees, free disk space,
// platform credentials, and LLM reachability.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Outputs directory", cfg.Paths.OutputsDir),
		CheckDirectoryAccess("Archives directory", cfg.Paths.ArchivesDir),
		CheckDirectoryAccess("Assets directory", cfg.Paths.AssetsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDiskSpace("Free disk space", cfg.Paths.DataDir, MinFreeBytes),
		CheckTwitchCredentials(cfg),
		CheckLLM(ctx, "Decision LLM", cfg.GetLLM()),
	}
	return results
}
