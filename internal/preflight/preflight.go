package preflight

import (
	"strings"

	"splice/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks never fail startup.
	Optional bool
}

// RunAll executes every preflight check for cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Projects directory", cfg.ProjectsDir()),
		CheckDirectoryAccess("Render intake", cfg.IntakeDir()),
		CheckDirectoryAccess("Render output", cfg.OutputDir()),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckTemplate(cfg),
	}
	if strings.TrimSpace(cfg.Paths.AssetsDir) != "" {
		assets := CheckDirectoryAccess("Assets directory", cfg.Paths.AssetsDir)
		assets.Optional = true
		results = append(results, assets)
	}
	results = append(results, CheckTranslate(cfg))
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
