package preflight

import (
	"context"

	"vidscribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects which optional checks RunAll performs.
type Options struct {
	// Profile overrides the configured engine profile.
	Profile string
	// Network enables checks that contact the remote engine.
	Network bool
}

// RunAll executes the preflight checks that apply to cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}
	profile := opts.Profile
	if profile == "" {
		profile = cfg.Engine.Profile
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir))
	results = append(results, CheckFreeSpace("Scratch free space", cfg.Paths.ScratchDir, minScratchBytes))

	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}

	results = append(results, CheckCredentials(cfg, profile))
	switch profile {
	case config.ProfileLocal:
		results = append(results, CheckWhisperXCache(cfg))
	case config.ProfileRemote:
		if opts.Network && cfg.WhisperAPI.APIKey != "" {
			results = append(results, CheckRemoteEngine(ctx, cfg))
		}
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
