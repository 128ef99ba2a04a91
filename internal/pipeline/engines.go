package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"vidscribe/internal/config"
	"vidscribe/internal/engine"
	"vidscribe/internal/services/whisperapi"
	"vidscribe/internal/services/whisperx"
)

// DefaultEngines builds the shared handles for the configured backends. The
// engines themselves are constructed on first acquisition.
func DefaultEngines(cfg *config.Config, logger *slog.Logger) map[string]*engine.Shared {
	local := engine.NewShared(func(context.Context) (engine.Engine, error) {
		return whisperx.New(whisperx.Config{
			Model:       cfg.WhisperX.Model,
			CUDAEnabled: cfg.WhisperX.CUDAEnabled,
			VADMethod:   cfg.WhisperX.VADMethod,
			HFToken:     cfg.WhisperX.HFToken,
			CacheDir:    cfg.WhisperX.CacheDir,
		}, "", whisperx.WithLogger(logger)), nil
	}, engine.WithFileLock(filepath.Join(cfg.WhisperX.CacheDir, "engine.lock")), engine.WithSharedLogger(logger))

	remote := engine.NewShared(func(context.Context) (engine.Engine, error) {
		return whisperapi.NewClient(whisperapi.Config{
			APIKey:            cfg.WhisperAPI.APIKey,
			BaseURL:           cfg.WhisperAPI.BaseURL,
			Model:             cfg.WhisperAPI.Model,
			TimeoutSeconds:    cfg.WhisperAPI.TimeoutSeconds,
			RequestsPerMinute: cfg.WhisperAPI.RequestsPerMinute,
		}, whisperapi.WithLogger(logger)), nil
	})

	return map[string]*engine.Shared{
		config.ProfileLocal:  local,
		config.ProfileRemote: remote,
	}
}

func retryPolicy(cfg *config.Config) engine.RetryPolicy {
	return engine.RetryPolicy{
		Limit:     cfg.Engine.RetryLimit,
		BaseDelay: time.Duration(cfg.Engine.RetryBaseDelayMS) * time.Millisecond,
	}
}
