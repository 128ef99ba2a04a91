package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSegment(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateWhisperAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateEngineCredentials reports whether the selected engine profile has
// the credentials it needs. Commands that never recognize audio skip it.
func (c *Config) ValidateEngineCredentials(profile string) error {
	if strings.TrimSpace(profile) == "" {
		profile = c.Engine.Profile
	}
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case ProfileRemote:
		if c.WhisperAPI.APIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("whisperapi.api_key is required for the remote engine. Set OPENAI_API_KEY or edit %s (create with 'vidscribe config init')", defaultPath)
		}
	case ProfileLocal:
	default:
		return fmt.Errorf("unknown engine profile %q (expected %q or %q)", profile, ProfileLocal, ProfileRemote)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.ScratchDir == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

// ValidateMaxChunkSeconds checks a chunk length against the supported range.
// Per-request overrides go through the same bounds as the config value.
func ValidateMaxChunkSeconds(value float64) error {
	if value < minAllowedMaxChunkSeconds || value > maxAllowedMaxChunkSeconds {
		return fmt.Errorf("max chunk duration must be between %d and %d seconds", minAllowedMaxChunkSeconds, maxAllowedMaxChunkSeconds)
	}
	return nil
}

func (c *Config) validateSegment() error {
	if err := ValidateMaxChunkSeconds(c.Segment.MaxChunkSeconds); err != nil {
		return fmt.Errorf("segment.max_chunk_seconds: %w", err)
	}
	if c.Segment.SampleRate < minAllowedSampleRate {
		return fmt.Errorf("segment.sample_rate must be at least %d", minAllowedSampleRate)
	}
	if c.Segment.SilenceThresholdDB < minAllowedSilenceThreshold || c.Segment.SilenceThresholdDB >= maxAllowedSilenceThreshold {
		return fmt.Errorf("segment.silence_threshold_db must be in [%d, %d)", minAllowedSilenceThreshold, maxAllowedSilenceThreshold)
	}
	if c.Segment.MinSilenceSeconds > maxAllowedMinSilenceSeconds {
		return fmt.Errorf("segment.min_silence_seconds must be at most %d", maxAllowedMinSilenceSeconds)
	}
	return nil
}

func (c *Config) validateEngine() error {
	switch c.Engine.Profile {
	case ProfileLocal, ProfileRemote:
	default:
		return fmt.Errorf("engine.profile must be %q or %q, got %q", ProfileLocal, ProfileRemote, c.Engine.Profile)
	}
	if c.Engine.RetryLimit < 1 || c.Engine.RetryLimit > maxAllowedRetryLimit {
		return fmt.Errorf("engine.retry_limit must be between 1 and %d", maxAllowedRetryLimit)
	}
	switch c.WhisperX.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("whisperx.vad_method must be silero or pyannote, got %q", c.WhisperX.VADMethod)
	}
	return nil
}

func (c *Config) validateWhisperAPI() error {
	if !strings.HasPrefix(c.WhisperAPI.BaseURL, "http://") && !strings.HasPrefix(c.WhisperAPI.BaseURL, "https://") {
		return fmt.Errorf("whisperapi.base_url must be an http(s) URL, got %q", c.WhisperAPI.BaseURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
