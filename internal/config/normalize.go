package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeFetch(); err != nil {
		return err
	}
	c.normalizeSegment()
	c.normalizeEngine()
	if err := c.normalizeWhisperX(); err != nil {
		return err
	}
	c.normalizeWhisperAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir()
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeFetch() error {
	c.Fetch.YTDLPBinary = strings.TrimSpace(c.Fetch.YTDLPBinary)
	if c.Fetch.YTDLPBinary == "" {
		c.Fetch.YTDLPBinary = defaultYTDLPBinary
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeout
	}
	if c.Fetch.RetryBackoffSeconds < 0 {
		c.Fetch.RetryBackoffSeconds = 0
	}
	if strings.TrimSpace(c.Fetch.CookiesFile) != "" {
		var err error
		if c.Fetch.CookiesFile, err = expandPath(strings.TrimSpace(c.Fetch.CookiesFile)); err != nil {
			return fmt.Errorf("fetch.cookies_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeSegment() {
	if c.Segment.MaxChunkSeconds <= 0 {
		c.Segment.MaxChunkSeconds = defaultMaxChunkSeconds
	}
	if c.Segment.SampleRate <= 0 {
		c.Segment.SampleRate = defaultSampleRate
	}
	if c.Segment.MinSilenceSeconds <= 0 {
		c.Segment.MinSilenceSeconds = defaultMinSilenceSeconds
	}
	if c.Segment.SilenceThresholdDB == 0 {
		c.Segment.SilenceThresholdDB = defaultSilenceThresholdDB
	}
}

func (c *Config) normalizeEngine() {
	c.Engine.Profile = strings.ToLower(strings.TrimSpace(c.Engine.Profile))
	if c.Engine.Profile == "" {
		c.Engine.Profile = defaultEngineProfile
	}
	c.Engine.Language = strings.ToLower(strings.TrimSpace(c.Engine.Language))
	if c.Engine.Language == "" {
		c.Engine.Language = defaultEngineLanguage
	}
	if c.Engine.RetryLimit <= 0 {
		c.Engine.RetryLimit = defaultRetryLimit
	}
	if c.Engine.RetryBaseDelayMS < 0 {
		c.Engine.RetryBaseDelayMS = 0
	}
}

func (c *Config) normalizeWhisperX() error {
	c.WhisperX.Model = strings.TrimSpace(c.WhisperX.Model)
	if c.WhisperX.Model == "" {
		c.WhisperX.Model = defaultWhisperXModel
	}
	c.WhisperX.VADMethod = strings.ToLower(strings.TrimSpace(c.WhisperX.VADMethod))
	if c.WhisperX.VADMethod == "" {
		c.WhisperX.VADMethod = defaultWhisperXVADMethod
	}
	c.WhisperX.HFToken = strings.TrimSpace(c.WhisperX.HFToken)
	if strings.TrimSpace(c.WhisperX.CacheDir) == "" {
		c.WhisperX.CacheDir = defaultWhisperXCacheDir
	}
	var err error
	if c.WhisperX.CacheDir, err = expandPath(c.WhisperX.CacheDir); err != nil {
		return fmt.Errorf("whisperx.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWhisperAPI() {
	c.WhisperAPI.APIKey = strings.TrimSpace(c.WhisperAPI.APIKey)
	c.WhisperAPI.BaseURL = strings.TrimRight(strings.TrimSpace(c.WhisperAPI.BaseURL), "/")
	if c.WhisperAPI.BaseURL == "" {
		c.WhisperAPI.BaseURL = defaultWhisperAPIBaseURL
	}
	c.WhisperAPI.Model = strings.TrimSpace(c.WhisperAPI.Model)
	if c.WhisperAPI.Model == "" {
		c.WhisperAPI.Model = defaultWhisperAPIModel
	}
	if c.WhisperAPI.TimeoutSeconds <= 0 {
		c.WhisperAPI.TimeoutSeconds = defaultWhisperAPITimeout
	}
	if c.WhisperAPI.RequestsPerMinute < 0 {
		c.WhisperAPI.RequestsPerMinute = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
