package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir" env:"VIDSCRIBE_SCRATCH_DIR"`
	OutputDir  string `toml:"output_dir" env:"VIDSCRIBE_OUTPUT_DIR"`
	StateDir   string `toml:"state_dir" env:"VIDSCRIBE_STATE_DIR"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind" env:"VIDSCRIBE_API_BIND"`
	APIToken   string `toml:"api_token" env:"VIDSCRIBE_API_TOKEN"`
}

// Fetch contains configuration for audio retrieval through yt-dlp.
type Fetch struct {
	YTDLPBinary         string `toml:"ytdlp_binary" env:"VIDSCRIBE_YTDLP"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	RetryBackoffSeconds int    `toml:"retry_backoff_seconds"`
	CookiesFile         string `toml:"cookies_file"`
	// AllowUnverified accepts references on hosts that are not recognized
	// YouTube hosts and hands them to yt-dlp unchanged.
	AllowUnverified bool `toml:"allow_unverified" env:"VIDSCRIBE_ALLOW_UNVERIFIED"`
}

// Segment contains the audio chunking policy. Silence thresholds are heuristic
// and exposed so they can be tuned per source material.
type Segment struct {
	MaxChunkSeconds    float64 `toml:"max_chunk_seconds"`
	SampleRate         int     `toml:"sample_rate"`
	SilenceSplit       bool    `toml:"silence_split"`
	SilenceThresholdDB float64 `toml:"silence_threshold_db"`
	MinSilenceSeconds  float64 `toml:"min_silence_seconds"`
}

// Engine selects the recognition backend and its per-chunk retry policy.
type Engine struct {
	Profile          string `toml:"profile" env:"VIDSCRIBE_ENGINE"`
	Language         string `toml:"language"`
	RetryLimit       int    `toml:"retry_limit"`
	RetryBaseDelayMS int    `toml:"retry_base_delay_ms"`
}

// WhisperX contains configuration for the local-inference backend.
type WhisperX struct {
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token" env:"HF_TOKEN"`
	CacheDir    string `toml:"cache_dir"`
}

// WhisperAPI contains configuration for the hosted recognition backend.
type WhisperAPI struct {
	APIKey            string `toml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL           string `toml:"base_url" env:"OPENAI_BASE_URL"`
	Model             string `toml:"model"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// History contains configuration for the run ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"VIDSCRIBE_LOG_FORMAT"`
	Level  string `toml:"level" env:"VIDSCRIBE_LOG_LEVEL"`
}

// Config encapsulates all configuration values for vidscribe.
//
// Configuration sections by subsystem:
//   - Paths: scratch, output and state directories plus the API bind address
//   - Fetch: yt-dlp retrieval settings
//   - Segment: chunk length and silence detection thresholds
//   - Engine: backend profile, language hint and retry policy
//   - WhisperX: local inference backend
//   - WhisperAPI: hosted recognition backend
//   - History: run ledger toggle
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Fetch      Fetch      `toml:"fetch"`
	Segment    Segment    `toml:"segment"`
	Engine     Engine     `toml:"engine"`
	WhisperX   WhisperX   `toml:"whisperx"`
	WhisperAPI WhisperAPI `toml:"whisperapi"`
	History    History    `toml:"history"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// variables named in the struct tags override file values. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories every command relies on.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for resampling and chunk extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for asset inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// HistoryPath returns the location of the run ledger database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultScratchDir() string {
	return filepath.Join(os.TempDir(), "vidscribe")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
