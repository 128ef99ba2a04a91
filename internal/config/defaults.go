package config

const (
	defaultConfigPath           = "~/.config/vidscribe/config.toml"
	defaultOutputDir            = "."
	defaultStateDir             = "~/.local/share/vidscribe"
	defaultLogDir               = "~/.local/share/vidscribe/logs"
	defaultWhisperXCacheDir     = "~/.cache/vidscribe/whisperx"
	defaultAPIBind              = "127.0.0.1:7490"
	defaultYTDLPBinary          = "yt-dlp"
	defaultFetchTimeout         = 900
	defaultFetchRetryBackoff    = 2
	defaultMaxChunkSeconds      = 30
	defaultSampleRate           = 16000
	defaultSilenceThresholdDB   = -40
	defaultMinSilenceSeconds    = 0.7
	defaultEngineProfile        = ProfileRemote
	defaultEngineLanguage       = "auto"
	defaultRetryLimit           = 3
	defaultRetryBaseDelayMS     = 1000
	defaultWhisperXModel        = "large-v3"
	defaultWhisperXVADMethod    = "silero"
	defaultWhisperAPIBaseURL    = "https://api.openai.com/v1"
	defaultWhisperAPIModel      = "whisper-1"
	defaultWhisperAPITimeout    = 300
	defaultRequestsPerMinute    = 50
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	minAllowedMaxChunkSeconds   = 5
	maxAllowedMaxChunkSeconds   = 600
	maxAllowedSilenceThreshold  = 0
	minAllowedSilenceThreshold  = -100
	minAllowedSampleRate        = 8000
	maxAllowedRetryLimit        = 10
	maxAllowedMinSilenceSeconds = 10
)

// Engine profiles accepted by [engine].profile.
const (
	ProfileLocal  = "local"
	ProfileRemote = "remote"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir(),
			OutputDir:  defaultOutputDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Fetch: Fetch{
			YTDLPBinary:         defaultYTDLPBinary,
			TimeoutSeconds:      defaultFetchTimeout,
			RetryBackoffSeconds: defaultFetchRetryBackoff,
		},
		Segment: Segment{
			MaxChunkSeconds:    defaultMaxChunkSeconds,
			SampleRate:         defaultSampleRate,
			SilenceSplit:       true,
			SilenceThresholdDB: defaultSilenceThresholdDB,
			MinSilenceSeconds:  defaultMinSilenceSeconds,
		},
		Engine: Engine{
			Profile:          defaultEngineProfile,
			Language:         defaultEngineLanguage,
			RetryLimit:       defaultRetryLimit,
			RetryBaseDelayMS: defaultRetryBaseDelayMS,
		},
		WhisperX: WhisperX{
			Model:     defaultWhisperXModel,
			VADMethod: defaultWhisperXVADMethod,
			CacheDir:  defaultWhisperXCacheDir,
		},
		WhisperAPI: WhisperAPI{
			BaseURL:           defaultWhisperAPIBaseURL,
			Model:             defaultWhisperAPIModel,
			TimeoutSeconds:    defaultWhisperAPITimeout,
			RequestsPerMinute: defaultRequestsPerMinute,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
