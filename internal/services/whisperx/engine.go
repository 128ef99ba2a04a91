package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"vidscribe/internal/engine"
	langpkg "vidscribe/internal/language"
	"vidscribe/internal/logging"
	"vidscribe/internal/segment"
	"vidscribe/internal/services"
)

// Option configures the WhisperX engine.
type Option func(*Engine)

// WithCommandRunner injects a custom command runner (primarily for tests).
func WithCommandRunner(runner services.CommandRunner) Option {
	return func(e *Engine) {
		if runner != nil {
			e.run = runner
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine runs WhisperX locally through uvx, one chunk per invocation.
type Engine struct {
	cfg       Config
	binary    string
	run       services.CommandRunner
	logger    *slog.Logger
	removeAll func(string) error
}

// New creates a WhisperX engine. binary overrides the uvx launcher path.
func New(cfg Config, binary string, opts ...Option) *Engine {
	if strings.TrimSpace(binary) == "" {
		binary = UVXCommand
	}
	e := &Engine{
		cfg:       cfg,
		binary:    binary,
		run:       services.RunCommandEnv(runtimeEnv(cfg)...),
		logger:    logging.NewNop(),
		removeAll: os.RemoveAll,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "whisperx")
	return e
}

// runtimeEnv pins model caches under CacheDir. Torch 2.6 changed torch.load
// to weights_only=true, which breaks the pyannote checkpoints WhisperX loads.
func runtimeEnv(cfg Config) []string {
	var env []string
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		env = append(env, "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if dir := strings.TrimSpace(cfg.CacheDir); dir != "" {
		env = append(env,
			"HF_HOME="+filepath.Join(dir, "huggingface"),
			"UV_CACHE_DIR="+filepath.Join(dir, "uv"),
		)
	}
	return env
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return EngineName }

// Model returns the configured model name for logging.
func (e *Engine) Model() string {
	if e.cfg.Model != "" {
		return e.cfg.Model
	}
	return DefaultModel
}

// Recognize transcribes a chunk. WhisperX writes <chunk>.json into a per-chunk
// output directory next to the chunk file, which is removed afterwards.
func (e *Engine) Recognize(ctx context.Context, chunk segment.Chunk, languageHint string) (engine.Result, error) {
	if chunk.Path == "" {
		return engine.Result{}, engine.Permanent(EngineName, errors.New("chunk path required"))
	}
	outputDir := filepath.Join(filepath.Dir(chunk.Path), fmt.Sprintf("whisperx_%04d", chunk.Index))
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return engine.Result{}, engine.Permanent(EngineName, fmt.Errorf("ensure output dir: %w", err))
	}
	defer func() {
		if err := e.removeAll(outputDir); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, e.logger), "remove whisperx output failed", "whisperx_cleanup_failed",
				logging.String("path", outputDir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "scratch files left until request cleanup"),
			)
		}
	}()

	args := e.buildArgs(chunk.Path, outputDir, languageHint)
	logging.WithContext(ctx, e.logger).Debug("whisperx invocation",
		logging.String("model", e.Model()),
		logging.String("chunk", chunk.Path),
	)
	if _, err := e.run(ctx, e.binary, args...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return engine.Result{}, ctxErr
		}
		return engine.Result{}, classify(err)
	}

	baseName := strings.TrimSuffix(filepath.Base(chunk.Path), filepath.Ext(chunk.Path))
	payload, err := LoadPayload(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return engine.Result{}, engine.Permanent(EngineName, err)
	}
	return payload.result(chunk.Index), nil
}

func classify(err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return engine.Permanent(EngineName, fmt.Errorf("%s not available: %w", UVXCommand, err))
	}
	stderr := strings.ToLower(services.CommandOutput(err))
	for _, marker := range []string{"invalid model", "no such file", "unrecognized arguments", "invalid choice"} {
		if strings.Contains(stderr, marker) {
			return engine.Permanent(EngineName, err)
		}
	}
	return engine.Transient(EngineName, err)
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (e *Engine) buildArgs(source, outputDir, language string) []string {
	args := make([]string, 0, 40)

	if e.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", e.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
		"--no_align",
	)
	if dir := strings.TrimSpace(e.cfg.CacheDir); dir != "" {
		args = append(args, "--model_dir", filepath.Join(dir, "models"))
	}

	vadMethod := e.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && e.cfg.HFToken != "" {
		args = append(args, "--hf_token", e.cfg.HFToken)
	}

	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "--language", lang)
	}

	if e.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Payload is the JSON document WhisperX writes per input file.
type Payload struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// LoadPayload reads a WhisperX JSON file.
func LoadPayload(jsonPath string) (Payload, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Payload{}, fmt.Errorf("read whisperx json: %w", err)
	}
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, nil
}

func (p Payload) result(index int) engine.Result {
	result := engine.Result{ChunkIndex: index, DetectedLanguage: p.Language}
	var parts []string
	for _, seg := range p.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		result.Segments = append(result.Segments, engine.LocalSegment{
			StartSeconds: seg.Start,
			EndSeconds:   seg.End,
			Text:         text,
		})
	}
	result.Text = strings.Join(parts, " ")
	return result
}
