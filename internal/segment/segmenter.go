package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidscribe/internal/fetch"
	"vidscribe/internal/logging"
	"vidscribe/internal/services"
)

const (
	DefaultSampleRate      = 16000
	DefaultMaxChunkSeconds = 30.0
	resampledName          = "resampled.pcm"
)

// Chunk is one bounded slice of the asset, extracted to a WAV file.
type Chunk struct {
	Index           int
	OffsetSeconds   float64
	DurationSeconds float64
	Path            string
}

// End returns the end of the chunk in asset time.
func (c Chunk) End() float64 {
	return c.OffsetSeconds + c.DurationSeconds
}

// Options controls a single Split call.
type Options struct {
	MaxChunkSeconds float64
	SilenceSplit    bool
	// WorkDir receives the resampled PCM and chunk files. The caller owns it.
	WorkDir string
	// Progress, when set, receives the fraction of chunks extracted.
	Progress func(done, total int)
}

// Splitter is the behaviour the pipeline needs from the segmenter.
type Splitter interface {
	Split(ctx context.Context, asset fetch.AudioAsset, opts Options) ([]Chunk, error)
}

// Option configures the segmenter.
type Option func(*Segmenter)

// WithCommandRunner injects a custom command runner (primarily for tests).
func WithCommandRunner(runner services.CommandRunner) Option {
	return func(s *Segmenter) {
		if runner != nil {
			s.run = runner
		}
	}
}

// WithLogger sets the logger used for segmentation decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Segmenter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Segmenter resamples audio with ffmpeg and splits it into chunks.
type Segmenter struct {
	ffmpegBinary string
	sampleRate   int
	detector     DetectorConfig
	run          services.CommandRunner
	logger       *slog.Logger
}

// New constructs a Segmenter.
func New(ffmpegBinary string, sampleRate int, detector DetectorConfig, opts ...Option) *Segmenter {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	s := &Segmenter{
		ffmpegBinary: ffmpegBinary,
		sampleRate:   sampleRate,
		detector:     detector.withDefaults(),
		run:          services.RunCommand,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "segment")
	return s
}

// Split resamples asset to mono PCM, plans chunk spans and extracts each span
// to a WAV file in opts.WorkDir. Chunks are returned in index order.
func (s *Segmenter) Split(ctx context.Context, asset fetch.AudioAsset, opts Options) ([]Chunk, error) {
	if strings.TrimSpace(asset.Path) == "" {
		return nil, &SegmentationError{Reason: "asset path is empty"}
	}
	if strings.TrimSpace(opts.WorkDir) == "" {
		return nil, errors.New("segment: work dir required")
	}
	maxChunk := opts.MaxChunkSeconds
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunkSeconds
	}
	logger := logging.WithContext(ctx, s.logger)

	pcmPath := filepath.Join(opts.WorkDir, resampledName)
	if err := s.resample(ctx, asset.Path, pcmPath); err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(pcmPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "remove resampled audio failed", "segment_cleanup_failed",
				logging.String("path", pcmPath), logging.Error(err),
				logging.String(logging.FieldImpact, "scratch file left until request cleanup"))
		}
	}()

	analysis, err := s.analyze(pcmPath)
	if err != nil {
		return nil, err
	}
	if analysis.DurationSeconds <= durationEpsilon {
		return nil, &SegmentationError{Reason: "audio contains no samples"}
	}

	var boundaries []float64
	if opts.SilenceSplit && analysis.DurationSeconds > maxChunk {
		boundaries = analysis.Boundaries()
	}
	spans := Plan(analysis.DurationSeconds, maxChunk, boundaries)
	strategy := "single"
	switch {
	case len(spans) > 1 && len(boundaries) >= 2:
		strategy = "silence"
	case len(spans) > 1:
		strategy = "fixed"
	}
	logger.Info("audio segmented",
		logging.Float64("duration_seconds", analysis.DurationSeconds),
		logging.Int("chunks", len(spans)),
		logging.Int("silences", len(analysis.Silences)),
		logging.String("strategy", strategy),
	)

	chunks := make([]Chunk, 0, len(spans))
	for i, span := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dest := filepath.Join(opts.WorkDir, fmt.Sprintf("chunk_%04d.wav", i))
		if err := s.extract(ctx, pcmPath, span, dest); err != nil {
			return nil, err
		}
		chunks = append(chunks, Chunk{
			Index:           i,
			OffsetSeconds:   span.OffsetSeconds,
			DurationSeconds: span.DurationSeconds,
			Path:            dest,
		})
		if opts.Progress != nil {
			opts.Progress(i+1, len(spans))
		}
	}
	return chunks, nil
}

func (s *Segmenter) resample(ctx context.Context, source, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", strconv.Itoa(s.sampleRate),
		"-f", "s16le",
		dest,
	}
	if _, err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &SegmentationError{Reason: "resample audio", Err: err}
	}
	return nil
}

func (s *Segmenter) analyze(pcmPath string) (Analysis, error) {
	file, err := os.Open(pcmPath)
	if err != nil {
		return Analysis{}, &SegmentationError{Reason: "open resampled audio", Err: err}
	}
	defer file.Close()
	analysis, err := Analyze(file, s.sampleRate, s.detector)
	if err != nil {
		return Analysis{}, &SegmentationError{Reason: "read resampled audio", Err: err}
	}
	return analysis, nil
}

func (s *Segmenter) extract(ctx context.Context, pcmPath string, span Span, dest string) error {
	rate := strconv.Itoa(s.sampleRate)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", rate,
		"-ac", "1",
		"-ss", formatSeconds(span.OffsetSeconds),
		"-t", formatSeconds(span.DurationSeconds),
		"-i", pcmPath,
		"-c:a", "pcm_s16le",
		dest,
	}
	if _, err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &SegmentationError{Reason: fmt.Sprintf("extract chunk at %.3fs", span.OffsetSeconds), Err: err}
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
