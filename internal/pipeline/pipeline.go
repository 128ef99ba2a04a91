package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidscribe/internal/config"
	"vidscribe/internal/engine"
	"vidscribe/internal/fetch"
	"vidscribe/internal/fileutil"
	"vidscribe/internal/history"
	langpkg "vidscribe/internal/language"
	"vidscribe/internal/logging"
	"vidscribe/internal/reference"
	"vidscribe/internal/segment"
	"vidscribe/internal/services"
	"vidscribe/internal/subtitles"
	"vidscribe/internal/transcript"
)

const (
	sourceAudioName = "source.audio"
	chunkDirName    = "chunks"
)

// Options controls a single Transcribe call. Zero values fall back to config.
type Options struct {
	EngineProfile    string
	LanguageHint     string
	MaxChunkDuration float64
	Progress         func(Progress)
}

// Recorder receives run bookkeeping. history.Store satisfies it.
type Recorder interface {
	Begin(ctx context.Context, reference, engineName string) (*history.Run, error)
	Finish(ctx context.Context, run *history.Run) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRetriever replaces the yt-dlp fetcher.
func WithRetriever(retriever fetch.Retriever) Option {
	return func(p *Pipeline) {
		if retriever != nil {
			p.retriever = retriever
		}
	}
}

// WithSplitter replaces the ffmpeg segmenter.
func WithSplitter(splitter segment.Splitter) Option {
	return func(p *Pipeline) {
		if splitter != nil {
			p.splitter = splitter
		}
	}
}

// WithEngine registers or replaces the shared engine for a profile.
func WithEngine(profile string, shared *engine.Shared) Option {
	return func(p *Pipeline) {
		if shared != nil {
			p.engines[strings.ToLower(strings.TrimSpace(profile))] = shared
		}
	}
}

// WithRecorder enables the run ledger.
func WithRecorder(recorder Recorder) Option {
	return func(p *Pipeline) { p.recorder = recorder }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline turns a video reference into a transcript. It is safe for
// concurrent use; engine access is serialized by the shared handles.
type Pipeline struct {
	cfg       *config.Config
	retriever fetch.Retriever
	splitter  segment.Splitter
	engines   map[string]*engine.Shared
	recorder  Recorder
	logger    *slog.Logger
}

// New assembles a pipeline from cfg. Collaborators not supplied through
// options are built from configuration.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		engines: make(map[string]*engine.Shared),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.retriever == nil {
		p.retriever = fetch.New(cfg.Fetch.YTDLPBinary, cfg.FFprobeBinary(), cfg.Fetch.TimeoutSeconds,
			fetch.WithBackoff(time.Duration(cfg.Fetch.RetryBackoffSeconds)*time.Second),
			fetch.WithCookiesFile(cfg.Fetch.CookiesFile),
			fetch.WithLogger(p.logger),
		)
	}
	if p.splitter == nil {
		p.splitter = segment.New(cfg.FFmpegBinary(), cfg.Segment.SampleRate, segment.DetectorConfig{
			ThresholdDB:       cfg.Segment.SilenceThresholdDB,
			MinSilenceSeconds: cfg.Segment.MinSilenceSeconds,
		}, segment.WithLogger(p.logger))
	}
	for profile, shared := range DefaultEngines(cfg, p.logger) {
		if _, ok := p.engines[profile]; !ok {
			p.engines[profile] = shared
		}
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline")
	return p
}

type request struct {
	profile  string
	language string
	maxChunk float64
	ref      reference.VideoReference
	shared   *engine.Shared
}

// Transcribe runs one reference through normalize, fetch, segment, recognize
// and assemble. Fatal failures return *Error; chunk-level recognition failures
// become warnings on the result. Scratch files are removed on every path.
func (p *Pipeline) Transcribe(ctx context.Context, raw string, opts Options) (transcript.Result, error) {
	started := time.Now()
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	report := progressReporter(opts.Progress)

	req, err := p.prepare(raw, opts)
	if err != nil {
		return transcript.Result{}, err
	}
	ctx = services.WithVideoID(ctx, req.ref.CanonicalID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("transcription started",
		logging.String("reference", req.ref.CanonicalURL),
		logging.String("engine_profile", req.profile),
		logging.String("language", langpkg.DisplayName(req.language)),
		logging.Float64("max_chunk_seconds", req.maxChunk),
	)

	run := p.beginRun(ctx, raw, req.profile)
	result, audioSeconds, err := p.execute(ctx, req, report)
	result.ProcessingDuration = time.Since(started)
	p.finishRun(ctx, run, req, result, audioSeconds, err)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("transcription canceled")
		} else {
			logging.ErrorWithContext(logger, "transcription failed", "transcription_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hintFor(err)),
			)
		}
		return transcript.Result{}, err
	}
	for _, warning := range result.Warnings {
		logging.WarnWithContext(logger, "transcript warning", "transcript_warning",
			logging.String("warning", warning),
			logging.String(logging.FieldImpact, "transcript may be incomplete"),
		)
	}
	logger.Info("transcription completed",
		logging.Int("chunks", result.ChunkCount),
		logging.Int("segments", len(result.Segments)),
		logging.Int("warnings", len(result.Warnings)),
		logging.String("detected_language", result.DetectedLanguage),
		logging.Duration("elapsed", result.ProcessingDuration),
	)
	report.report(StageAssemble, 100, "done")
	return result, nil
}

func (p *Pipeline) prepare(raw string, opts Options) (request, error) {
	req := request{
		profile:  strings.ToLower(strings.TrimSpace(opts.EngineProfile)),
		maxChunk: opts.MaxChunkDuration,
	}
	if req.profile == "" {
		req.profile = p.cfg.Engine.Profile
	}
	shared, ok := p.engines[req.profile]
	if !ok {
		return req, stageError(StageConfigure, services.Wrap(services.ErrConfiguration, StageConfigure, "engine",
			fmt.Sprintf("unknown engine profile %q", req.profile), nil))
	}
	req.shared = shared

	hint := opts.LanguageHint
	if strings.TrimSpace(hint) == "" {
		hint = p.cfg.Engine.Language
	}
	language, err := langpkg.NormalizeHint(hint)
	if err != nil {
		return req, stageError(StageConfigure, services.Wrap(services.ErrValidation, StageConfigure, "language", "", err))
	}
	req.language = language

	if req.maxChunk == 0 {
		req.maxChunk = p.cfg.Segment.MaxChunkSeconds
	}
	if err := config.ValidateMaxChunkSeconds(req.maxChunk); err != nil {
		return req, stageError(StageConfigure, services.Wrap(services.ErrValidation, StageConfigure, "max chunk", "", err))
	}

	ref, err := reference.Normalize(raw)
	if err != nil {
		return req, stageError(StageNormalize, err)
	}
	if !p.cfg.Fetch.AllowUnverified {
		if err := reference.Validate(raw); err != nil {
			return req, stageError(StageNormalize, err)
		}
	}
	req.ref = ref
	return req, nil
}

func (p *Pipeline) execute(ctx context.Context, req request, report progressReporter) (transcript.Result, float64, error) {
	logger := logging.WithContext(ctx, p.logger)

	if err := os.MkdirAll(p.cfg.Paths.ScratchDir, 0o755); err != nil {
		return transcript.Result{}, 0, stageError(StageFetch, services.Wrap(services.ErrConfiguration, StageFetch, "scratch", "", err))
	}
	scratch, err := os.MkdirTemp(p.cfg.Paths.ScratchDir, "vidscribe-*")
	if err != nil {
		return transcript.Result{}, 0, stageError(StageFetch, services.Wrap(services.ErrConfiguration, StageFetch, "scratch", "", err))
	}
	defer func() {
		if err := fileutil.RemoveAllReport(scratch); err != nil {
			logging.WarnWithContext(logger, "scratch cleanup failed", "scratch_cleanup_failed",
				logging.String("path", scratch),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the directory manually"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}()

	fetchCtx := services.WithStage(ctx, StageFetch)
	report.report(StageFetch, fetchStart, "retrieving audio")
	asset, err := p.retriever.Fetch(fetchCtx, req.ref, filepath.Join(scratch, sourceAudioName))
	if err != nil {
		return transcript.Result{}, 0, stageError(StageFetch, err)
	}
	logging.WithContext(fetchCtx, p.logger).Info("audio retrieved",
		logging.Float64("duration_seconds", asset.DurationSeconds),
		logging.Int("sample_rate", asset.SampleRate),
		logging.String("format", asset.Format),
	)

	segmentCtx := services.WithStage(ctx, StageSegment)
	report.report(StageSegment, segmentStart, "splitting audio")
	chunkDir := filepath.Join(scratch, chunkDirName)
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return transcript.Result{}, 0, stageError(StageSegment, &segment.SegmentationError{Reason: "create chunk directory", Err: err})
	}
	chunks, err := p.splitter.Split(segmentCtx, asset, segment.Options{
		MaxChunkSeconds: req.maxChunk,
		SilenceSplit:    p.cfg.Segment.SilenceSplit,
		WorkDir:         chunkDir,
		Progress: func(done, total int) {
			report.report(StageSegment, within(segmentStart, recognizeStart, done, total), fmt.Sprintf("extracted chunk %d of %d", done, total))
		},
	})
	if err != nil {
		return transcript.Result{}, 0, stageError(StageSegment, err)
	}
	if len(chunks) == 0 {
		return transcript.Result{}, 0, stageError(StageSegment, &segment.SegmentationError{Reason: "no chunks produced"})
	}

	results, engineName, err := p.recognize(services.WithStage(ctx, StageRecognize), req, chunks, report)
	if err != nil {
		return transcript.Result{}, asset.DurationSeconds, stageError(StageRecognize, err)
	}

	report.report(StageAssemble, assembleStart, "assembling transcript")
	return transcript.Assemble(chunks, results, engineName), asset.DurationSeconds, nil
}

// recognize transcribes chunks sequentially in index order while holding the
// shared engine. Only cancellation and engine construction failures abort.
func (p *Pipeline) recognize(ctx context.Context, req request, chunks []segment.Chunk, report progressReporter) ([]engine.Result, string, error) {
	report.report(StageRecognize, recognizeStart, "waiting for engine")
	eng, release, err := req.shared.Acquire(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		return nil, "", services.Wrap(services.ErrRecognition, StageRecognize, "engine", "initialize "+req.profile+" engine", err)
	}
	defer release()

	recognizer := engine.NewRecognizer(eng, retryPolicy(p.cfg), p.logger)
	results := make([]engine.Result, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		result, err := recognizer.Recognize(ctx, chunk, req.language)
		if err != nil {
			return nil, "", err
		}
		results = append(results, result)
		report.report(StageRecognize, within(recognizeStart, assembleStart, i+1, len(chunks)),
			fmt.Sprintf("transcribed chunk %d of %d", i+1, len(chunks)))
	}
	return results, recognizer.Name(), nil
}

func (p *Pipeline) beginRun(ctx context.Context, raw, profile string) *history.Run {
	if p.recorder == nil {
		return nil
	}
	run, err := p.recorder.Begin(ctx, raw, profile)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "history begin failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run not recorded in history"),
		)
		return nil
	}
	return run
}

func (p *Pipeline) finishRun(ctx context.Context, run *history.Run, req request, result transcript.Result, audioSeconds float64, runErr error) {
	if p.recorder == nil || run == nil {
		return
	}
	run.CanonicalID = req.ref.CanonicalID
	run.Status = history.StatusFromError(runErr)
	run.ChunkCount = result.ChunkCount
	run.WarningCount = len(result.Warnings)
	run.ElapsedSeconds = result.ProcessingDuration.Seconds()
	run.AudioSeconds = audioSeconds
	if runErr == nil {
		run.Engine = result.Engine
		run.DetectedLanguage = result.DetectedLanguage
	} else {
		run.ErrorMessage = runErr.Error()
	}
	// The request context may already be canceled; the ledger write must still land.
	if err := p.recorder.Finish(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "history finish failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run status stale in history"),
		)
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidReference):
		return "pass a YouTube watch, shorts or youtu.be link"
	case errors.Is(err, services.ErrDownload):
		return "check the video is public and yt-dlp is up to date"
	case errors.Is(err, services.ErrSegmentation):
		return "check ffmpeg is installed and the audio is not corrupt"
	case errors.Is(err, services.ErrConfiguration), errors.Is(err, services.ErrValidation):
		return "check vidscribe config (vidscribe config validate)"
	default:
		return "rerun with --log-level debug for details"
	}
}

// RenderSubtitle formats a transcript as an SRT document.
func RenderSubtitle(result transcript.Result) string {
	return subtitles.Render(result.Segments)
}

// RenderText formats a transcript as plain text, one line per segment.
func RenderText(result transcript.Result) string {
	return subtitles.RenderText(result.Segments)
}
