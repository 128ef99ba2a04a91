package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"vidscribe/internal/config"
	"vidscribe/internal/engine"
	"vidscribe/internal/fetch"
	"vidscribe/internal/history"
	"vidscribe/internal/pipeline"
	"vidscribe/internal/reference"
	"vidscribe/internal/segment"
	"vidscribe/internal/services"
	"vidscribe/internal/subtitles"
	"vidscribe/internal/testsupport"
)

type stubRetriever struct {
	duration float64
	err      error
	calls    int
	lastRef  reference.VideoReference
}

func (s *stubRetriever) Fetch(ctx context.Context, ref reference.VideoReference, dest string) (fetch.AudioAsset, error) {
	s.calls++
	s.lastRef = ref
	if s.err != nil {
		return fetch.AudioAsset{}, s.err
	}
	if err := os.WriteFile(dest, []byte("compressed-audio"), 0o644); err != nil {
		return fetch.AudioAsset{}, err
	}
	return fetch.AudioAsset{Path: dest, SampleRate: 48000, Channels: 2, DurationSeconds: s.duration, Format: "webm"}, nil
}

type stubEngine struct {
	mu       sync.Mutex
	texts    map[int]string
	segments map[int][]engine.LocalSegment
	failing  map[int]error
	onCall   func(chunk segment.Chunk)
	hints    []string
	recorded []segment.Chunk
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Recognize(ctx context.Context, chunk segment.Chunk, hint string) (engine.Result, error) {
	s.mu.Lock()
	s.recorded = append(s.recorded, chunk)
	s.hints = append(s.hints, hint)
	s.mu.Unlock()
	if s.onCall != nil {
		s.onCall(chunk)
	}
	if err := ctx.Err(); err != nil {
		return engine.Result{}, err
	}
	if err, ok := s.failing[chunk.Index]; ok {
		return engine.Result{}, err
	}
	if _, err := os.Stat(chunk.Path); err != nil {
		return engine.Result{}, engine.Permanent("stub", err)
	}
	text, ok := s.texts[chunk.Index]
	if !ok {
		text = fmt.Sprintf("chunk %d text", chunk.Index)
	}
	return engine.Result{Text: text, DetectedLanguage: "en", Segments: s.segments[chunk.Index]}, nil
}

type harness struct {
	cfg       *config.Config
	retriever *stubRetriever
	engine    *stubEngine
	pipeline  *pipeline.Pipeline
	store     *history.Store
}

func newHarness(t *testing.T, speechSeconds float64) *harness {
	t.Helper()
	return newHarnessWithAudio(t, testsupport.Span{Seconds: speechSeconds, Speech: true})
}

func newHarnessWithAudio(t *testing.T, spans ...testsupport.Span) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	stub := &testsupport.FFmpegStub{
		PCM:        testsupport.PCM(segment.DefaultSampleRate, spans...),
		SampleRate: segment.DefaultSampleRate,
	}
	total := 0.0
	for _, span := range spans {
		total += span.Seconds
	}
	h := &harness{
		cfg:       cfg,
		retriever: &stubRetriever{duration: total},
		engine:    &stubEngine{},
		store:     testsupport.MustOpenStore(t, cfg),
	}
	splitter := segment.New("ffmpeg", segment.DefaultSampleRate, segment.DetectorConfig{}, segment.WithCommandRunner(stub.Run))
	h.pipeline = pipeline.New(cfg,
		pipeline.WithRetriever(h.retriever),
		pipeline.WithSplitter(splitter),
		pipeline.WithEngine(config.ProfileRemote, engine.Static(h.engine)),
		pipeline.WithRecorder(h.store),
	)
	return h
}

func (h *harness) assertScratchEmpty(t *testing.T) {
	t.Helper()
	if files := testsupport.ListFiles(t, h.cfg.Paths.ScratchDir); len(files) != 0 {
		t.Fatalf("scratch not cleaned: %v", files)
	}
	entries, err := os.ReadDir(h.cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch directories left behind: %d", len(entries))
	}
}

// twoUtterances is 40 s of audio: speech [0,18], silence [18,21], speech [21,40].
func twoUtterances() []testsupport.Span {
	return []testsupport.Span{
		{Seconds: 18, Speech: true},
		{Seconds: 3, Speech: false},
		{Seconds: 19, Speech: true},
	}
}

func TestTranscribeEndToEnd(t *testing.T) {
	h := newHarnessWithAudio(t, twoUtterances()...)
	h.engine.texts = map[int]string{0: "hello there general kenobi"}
	h.engine.segments = map[int][]engine.LocalSegment{0: {
		{StartSeconds: 0, EndSeconds: 18, Text: "hello there"},
		{StartSeconds: 21, EndSeconds: 40, Text: "general kenobi"},
	}}

	var events []pipeline.Progress
	result, err := h.pipeline.Transcribe(context.Background(), "https://youtu.be/ABC123", pipeline.Options{
		MaxChunkDuration: 45,
		Progress:         func(p pipeline.Progress) { events = append(events, p) },
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if h.retriever.lastRef.CanonicalID != "ABC123" {
		t.Fatalf("unexpected canonical id %q", h.retriever.lastRef.CanonicalID)
	}
	if result.ChunkCount != 1 || len(h.engine.recorded) != 1 {
		t.Fatalf("expected one chunk, got %d (engine saw %d)", result.ChunkCount, len(h.engine.recorded))
	}
	if chunk := h.engine.recorded[0]; chunk.OffsetSeconds != 0 || chunk.DurationSeconds < 39.9 || chunk.DurationSeconds > 40.1 {
		t.Fatalf("expected chunk spanning [0,40], got %+v", chunk)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("expected two segments, got %+v", result.Segments)
	}
	first, second := result.Segments[0], result.Segments[1]
	if first.StartSeconds != 0 || first.EndSeconds != 18 || first.Text != "hello there" {
		t.Fatalf("unexpected first segment %+v", first)
	}
	if second.StartSeconds != 21 || second.EndSeconds < 39.9 || second.EndSeconds > 40 || second.Text != "general kenobi" {
		t.Fatalf("unexpected second segment %+v", second)
	}
	if result.FullText != "hello there general kenobi" || result.Engine != "stub" || result.DetectedLanguage != "en" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", result.Warnings)
	}
	if result.ProcessingDuration <= 0 {
		t.Fatal("expected processing duration")
	}

	cues, err := subtitles.Parse(pipeline.RenderSubtitle(result))
	if err != nil || len(cues) != 2 {
		t.Fatalf("expected two cues, got %+v %v", cues, err)
	}
	if cues[0].Index != 1 || cues[1].Index != 2 || cues[0].Text != "hello there" || cues[1].Text != "general kenobi" {
		t.Fatalf("unexpected cues %+v", cues)
	}

	if len(events) == 0 || events[len(events)-1].Percent != 100 {
		t.Fatalf("expected final progress event at 100%%, got %+v", events)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Percent < events[i-1].Percent {
			t.Fatalf("progress went backwards: %+v", events)
		}
	}
	h.assertScratchEmpty(t)

	runs, err := h.store.List(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one history run, got %d %v", len(runs), err)
	}
	if runs[0].Status != history.StatusCompleted || runs[0].CanonicalID != "ABC123" || runs[0].ChunkCount != 1 {
		t.Fatalf("unexpected history run %+v", runs[0])
	}
}

func TestTranscribeSingleSilenceUsesFixedWindows(t *testing.T) {
	h := newHarnessWithAudio(t, twoUtterances()...)

	result, err := h.pipeline.Transcribe(context.Background(), "https://youtu.be/ABC123", pipeline.Options{MaxChunkDuration: 30})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.ChunkCount != 2 || len(h.engine.recorded) != 2 {
		t.Fatalf("expected two chunks, got %d", result.ChunkCount)
	}
	if cut := h.engine.recorded[1].OffsetSeconds; cut != 30 {
		t.Fatalf("one silence is not enough to cut on; expected fixed cut at 30, got %.3f", cut)
	}
	if result.FullText != "chunk 0 text chunk 1 text" {
		t.Fatalf("unexpected full text %q", result.FullText)
	}
}

func TestTranscribeMultipleChunksInOrder(t *testing.T) {
	h := newHarness(t, 25)
	h.engine.texts = map[int]string{1: ""}

	result, err := h.pipeline.Transcribe(context.Background(), "https://www.youtube.com/watch?v=ABC123", pipeline.Options{
		MaxChunkDuration: 10,
		LanguageHint:     "English",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.ChunkCount != 3 {
		t.Fatalf("expected 3 chunks, got %d", result.ChunkCount)
	}
	if result.FullText != "chunk 0 text chunk 2 text" {
		t.Fatalf("unexpected full text %q", result.FullText)
	}
	if len(result.Segments) != 2 || result.Segments[1].StartSeconds != 20 {
		t.Fatalf("unexpected segments %+v", result.Segments)
	}
	for i, chunk := range h.engine.recorded {
		if chunk.Index != i {
			t.Fatalf("chunks recognized out of order: %+v", h.engine.recorded)
		}
	}
	for _, hint := range h.engine.hints {
		if hint != "en" {
			t.Fatalf("expected normalized language hint, got %q", hint)
		}
	}
	h.assertScratchEmpty(t)
}

func TestTranscribeDegradesFailedChunk(t *testing.T) {
	h := newHarness(t, 25)
	h.engine.failing = map[int]error{1: engine.Permanent("stub", errors.New("unauthorized"))}

	result, err := h.pipeline.Transcribe(context.Background(), "https://youtu.be/ABC123", pipeline.Options{MaxChunkDuration: 10})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "chunk 1") {
		t.Fatalf("expected warning for chunk 1, got %v", result.Warnings)
	}
	if result.FullText != "chunk 0 text chunk 2 text" {
		t.Fatalf("unexpected text %q", result.FullText)
	}
}

func TestTranscribeRejectsInvalidReference(t *testing.T) {
	h := newHarness(t, 10)
	_, err := h.pipeline.Transcribe(context.Background(), "https://youtube.com/watch?v=", pipeline.Options{})

	var pipeErr *pipeline.Error
	if !errors.As(err, &pipeErr) || pipeErr.Stage != pipeline.StageNormalize {
		t.Fatalf("expected normalize stage error, got %v", err)
	}
	if !errors.Is(err, services.ErrInvalidReference) {
		t.Fatalf("expected invalid reference marker, got %v", err)
	}
	if h.retriever.calls != 0 {
		t.Fatal("retriever should not run for an invalid reference")
	}
}

func TestTranscribeUnverifiedHost(t *testing.T) {
	h := newHarness(t, 10)
	_, err := h.pipeline.Transcribe(context.Background(), "https://vimeo.com/12345", pipeline.Options{})
	if !errors.Is(err, services.ErrInvalidReference) {
		t.Fatalf("expected rejection of unverified host, got %v", err)
	}

	h.cfg.Fetch.AllowUnverified = true
	if _, err := h.pipeline.Transcribe(context.Background(), "https://vimeo.com/12345", pipeline.Options{}); err != nil {
		t.Fatalf("expected unverified host accepted when allowed: %v", err)
	}
	if h.retriever.lastRef.Verified {
		t.Fatal("reference should be marked unverified")
	}
}

func TestTranscribeFetchFailure(t *testing.T) {
	h := newHarness(t, 10)
	h.retriever.err = &fetch.DownloadError{Reason: fetch.ReasonSourceUnavailable, Reference: "https://youtu.be/ABC123"}

	_, err := h.pipeline.Transcribe(context.Background(), "https://youtu.be/ABC123", pipeline.Options{})
	var pipeErr *pipeline.Error
	if !errors.As(err, &pipeErr) || pipeErr.Stage != pipeline.StageFetch {
		t.Fatalf("expected fetch stage error, got %v", err)
	}
	var downloadErr *fetch.DownloadError
	if !errors.As(err, &downloadErr) || downloadErr.Reason != fetch.ReasonSourceUnavailable {
		t.Fatalf("expected DownloadError, got %v", err)
	}
	h.assertScratchEmpty(t)

	runs, _ := h.store.List(context.Background(), 0)
	if len(runs) != 1 || runs[0].Status != history.StatusFailed || runs[0].ErrorMessage == "" {
		t.Fatalf("expected failed run recorded, got %+v", runs)
	}
}

func TestTranscribeCancellationCleansUp(t *testing.T) {
	h := newHarness(t, 25)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.engine.onCall = func(chunk segment.Chunk) {
		if chunk.Index == 1 {
			cancel()
		}
	}

	_, err := h.pipeline.Transcribe(ctx, "https://youtu.be/ABC123", pipeline.Options{MaxChunkDuration: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(h.engine.recorded) != 2 {
		t.Fatalf("expected chunk work to stop after cancellation, got %d calls", len(h.engine.recorded))
	}
	h.assertScratchEmpty(t)

	runs, _ := h.store.List(context.Background(), 0)
	if len(runs) != 1 || runs[0].Status != history.StatusCanceled {
		t.Fatalf("expected canceled run recorded, got %+v", runs)
	}
}

func TestTranscribeConfigurationErrors(t *testing.T) {
	h := newHarness(t, 10)
	tests := []struct {
		name string
		opts pipeline.Options
	}{
		{"unknown profile", pipeline.Options{EngineProfile: "quantum"}},
		{"bad language", pipeline.Options{LanguageHint: "not a language"}},
		{"chunk too short", pipeline.Options{MaxChunkDuration: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.pipeline.Transcribe(context.Background(), "https://youtu.be/ABC123", tt.opts)
			var pipeErr *pipeline.Error
			if !errors.As(err, &pipeErr) || pipeErr.Stage != pipeline.StageConfigure {
				t.Fatalf("expected configure error, got %v", err)
			}
			if services.ExitCode(err) != 2 {
				t.Fatalf("expected rejection exit code, got %d", services.ExitCode(err))
			}
		})
	}
}

func TestWriteArtifacts(t *testing.T) {
	h := newHarness(t, 5)
	result, err := h.pipeline.Transcribe(context.Background(), "https://youtu.be/ABC123", pipeline.Options{MaxChunkDuration: 10})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	artifacts, err := pipeline.WriteArtifacts(h.cfg.Paths.OutputDir, "ABC123", result)
	if err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}
	text, err := os.ReadFile(artifacts.TextPath)
	if err != nil || string(text) != "chunk 0 text\n" {
		t.Fatalf("unexpected text artifact %q %v", text, err)
	}
	srt, err := os.ReadFile(artifacts.SubtitlePath)
	if err != nil || !strings.HasPrefix(string(srt), "1\n00:00:00,000 --> 00:00:05,000\n") {
		t.Fatalf("unexpected subtitle artifact %q %v", srt, err)
	}
}
