package fetch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"vidscribe/internal/fetch"
	"vidscribe/internal/reference"
	"vidscribe/internal/services"
)

const (
	probeWithAudio = `{"id":"ABC123","title":"Demo","duration":40,"formats":[{"format_id":"251","acodec":"opus","vcodec":"none"},{"format_id":"137","acodec":"none","vcodec":"avc1"}]}`
	probeNoAudio   = `{"id":"ABC123","title":"Silent","duration":40,"formats":[{"format_id":"137","acodec":"none","vcodec":"avc1"}]}`
	ffprobeAudio   = `{"streams":[{"index":0,"codec_name":"opus","codec_type":"audio","sample_rate":"48000","channels":2}],"format":{"duration":"40.01","format_name":"matroska,webm"}}`
	ffprobeVideo   = `{"streams":[{"index":0,"codec_name":"h264","codec_type":"video"}],"format":{"duration":"40.01","format_name":"mp4"}}`
)

type stubRunner struct {
	mu           sync.Mutex
	probeJSON    string
	ffprobeJSON  string
	downloadErrs []error
	downloads    int
	probes       int
	onDownload   func(dest string)
}

func (s *stubRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case "ffprobe":
		return []byte(s.ffprobeJSON), nil
	case "yt-dlp":
		if slices.Contains(args, "-J") {
			s.probes++
			return []byte(s.probeJSON), nil
		}
		s.downloads++
		dest := args[slices.Index(args, "-o")+1]
		if s.onDownload != nil {
			s.onDownload(dest)
		}
		if len(s.downloadErrs) > 0 {
			err := s.downloadErrs[0]
			s.downloadErrs = s.downloadErrs[1:]
			_ = os.WriteFile(dest+".part", []byte("partial"), 0o644)
			return nil, err
		}
		return nil, os.WriteFile(dest, []byte("audio-bytes"), 0o644)
	}
	return nil, errors.New("unexpected binary " + name)
}

func newRef(t *testing.T) reference.VideoReference {
	t.Helper()
	ref, err := reference.Normalize("https://youtu.be/ABC123")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return ref
}

func toolErr(stderr string) error {
	return &services.CommandError{Name: "yt-dlp", ExitCode: 1, Stderr: stderr, Err: errors.New("exit status 1")}
}

func assertNoScratchFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected scratch dir to be empty, found %v", names)
	}
}

func TestFetchSuccess(t *testing.T) {
	stub := &stubRunner{probeJSON: probeWithAudio, ffprobeJSON: ffprobeAudio}
	f := fetch.New("yt-dlp", "ffprobe", 0, fetch.WithCommandRunner(stub.run))
	dest := filepath.Join(t.TempDir(), "source.audio")

	asset, err := f.Fetch(context.Background(), newRef(t), dest)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if asset.Path != dest || asset.SampleRate != 48000 || asset.Channels != 2 {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if asset.DurationSeconds != 40.01 || asset.Format != "matroska" || asset.Title != "Demo" {
		t.Fatalf("unexpected asset metadata %+v", asset)
	}
	if stub.downloads != 1 || stub.probes != 1 {
		t.Fatalf("unexpected call counts probes=%d downloads=%d", stub.probes, stub.downloads)
	}
}

func TestFetchNoAudioTrackFromMetadata(t *testing.T) {
	stub := &stubRunner{probeJSON: probeNoAudio, ffprobeJSON: ffprobeAudio}
	f := fetch.New("yt-dlp", "ffprobe", 0, fetch.WithCommandRunner(stub.run))
	dir := t.TempDir()

	_, err := f.Fetch(context.Background(), newRef(t), filepath.Join(dir, "source.audio"))
	var downloadErr *fetch.DownloadError
	if !errors.As(err, &downloadErr) || downloadErr.Reason != fetch.ReasonNoAudioTrack {
		t.Fatalf("expected NoAudioTrack, got %v", err)
	}
	if !errors.Is(err, services.ErrDownload) {
		t.Fatalf("expected download marker, got %v", err)
	}
	if stub.downloads != 0 {
		t.Fatalf("expected no download attempt, got %d", stub.downloads)
	}
	assertNoScratchFiles(t, dir)
}

func TestFetchNoAudioStreamAfterDownload(t *testing.T) {
	stub := &stubRunner{probeJSON: probeWithAudio, ffprobeJSON: ffprobeVideo}
	f := fetch.New("yt-dlp", "ffprobe", 0, fetch.WithCommandRunner(stub.run))
	dir := t.TempDir()

	_, err := f.Fetch(context.Background(), newRef(t), filepath.Join(dir, "source.audio"))
	var downloadErr *fetch.DownloadError
	if !errors.As(err, &downloadErr) || downloadErr.Reason != fetch.ReasonNoAudioTrack {
		t.Fatalf("expected NoAudioTrack, got %v", err)
	}
	assertNoScratchFiles(t, dir)
}

func TestFetchRetriesNetworkFailureOnce(t *testing.T) {
	stub := &stubRunner{
		probeJSON:    probeWithAudio,
		ffprobeJSON:  ffprobeAudio,
		downloadErrs: []error{toolErr("ERROR: Unable to download webpage: Connection reset by peer")},
	}
	f := fetch.New("yt-dlp", "ffprobe", 0, fetch.WithCommandRunner(stub.run), fetch.WithBackoff(0))
	dir := t.TempDir()
	dest := filepath.Join(dir, "source.audio")

	if _, err := f.Fetch(context.Background(), newRef(t), dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if stub.downloads != 2 {
		t.Fatalf("expected one retry, got %d downloads", stub.downloads)
	}
}

func TestFetchNetworkFailureAfterRetry(t *testing.T) {
	stub := &stubRunner{
		probeJSON:   probeWithAudio,
		ffprobeJSON: ffprobeAudio,
		downloadErrs: []error{
			toolErr("ERROR: Read timed out"),
			toolErr("ERROR: Read timed out"),
			toolErr("ERROR: Read timed out"),
		},
	}
	f := fetch.New("yt-dlp", "ffprobe", 0, fetch.WithCommandRunner(stub.run), fetch.WithBackoff(0))
	dir := t.TempDir()

	_, err := f.Fetch(context.Background(), newRef(t), filepath.Join(dir, "source.audio"))
	var downloadErr *fetch.DownloadError
	if !errors.As(err, &downloadErr) || downloadErr.Reason != fetch.ReasonNetworkFailure {
		t.Fatalf("expected NetworkFailure, got %v", err)
	}
	if stub.downloads != 2 {
		t.Fatalf("expected exactly two attempts, got %d", stub.downloads)
	}
	assertNoScratchFiles(t, dir)
}

func TestFetchSourceUnavailableIsNotRetried(t *testing.T) {
	stub := &stubRunner{
		probeJSON:    probeWithAudio,
		ffprobeJSON:  ffprobeAudio,
		downloadErrs: []error{toolErr("ERROR: [youtube] ABC123: Private video. Sign in if you've been granted access")},
	}
	f := fetch.New("yt-dlp", "ffprobe", 0, fetch.WithCommandRunner(stub.run), fetch.WithBackoff(0))
	dir := t.TempDir()

	_, err := f.Fetch(context.Background(), newRef(t), filepath.Join(dir, "source.audio"))
	var downloadErr *fetch.DownloadError
	if !errors.As(err, &downloadErr) || downloadErr.Reason != fetch.ReasonSourceUnavailable {
		t.Fatalf("expected SourceUnavailable, got %v", err)
	}
	if stub.downloads != 1 {
		t.Fatalf("expected no retry, got %d downloads", stub.downloads)
	}
	assertNoScratchFiles(t, dir)
}

func TestFetchCancellationRemovesPartialFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stub := &stubRunner{
		probeJSON:    probeWithAudio,
		ffprobeJSON:  ffprobeAudio,
		downloadErrs: []error{context.Canceled},
		onDownload: func(dest string) {
			_ = os.WriteFile(dest, []byte("half"), 0o644)
			_ = os.WriteFile(dest+".ytdl", []byte("state"), 0o644)
			cancel()
		},
	}
	f := fetch.New("yt-dlp", "ffprobe", 0, fetch.WithCommandRunner(stub.run))
	dir := t.TempDir()

	_, err := f.Fetch(ctx, newRef(t), filepath.Join(dir, "source.audio"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	assertNoScratchFiles(t, dir)
}

func TestFetchRequiresDestination(t *testing.T) {
	f := fetch.New("", "ffprobe", 0)
	if _, err := f.Fetch(context.Background(), newRef(t), " "); err == nil {
		t.Fatal("expected destination error")
	}
}
