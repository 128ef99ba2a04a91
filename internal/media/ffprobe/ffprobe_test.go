package ffprobe

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video"},
    {"index": 1, "codec_name": "opus", "codec_type": "audio", "sample_rate": "48000", "channels": 2, "duration": "40.000"}
  ],
  "format": {"filename": "a.webm", "nb_streams": 2, "duration": "40.020000", "format_name": "matroska,webm"}
}`

func TestResultHelpers(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	audio, ok := result.PrimaryAudio()
	if !ok {
		t.Fatal("expected primary audio stream")
	}
	if audio.SampleRateHz() != 48000 || audio.Channels != 2 {
		t.Fatalf("unexpected audio stream %+v", audio)
	}
	if result.DurationSeconds() != 40.02 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.FormatName() != "matroska" {
		t.Fatalf("unexpected format name %q", result.FormatName())
	}
}

func TestDurationFallsBackToAudioStream(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "audio", Duration: "12.5"}}}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	result.Format.Duration = "bad"
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected NaN for malformed duration, got %v", result.DurationSeconds())
	}
}

func TestInspectUsesRunner(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args
		return []byte(sampleJSON), nil
	}
	result, err := Inspect(context.Background(), runner, "", "/tmp/a.webm")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if gotName != "ffprobe" {
		t.Fatalf("expected default binary, got %q", gotName)
	}
	if gotArgs[len(gotArgs)-1] != "/tmp/a.webm" {
		t.Fatalf("expected path as last arg, got %v", gotArgs)
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestInspectErrors(t *testing.T) {
	if _, err := Inspect(context.Background(), nil, "ffprobe", " "); err == nil {
		t.Fatal("expected empty path error")
	}
	failing := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}
	_, err := Inspect(context.Background(), failing, "ffprobe", "/tmp/x")
	if err == nil || !strings.Contains(err.Error(), "ffprobe inspect") {
		t.Fatalf("expected wrapped inspect error, got %v", err)
	}
	garbage := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("not json"), nil
	}
	if _, err := Inspect(context.Background(), garbage, "ffprobe", "/tmp/x"); err == nil {
		t.Fatal("expected parse error")
	}
}
