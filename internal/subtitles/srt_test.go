package subtitles

import (
	"math"
	"strings"
	"testing"

	"vidscribe/internal/transcript"
)

func TestRenderAndParseRoundTrip(t *testing.T) {
	segments := []transcript.Segment{
		{StartSeconds: 0, EndSeconds: 4.5, Text: " Hello there. "},
		{StartSeconds: 75.25, EndSeconds: 80, Text: "General Kenobi."},
	}
	doc := Render(segments)

	want := "1\n00:00:00,000 --> 00:00:04,500\nHello there.\n\n" +
		"2\n00:01:15,250 --> 00:01:20,000\nGeneral Kenobi.\n\n"
	if doc != want {
		t.Fatalf("Render mismatch:\n%q\nwant\n%q", doc, want)
	}

	cues, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	for i, cue := range cues {
		if cue.Index != i+1 {
			t.Fatalf("cue %d has index %d", i, cue.Index)
		}
		if math.Abs(cue.StartSeconds-segments[i].StartSeconds) > 0.001 || math.Abs(cue.EndSeconds-segments[i].EndSeconds) > 0.001 {
			t.Fatalf("cue %d timing drifted: %+v", i, cue)
		}
		if cue.Text != strings.TrimSpace(segments[i].Text) {
			t.Fatalf("cue %d text %q", i, cue.Text)
		}
	}
}

func TestRenderSkipsEmptySegments(t *testing.T) {
	doc := Render([]transcript.Segment{
		{StartSeconds: 0, EndSeconds: 1, Text: "  "},
		{StartSeconds: 1, EndSeconds: 2, Text: "line one\n\nline two"},
	})
	if !strings.HasPrefix(doc, "1\n00:00:01,000") {
		t.Fatalf("expected first cue numbered 1, got %q", doc)
	}
	if !strings.Contains(doc, "line one\nline two\n\n") {
		t.Fatalf("blank line inside cue text not collapsed: %q", doc)
	}
	if Render(nil) != "" {
		t.Fatal("expected empty document for no segments")
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[float64]string{
		0:         "00:00:00,000",
		75.25:     "00:01:15,250",
		3599.9996: "01:00:00,000",
		3723.004:  "01:02:03,004",
		-2:        "00:00:00,000",
	}
	for input, want := range tests {
		if got := FormatTimestamp(input); got != want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatTimestampNonFinite(t *testing.T) {
	for _, input := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := FormatTimestamp(input); got != "00:00:00,000" {
			t.Errorf("FormatTimestamp(%v) = %q, want zero", input, got)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("00:01:15,250")
	if err != nil || math.Abs(got-75.25) > 1e-9 {
		t.Fatalf("ParseTimestamp = %v, %v", got, err)
	}
	if got, err := ParseTimestamp("01:02:03.004"); err != nil || math.Abs(got-3723.004) > 1e-9 {
		t.Fatalf("period separator = %v, %v", got, err)
	}
	for _, bad := range []string{"", "1:2", "00:61:00,000", "aa:bb:cc,ddd"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Errorf("ParseTimestamp(%q) expected error", bad)
		}
	}
}

func TestParseRejectsMalformedTiming(t *testing.T) {
	if _, err := Parse("1\nnot a timing line\ntext\n"); err == nil {
		t.Fatal("expected error")
	}
	cues, err := Parse("\r\n")
	if err != nil || cues != nil {
		t.Fatalf("expected no cues, got %v %v", cues, err)
	}
}

func TestRenderText(t *testing.T) {
	got := RenderText([]transcript.Segment{{Text: " first  line "}, {Text: ""}, {Text: "second\nline"}})
	if got != "first line\nsecond line\n" {
		t.Fatalf("unexpected text %q", got)
	}
}
