package reference_test

import (
	"errors"
	"testing"

	"vidscribe/internal/reference"
	"vidscribe/internal/services"
)

func TestNormalizeEquivalentFormsShareID(t *testing.T) {
	inputs := []string{
		"https://x/watch?v=ID",
		"https://x/shorts/ID",
		"https://short.link/ID",
	}
	for _, in := range inputs {
		ref, err := reference.Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if ref.CanonicalID != "ID" {
			t.Fatalf("Normalize(%q) id = %q, want ID", in, ref.CanonicalID)
		}
		if ref.Verified {
			t.Fatalf("Normalize(%q) should be unverified", in)
		}
		if ref.CanonicalURL != in {
			t.Fatalf("unverified reference should pass through, got %q", ref.CanonicalURL)
		}
	}
}

func TestNormalizeYouTubeForms(t *testing.T) {
	const id = "dQw4w9WgXcQ"
	const want = "https://www.youtube.com/watch?v=" + id
	inputs := []string{
		"https://www.youtube.com/watch?v=" + id,
		"https://youtube.com/watch?v=" + id + "&t=42s",
		"http://m.youtube.com/watch?feature=share&v=" + id,
		"https://music.youtube.com/watch?v=" + id + "&list=RD",
		"https://youtu.be/" + id,
		"https://youtu.be/" + id + "?si=abc",
		"youtu.be/" + id,
		"  https://www.youtube.com/shorts/" + id + "  ",
		"https://www.youtube.com/embed/" + id,
		"https://www.youtube.com/live/" + id + "?feature=share",
	}
	for _, in := range inputs {
		ref, err := reference.Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if ref.CanonicalID != id || ref.CanonicalURL != want || !ref.Verified {
			t.Fatalf("Normalize(%q) = %+v", in, ref)
		}
		if ref.Raw != in {
			t.Fatalf("expected raw preserved, got %q", ref.Raw)
		}
	}
}

func TestNormalizeIsFixedPoint(t *testing.T) {
	inputs := []string{
		"https://youtu.be/ABC123",
		"https://www.youtube.com/shorts/abc_DEF-123",
		"https://vimeo.com/channels/staffpicks/12345",
		"https://short.link/ID",
	}
	for _, in := range inputs {
		first, err := reference.Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		second, err := reference.Normalize(first.CanonicalURL)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", first.CanonicalURL, err)
		}
		if second.CanonicalID != first.CanonicalID || second.CanonicalURL != first.CanonicalURL || second.Verified != first.Verified {
			t.Fatalf("not a fixed point: %+v then %+v", first, second)
		}
	}
}

func TestNormalizeUnknownHostWithoutIDPassesThrough(t *testing.T) {
	in := "https://vimeo.com/channels/staffpicks/12345"
	ref, err := reference.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if ref.Verified || ref.CanonicalID != in || ref.CanonicalURL != in {
		t.Fatalf("unexpected reference %+v", ref)
	}
}

func TestNormalizeRejects(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"https://www.youtube.com/watch",
		"https://www.youtube.com/watch?v=bad$id",
		"https://www.youtube.com/playlist?list=PL123",
		"/just/a/path",
	}
	for _, in := range inputs {
		_, err := reference.Normalize(in)
		if err == nil {
			t.Fatalf("Normalize(%q) expected error", in)
		}
		var invalidErr *reference.InvalidReferenceError
		if !errors.As(err, &invalidErr) {
			t.Fatalf("expected InvalidReferenceError, got %T", err)
		}
		if !errors.Is(err, services.ErrInvalidReference) {
			t.Fatalf("expected ErrInvalidReference marker, got %v", err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://music.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://youtube.com/shorts/dQw4w9WgXcQ", true},
		{"https://youtu.be/ABC123", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", true},
		{"www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://short.link/ID", false},
		{"https://www.youtube.com/watch?v=", false},
		{"https://www.youtube.com/channel/UC123", false},
		{"https://youtu.be/", false},
		{"ftp://youtu.be/ABC123", false},
		{"not a url at all", false},
	}
	for _, tt := range tests {
		err := reference.Validate(tt.in)
		if tt.ok && err != nil {
			t.Fatalf("Validate(%q) unexpected error: %v", tt.in, err)
		}
		if !tt.ok {
			if err == nil {
				t.Fatalf("Validate(%q) expected error", tt.in)
			}
			if !errors.Is(err, services.ErrInvalidReference) {
				t.Fatalf("Validate(%q) expected invalid reference marker, got %v", tt.in, err)
			}
		}
	}
}
