package whisperapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidscribe/internal/engine"
	"vidscribe/internal/segment"
	"vidscribe/internal/services"
)

func writeChunk(t *testing.T) segment.Chunk {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk_0001.wav")
	if err := os.WriteFile(path, []byte("RIFFdata"), 0o644); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	return segment.Chunk{Index: 1, Path: path, DurationSeconds: 2}
}

func TestRecognizeUploadsChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("response_format") != "verbose_json" {
			t.Errorf("unexpected form %v", r.MultipartForm.Value)
		}
		if r.FormValue("language") != "de" {
			t.Errorf("expected language de, got %q", r.FormValue("language"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			if header.Filename != "chunk_0001.wav" || string(data) != "RIFFdata" {
				t.Errorf("unexpected upload %s %q", header.Filename, data)
			}
		}
		_, _ = io.WriteString(w, `{"text":" Guten Tag. ","language":"german","segments":[{"start":0,"end":1.2,"text":" Guten Tag."}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	result, err := client.Recognize(context.Background(), writeChunk(t), "German")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.Text != "Guten Tag." || result.DetectedLanguage != "de" || result.ChunkIndex != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Segments) != 1 || result.Segments[0].EndSeconds != 1.2 {
		t.Fatalf("unexpected segments %+v", result.Segments)
	}
}

func TestRecognizeClassifiesStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		retryAfter string
		permanent  bool
		wantDelay  time.Duration
	}{
		{name: "server error", status: http.StatusBadGateway, body: "upstream", permanent: false},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"code":"rate_limit_exceeded"}}`, retryAfter: "7", wantDelay: 7 * time.Second},
		{name: "quota", status: http.StatusTooManyRequests, body: `{"error":{"code":"insufficient_quota"}}`, permanent: true},
		{name: "unauthorized", status: http.StatusUnauthorized, body: "bad key", permanent: true},
		{name: "too large", status: http.StatusRequestEntityTooLarge, permanent: true},
		{name: "timeout", status: http.StatusRequestTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL})
			_, err := client.Recognize(context.Background(), writeChunk(t), "")
			var recErr *engine.RecognitionError
			if !errors.As(err, &recErr) {
				t.Fatalf("expected RecognitionError, got %v", err)
			}
			if engine.IsPermanent(err) != tt.permanent {
				t.Fatalf("permanent=%v, want %v (%v)", engine.IsPermanent(err), tt.permanent, err)
			}
			if recErr.RetryAfter != tt.wantDelay {
				t.Fatalf("retry after %s, want %s", recErr.RetryAfter, tt.wantDelay)
			}
			if !tt.permanent && !errors.Is(err, services.ErrTransient) {
				t.Fatalf("expected transient marker: %v", err)
			}
		})
	}
}

func TestRecognizeRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Recognize(context.Background(), writeChunk(t), "")
	if !engine.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestRecognizeHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL})
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := client.Recognize(ctx, writeChunk(t), "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/whisper-1") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"id":"whisper-1"}`)
	}))
	defer server.Close()

	if err := NewClient(Config{APIKey: "good", BaseURL: server.URL}).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if err := NewClient(Config{APIKey: "bad", BaseURL: server.URL}).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected unauthorized health check to fail")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("unexpected %s %v", d, ok)
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("expected invalid value rejected")
	}
}
