package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidscribe/internal/logging"
	"vidscribe/internal/media/ffprobe"
	"vidscribe/internal/reference"
	"vidscribe/internal/services"
)

const (
	defaultBinary  = "yt-dlp"
	defaultBackoff = 2 * time.Second
	networkRetries = 1
)

// AudioAsset describes the audio file written by the fetcher. The caller owns
// the file at Path and must delete it.
type AudioAsset struct {
	Path            string
	SampleRate      int
	Channels        int
	DurationSeconds float64
	Format          string
	Title           string
}

// Retriever is the behaviour the pipeline needs from the fetcher.
type Retriever interface {
	Fetch(ctx context.Context, ref reference.VideoReference, dest string) (AudioAsset, error)
}

// Option configures the fetcher.
type Option func(*Fetcher)

// WithCommandRunner injects a custom command runner (primarily for tests).
func WithCommandRunner(runner services.CommandRunner) Option {
	return func(f *Fetcher) {
		if runner != nil {
			f.run = runner
		}
	}
}

// WithBackoff overrides the delay before the network retry.
func WithBackoff(backoff time.Duration) Option {
	return func(f *Fetcher) {
		if backoff >= 0 {
			f.backoff = backoff
		}
	}
}

// WithCookiesFile passes a Netscape cookies file to yt-dlp.
func WithCookiesFile(path string) Option {
	return func(f *Fetcher) { f.cookiesFile = strings.TrimSpace(path) }
}

// WithLogger sets the logger used for retry and cleanup warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Fetcher retrieves the best audio-only stream for a reference using yt-dlp.
type Fetcher struct {
	binary        string
	ffprobeBinary string
	timeout       time.Duration
	backoff       time.Duration
	cookiesFile   string
	run           services.CommandRunner
	logger        *slog.Logger
}

// New constructs a Fetcher. A zero timeout disables the per-fetch deadline.
func New(binary, ffprobeBinary string, timeoutSeconds int, opts ...Option) *Fetcher {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = defaultBinary
	}
	f := &Fetcher{
		binary:        binary,
		ffprobeBinary: ffprobeBinary,
		timeout:       time.Duration(timeoutSeconds) * time.Second,
		backoff:       defaultBackoff,
		run:           services.RunCommand,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "fetch")
	return f
}

// Fetch probes the reference, downloads its best audio stream to dest and
// inspects the result. On any failure, including cancellation, partial files
// next to dest are removed before returning.
func (f *Fetcher) Fetch(ctx context.Context, ref reference.VideoReference, dest string) (asset AudioAsset, err error) {
	if strings.TrimSpace(dest) == "" {
		return AudioAsset{}, errors.New("fetch: destination required")
	}
	target := ref.CanonicalURL
	if target == "" {
		target = ref.Raw
	}

	fetchCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	defer func() {
		if err == nil {
			return
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = &DownloadError{Reason: ReasonNetworkFailure, Reference: target, Err: fmt.Errorf("timed out after %s: %w", f.timeout, err)}
		}
		f.removePartials(ctx, dest)
	}()

	meta, err := f.probe(fetchCtx, target)
	if err != nil {
		return AudioAsset{}, err
	}
	if !meta.hasAudio() {
		return AudioAsset{}, &DownloadError{Reason: ReasonNoAudioTrack, Reference: target}
	}

	if err := f.download(fetchCtx, target, dest); err != nil {
		return AudioAsset{}, err
	}

	info, err := os.Stat(dest)
	if err != nil || info.Size() == 0 {
		return AudioAsset{}, &DownloadError{Reason: ReasonToolFailure, Reference: target, Err: errors.New("yt-dlp produced no output file")}
	}

	probe, err := ffprobe.Inspect(fetchCtx, f.run, f.ffprobeBinary, dest)
	if err != nil {
		if ctxErr := fetchCtx.Err(); ctxErr != nil {
			return AudioAsset{}, ctxErr
		}
		return AudioAsset{}, &DownloadError{Reason: ReasonToolFailure, Reference: target, Err: err}
	}
	audio, ok := probe.PrimaryAudio()
	if !ok {
		return AudioAsset{}, &DownloadError{Reason: ReasonNoAudioTrack, Reference: target}
	}

	duration := probe.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		duration = meta.Duration
	}
	return AudioAsset{
		Path:            dest,
		SampleRate:      audio.SampleRateHz(),
		Channels:        audio.Channels,
		DurationSeconds: duration,
		Format:          probe.FormatName(),
		Title:           meta.Title,
	}, nil
}

func (f *Fetcher) probe(ctx context.Context, target string) (metadata, error) {
	args := f.baseArgs()
	args = append(args, "-J", "--", target)

	var meta metadata
	err := f.withRetry(ctx, target, "probe", func() error {
		output, err := f.run(ctx, f.binary, args...)
		if err != nil {
			return err
		}
		meta, err = parseMetadata(output)
		if err != nil {
			return &DownloadError{Reason: ReasonToolFailure, Reference: target, Err: fmt.Errorf("parse metadata: %w", err)}
		}
		return nil
	})
	return meta, err
}

func (f *Fetcher) download(ctx context.Context, target, dest string) error {
	args := f.baseArgs()
	args = append(args,
		"-f", "bestaudio/best",
		"--force-overwrites",
		"-o", dest,
		"--", target,
	)
	return f.withRetry(ctx, target, "download", func() error {
		_, err := f.run(ctx, f.binary, args...)
		return err
	})
}

func (f *Fetcher) baseArgs() []string {
	args := []string{"--no-playlist", "--no-warnings", "--quiet", "--no-progress"}
	if f.cookiesFile != "" {
		args = append(args, "--cookies", f.cookiesFile)
	}
	return args
}

// withRetry runs op, retrying once after the configured backoff when the
// failure looks like a network problem.
func (f *Fetcher) withRetry(ctx context.Context, target, operation string, op func() error) error {
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var downloadErr *DownloadError
		if errors.As(err, &downloadErr) {
			return err
		}
		reason, retryable := classify(err)
		if !retryable || attempt >= networkRetries {
			return &DownloadError{Reason: reason, Reference: target, Err: err}
		}
		logging.WarnWithContext(logging.WithContext(ctx, f.logger), "yt-dlp failed; retrying", "fetch_retry",
			logging.String("operation", operation),
			logging.Duration("backoff", f.backoff),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network connectivity"),
			logging.String(logging.FieldImpact, "download delayed"),
		)
		timer := time.NewTimer(f.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// removePartials deletes dest and any yt-dlp intermediates next to it.
func (f *Fetcher) removePartials(ctx context.Context, dest string) {
	dir := filepath.Dir(dest)
	base := filepath.Base(dest)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logging.WithContext(ctx, f.logger), "scan for partial downloads failed", "fetch_cleanup_failed",
				logging.String("dir", dir), logging.Error(err))
		}
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if name != base && !strings.HasPrefix(name, base+".part") && !strings.HasPrefix(name, base+".ytdl") {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logging.WithContext(ctx, f.logger), "remove partial download failed", "fetch_cleanup_failed",
				logging.String("path", path), logging.Error(err),
				logging.String(logging.FieldImpact, "scratch file left behind"))
		}
	}
}
