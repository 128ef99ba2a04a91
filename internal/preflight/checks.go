package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"vidscribe/internal/config"
	"vidscribe/internal/deps"
	"vidscribe/internal/services/whisperapi"
	"vidscribe/internal/services/whisperx"
)

// minScratchBytes is the free space below which a long video is likely to
// exhaust the scratch filesystem (compressed source plus 16 kHz PCM chunks).
const minScratchBytes = 1 << 30

// CheckRemoteEngine verifies that the hosted recognition API is reachable and
// the key is accepted. It uses a 30-second timeout and a single attempt.
func CheckRemoteEngine(ctx context.Context, cfg *config.Config) Result {
	const name = "Remote engine"
	if cfg.WhisperAPI.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := whisperapi.NewClient(whisperapi.Config{
		APIKey:  cfg.WhisperAPI.APIKey,
		BaseURL: cfg.WhisperAPI.BaseURL,
		Model:   cfg.WhisperAPI.Model,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeRemoteError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", cfg.WhisperAPI.Model)}
}

// CheckCredentials reports whether profile has what it needs to run.
func CheckCredentials(cfg *config.Config, profile string) Result {
	name := fmt.Sprintf("Engine credentials (%s)", profile)
	if err := cfg.ValidateEngineCredentials(profile); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "ok"}
}

// CheckWhisperXCache reports whether the local model cache directory is
// usable. A missing cache is not a failure; the first run downloads models.
func CheckWhisperXCache(cfg *config.Config) Result {
	const name = "WhisperX cache"
	dir := cfg.WhisperX.CacheDir
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (empty; %s downloads on first run)", dir, cfg.WhisperX.Model)}
	case err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", dir, err)}
	case !info.IsDir():
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", dir)}
	}
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", dir, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", dir, cfg.WhisperX.Model)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minBytes available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	available := uint64(stat.Bavail) * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s available", formatBytes(available))
	if available < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need %s)", detail, formatBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// Requirements lists the external binaries for cfg. uvx is only required
// for the local engine; an empty profile means the configured one.
func Requirements(cfg *config.Config, profile string) []deps.Requirement {
	if profile == "" {
		profile = cfg.Engine.Profile
	}
	return []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Fetch.YTDLPBinary,
			Description: "Required for audio retrieval",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for resampling and chunk extraction",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for audio inspection",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "uvx",
			Command:     whisperx.UVXCommand,
			Description: "Required for the local WhisperX engine",
			Optional:    profile != config.ProfileLocal,
			VersionArgs: []string{"--version"},
		},
	}
}

// CheckSystemDeps evaluates all external binaries for the given config.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := Requirements(cfg, "")
	statuses := deps.CheckBinaries(requirements)
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	deps.ProbeVersions(probeCtx, nil, requirements, statuses)
	return statuses
}

// MissingRequired returns the required dependencies that are unavailable.
func MissingRequired(statuses []deps.Status) []deps.Status {
	var missing []deps.Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}

func summarizeRemoteError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
