// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe through a services.CommandRunner and returns the parsed
// Result. Helpers on Result expose the primary audio stream, its sample rate
// and channel count, and the container duration, which the fetcher uses to
// describe a downloaded audio asset.
package ffprobe
