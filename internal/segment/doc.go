// Package segment splits an audio asset into bounded chunks for recognition.
//
// Split resamples the asset to mono 16-bit PCM at a fixed rate with ffmpeg,
// scans it with a frame-energy silence detector, plans chunk spans and
// extracts each span to a WAV file. Plan is the pure planning step: assets
// that fit in one chunk are never split, at least two interior silences
// enable boundary-aware packing, and anything else falls back to fixed-length
// slicing. Detection thresholds are configuration, see DetectorConfig.
package segment
