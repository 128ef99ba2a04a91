// Package whisperx implements the local recognition engine.
//
// Each chunk is transcribed by launching WhisperX through uvx with a fixed
// decoding profile (beam search, VAD thresholds, sentence segments). Model
// weights and the uv cache live under the configured cache directory so
// repeated runs reuse them. Results are read back from the JSON output
// WhisperX writes beside the chunk.
package whisperx
