// Package whisperapi implements the hosted recognition engine against an
// OpenAI-compatible /audio/transcriptions endpoint.
//
// Chunks are uploaded as multipart forms requesting verbose_json so segment
// timings come back with the text. A token-bucket limiter keeps the client
// under the configured requests-per-minute budget, and HTTP failures are
// classified for the recognizer's retry policy, honouring Retry-After.
package whisperapi
