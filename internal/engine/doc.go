// Package engine defines the speech recognition interface and the policy
// around it.
//
// Engine is implemented by the local WhisperX backend and the hosted Whisper
// API backend. Recognizer adds the per-chunk retry policy: transient failures
// back off exponentially up to a total attempt limit, and any failure that
// survives the policy degrades the chunk to empty text with a warning so one
// bad chunk never aborts a transcript. Shared is the process-wide handle that
// builds an engine once and serializes access to it, optionally across
// processes through a file lock.
package engine
