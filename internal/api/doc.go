// Package api exposes the transcription pipeline over HTTP.
//
// Routes are mounted on a chi router under /api:
//
//	GET  /api/health        liveness and configured engine profiles
//	GET  /api/normalize     canonicalize a reference (?url=)
//	POST /api/transcripts   run a transcription and return transcript + SRT
//
// When an API token is configured every route except health requires an
// "Authorization: Bearer <token>" header. Pipeline failures are mapped to
// HTTP statuses by their error markers, so clients can tell a bad reference
// (400) from an unavailable video (404) or a failing engine (502).
//
// Requests are processed synchronously. A client that disconnects cancels
// its pipeline run and scratch files are removed.
package api
