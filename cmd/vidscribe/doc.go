// Package main hosts the vidscribe CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging and the transcription
// pipeline together: transcribe runs one video end to end, serve exposes the
// same pipeline over HTTP, and the history, status and config commands cover
// the run ledger, dependency checks and configuration scaffolding.
//
// Keep this package lean: new behaviour belongs in the internal packages and
// is surfaced here through commands or flags.
package main
