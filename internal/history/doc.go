// Package history keeps a SQLite ledger of transcription runs.
//
// Each run records the reference, engine, terminal status, chunk and warning
// counts, audio length and elapsed time. Transcript text is never persisted;
// the ledger exists for `vidscribe history` and operational debugging only.
// Writes retry on SQLITE_BUSY so concurrent `serve` requests and CLI
// invocations can share the database.
package history
