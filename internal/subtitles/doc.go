// Package subtitles renders transcripts as SRT subtitle documents and plain
// text, and parses SRT back into cues.
package subtitles
