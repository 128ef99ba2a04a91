// Package pipeline orchestrates a transcription request end to end.
//
// A request normalizes the video reference, retrieves audio into a private
// scratch directory, splits it into bounded chunks, recognizes the chunks in
// order while holding the shared engine for the selected profile, and
// assembles the results into a transcript. Recognition failures on single
// chunks degrade to warnings; everything else aborts the request with an
// *Error naming the stage. The scratch directory is removed on every exit
// path, and cleanup problems are logged rather than returned.
//
// Collaborators are injected through options so tests can substitute the
// fetcher, segmenter and engines without external tools.
package pipeline
