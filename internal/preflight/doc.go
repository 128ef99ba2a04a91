// Package preflight provides readiness checks for the binaries, directories
// and recognition backends vidscribe depends on.
//
// The CLI "vidscribe status" command renders RunAll and CheckSystemDeps as
// tables. "vidscribe transcribe" and "vidscribe serve" call RunAll before
// accepting work so a missing scratch directory or unusable engine fails fast
// instead of after a long download.
package preflight
