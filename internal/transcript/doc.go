// Package transcript assembles per-chunk recognition results into a single
// transcript on the source timeline.
package transcript
