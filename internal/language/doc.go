// Package language normalizes recognition language hints.
//
// Hints may be BCP 47 tags, ISO 639 codes or English language names; they
// are reduced to the base ISO 639-1 code that WhisperX and the Whisper API
// accept. "auto" and the empty string both mean detect.
package language
