package api

import (
	"vidscribe/internal/reference"
	"vidscribe/internal/transcript"
)

// TranscriptRequest is the body accepted by POST /api/transcripts. Empty
// fields fall back to server configuration.
type TranscriptRequest struct {
	Reference       string  `json:"reference"`
	Engine          string  `json:"engine,omitempty"`
	Language        string  `json:"language,omitempty"`
	MaxChunkSeconds float64 `json:"max_chunk_seconds,omitempty"`
}

// TranscriptResponse carries the assembled transcript and its renderings.
type TranscriptResponse struct {
	RequestID         string               `json:"request_id"`
	Reference         string               `json:"reference"`
	Segments          []transcript.Segment `json:"segments"`
	FullText          string               `json:"full_text"`
	DetectedLanguage  string               `json:"detected_language"`
	Engine            string               `json:"engine"`
	ChunkCount        int                  `json:"chunk_count"`
	ProcessingSeconds float64              `json:"processing_seconds"`
	Warnings          []string             `json:"warnings"`
	SRT               string               `json:"srt"`
}

// NormalizeResponse wraps a canonicalized reference.
type NormalizeResponse struct {
	Reference reference.VideoReference `json:"reference"`
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status        string   `json:"status"`
	DefaultEngine string   `json:"default_engine"`
	Engines       []string `json:"engines"`
}

// ErrorResponse is returned for every non-2xx status.
type ErrorResponse struct {
	Error     string `json:"error"`
	Stage     string `json:"stage,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func newTranscriptResponse(requestID, ref string, result transcript.Result, srt string) TranscriptResponse {
	segments := result.Segments
	if segments == nil {
		segments = []transcript.Segment{}
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return TranscriptResponse{
		RequestID:         requestID,
		Reference:         ref,
		Segments:          segments,
		FullText:          result.FullText,
		DetectedLanguage:  result.DetectedLanguage,
		Engine:            result.Engine,
		ChunkCount:        result.ChunkCount,
		ProcessingSeconds: result.ProcessingDuration.Seconds(),
		Warnings:          warnings,
		SRT:               srt,
	}
}
