package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"vidscribe/internal/config"
	"vidscribe/internal/fetch"
	"vidscribe/internal/logging"
	"vidscribe/internal/pipeline"
	"vidscribe/internal/reference"
	"vidscribe/internal/services"
)

// statusClientClosedRequest is logged when the caller disconnects mid-run.
const statusClientClosedRequest = 499

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if strings.TrimSpace(raw) == "" {
		s.writeError(w, r, http.StatusBadRequest, "url query parameter is required")
		return
	}
	ref, err := reference.Normalize(raw)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NormalizeResponse{Reference: ref})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Reference) == "" {
		s.writeError(w, r, http.StatusBadRequest, "reference is required")
		return
	}
	if req.MaxChunkSeconds < 0 {
		s.writeError(w, r, http.StatusBadRequest, "max_chunk_seconds must be positive")
		return
	}
	profile := strings.ToLower(strings.TrimSpace(req.Engine))
	if profile == "" {
		profile = s.cfg.Engine.Profile
	}
	if profile != config.ProfileLocal && profile != config.ProfileRemote {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown engine %q (expected %q or %q)", req.Engine, config.ProfileLocal, config.ProfileRemote))
		return
	}
	// Missing credentials are a server problem, reported as 503.
	if err := s.cfg.ValidateEngineCredentials(profile); err != nil {
		s.writeFailure(w, r, services.Wrap(services.ErrConfiguration, "", "engine", "", err))
		return
	}

	result, err := s.transcriber.Transcribe(r.Context(), req.Reference, pipeline.Options{
		EngineProfile:    profile,
		LanguageHint:     req.Language,
		MaxChunkDuration: req.MaxChunkSeconds,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	id, _ := services.RequestIDFromContext(r.Context())
	s.writeJSON(w, http.StatusOK, newTranscriptResponse(id, req.Reference, result, pipeline.RenderSubtitle(result)))
}

// writeFailure maps a pipeline error to a status and structured body.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	body := ErrorResponse{Error: err.Error()}
	body.RequestID, _ = services.RequestIDFromContext(r.Context())

	var pipeErr *pipeline.Error
	if errors.As(err, &pipeErr) {
		body.Stage = pipeErr.Stage
	}
	var downloadErr *fetch.DownloadError
	if errors.As(err, &downloadErr) {
		body.Reason = string(downloadErr.Reason)
	}

	logger := logging.WithContext(r.Context(), s.logger)
	switch {
	case status == statusClientClosedRequest:
		logger.Info("client disconnected; transcription canceled")
	case status >= http.StatusInternalServerError:
		logging.ErrorWithContext(logger, "transcription request failed", "api_request_failed",
			logging.Error(err),
			logging.Int("status", status),
			logging.String(logging.FieldErrorHint, "inspect server logs for the request id"),
		)
	default:
		logging.WarnWithContext(logger, "transcription request rejected", "api_request_rejected",
			logging.Error(err),
			logging.Int("status", status),
			logging.String(logging.FieldImpact, "client received an error response"),
		)
	}
	s.writeJSON(w, status, body)
}

func statusForError(err error) int {
	var downloadErr *fetch.DownloadError
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, services.ErrInvalidReference), errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration):
		var pipeErr *pipeline.Error
		if errors.As(err, &pipeErr) && pipeErr.Stage == pipeline.StageConfigure {
			return http.StatusBadRequest
		}
		return http.StatusServiceUnavailable
	case errors.As(err, &downloadErr):
		switch downloadErr.Reason {
		case fetch.ReasonSourceUnavailable:
			return http.StatusNotFound
		case fetch.ReasonNoAudioTrack:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusBadGateway
		}
	case errors.Is(err, services.ErrRecognition):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
