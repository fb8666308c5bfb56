package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"songforge/internal/ai"
	"songforge/internal/lyrics"
	"songforge/internal/media"
	"songforge/internal/registry"
	"songforge/internal/songs"

	"github.com/sirupsen/logrus"
)

const (
	msgInvalidJSON     = "Invalid JSON in request"
	msgAINotConfigured = "OpenAI service not available. Please check your API key configuration."
	msgAIUnavailable   = "AI service unavailable"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Code    int    `json:"code"`
}

// respondJSON writes v with the given status.
func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("Failed to write response")
	}
}

// respondWithError sends a structured error response
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message, details string, err error) {
	s.writeError(w, r, errorResponse{Error: message, Details: details, Code: statusCode}, err)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, body errorResponse, err error) {
	logEntry := s.logger.WithFields(logrus.Fields{
		"request_id":  requestID(r.Context()),
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": body.Code,
		"message":     body.Error,
	})
	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if body.Code >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	body.Success = false
	s.respondJSON(w, body.Code, body)
}

// decodeJSON reads a size-limited JSON body into v. An empty body leaves v
// untouched.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.respondWithError(w, r, http.StatusRequestEntityTooLarge, "Request body too large", "", err)
		return false
	}
	s.respondWithError(w, r, http.StatusBadRequest, msgInvalidJSON, err.Error(), err)
	return false
}

// respondWithServiceError maps component errors to HTTP responses.
func (s *Server) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *songs.ValidationError
	var aiErr *ai.Error

	switch {
	case errors.As(err, &validation):
		s.respondWithError(w, r, http.StatusBadRequest, validation.Message, "", err)
	case errors.Is(err, songs.ErrVersionNotFound):
		s.respondWithError(w, r, http.StatusNotFound, "Version not found", "", err)
	case errors.Is(err, songs.ErrNotFound):
		s.respondWithError(w, r, http.StatusNotFound, "Song not found", "", err)
	case errors.Is(err, songs.ErrStorage):
		s.respondWithError(w, r, http.StatusInternalServerError, "Storage error", "", err)
	case errors.Is(err, registry.ErrValidation):
		s.respondWithError(w, r, http.StatusBadRequest, "Song ID and lyrics are required", "", err)
	case errors.Is(err, registry.ErrNotFound):
		s.respondWithError(w, r, http.StatusNotFound, "Registration not found", "", err)
	case errors.Is(err, media.ErrFolderNotFound):
		s.respondWithError(w, r, http.StatusNotFound, "Media folder not found", "", err)
	case errors.Is(err, media.ErrAudioFolderNotFound):
		s.respondWithError(w, r, http.StatusNotFound, "MP3 folder not found", "", err)
	case errors.Is(err, media.ErrNoMedia):
		s.respondWithError(w, r, http.StatusNotFound, "No media files found", "", err)
	case errors.Is(err, media.ErrNoValidMedia):
		s.respondWithError(w, r, http.StatusNotFound, "No valid media items found", "", err)
	case errors.Is(err, lyrics.ErrParse):
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to parse enhancement data", "Response format invalid", err)
	case errors.As(err, &aiErr):
		s.respondWithAIError(w, r, err, "OpenAI API error")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.respondWithError(w, r, http.StatusServiceUnavailable, "Request canceled", "", err)
	default:
		s.respondWithError(w, r, http.StatusInternalServerError, "Internal server error", "", err)
	}
}

// respondWithAIError reports a failed text service call. failure is the
// message used for errors that are not timeouts or configuration problems.
func (s *Server) respondWithAIError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	var aiErr *ai.Error
	if !errors.As(err, &aiErr) {
		s.respondWithServiceError(w, r, err)
		return
	}

	body := errorResponse{
		Error:   failure,
		Details: aiErr.Message,
		Kind:    string(aiErr.Kind),
		Code:    http.StatusInternalServerError,
	}
	switch aiErr.Kind {
	case ai.KindNotConfigured:
		body.Error = msgAINotConfigured
		body.Details = "The OpenAI API key is not configured."
	case ai.KindTimeout:
		body.Error = msgAIUnavailable
		body.Code = http.StatusServiceUnavailable
	case ai.KindNetwork:
		body.Error = "Failed to connect to OpenAI API"
	}
	s.writeError(w, r, body, err)
}

// requireAI responds with the not-configured error when no API key is set.
func (s *Server) requireAI(w http.ResponseWriter, r *http.Request) bool {
	if s.ai.Configured() {
		return true
	}
	s.respondWithAIError(w, r, &ai.Error{Kind: ai.KindNotConfigured, Message: "API key is not set"}, "")
	return false
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
