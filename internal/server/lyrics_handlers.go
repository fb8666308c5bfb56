package server

import (
	"errors"
	"net/http"

	"songforge/internal/lyrics"
)

type lyricsRequest struct {
	Lyrics string `json:"lyrics"`
}

type enhanceResponse struct {
	Success bool `json:"success"`
	*lyrics.EnhanceResult
}

type rhymeResponse struct {
	Success bool `json:"success"`
	*lyrics.RhymeResult
}

// handleEnhanceLyrics returns alternatives for lines marked with <insert>.
func (s *Server) handleEnhanceLyrics(w http.ResponseWriter, r *http.Request) {
	var req lyricsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if blank(req.Lyrics) {
		s.respondWithError(w, r, http.StatusBadRequest, "Lyrics are required", "", nil)
		return
	}
	if !s.requireAI(w, r) {
		return
	}

	res, err := s.lyrics.Enhance(r.Context(), req.Lyrics)
	if err != nil {
		s.respondWithAIError(w, r, err, "OpenAI API error")
		return
	}
	s.respondJSON(w, http.StatusOK, enhanceResponse{Success: true, EnhanceResult: res})
}

// handleEnhanceWithRhyme returns rhyme-aware alternatives per marked section.
func (s *Server) handleEnhanceWithRhyme(w http.ResponseWriter, r *http.Request) {
	var req lyricsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if blank(req.Lyrics) {
		s.respondWithError(w, r, http.StatusBadRequest, "Lyrics are required", "", nil)
		return
	}
	if !s.requireAI(w, r) {
		return
	}

	res, err := s.lyrics.EnhanceWithRhyme(r.Context(), req.Lyrics)
	if err != nil {
		s.respondWithAIError(w, r, err, "OpenAI API error")
		return
	}
	s.respondJSON(w, http.StatusOK, rhymeResponse{Success: true, RhymeResult: res})
}

type versesRequest struct {
	ImageDescription string   `json:"imageDescription"`
	ImageTags        []string `json:"imageTags"`
	SampleLyrics     string   `json:"sampleLyrics"`
}

// handleGenerateVerses writes four-line verses inspired by an image.
func (s *Server) handleGenerateVerses(w http.ResponseWriter, r *http.Request) {
	var req versesRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if blank(req.SampleLyrics) {
		s.respondWithError(w, r, http.StatusBadRequest, "Sample lyrics are required", "", nil)
		return
	}
	if !s.requireAI(w, r) {
		return
	}

	verses, err := s.lyrics.GenerateVerses(r.Context(), lyrics.VerseRequest{
		ImageDescription: req.ImageDescription,
		ImageTags:        req.ImageTags,
		SampleLyrics:     req.SampleLyrics,
	})
	switch {
	case errors.Is(err, lyrics.ErrEmptyResponse):
		s.respondWithError(w, r, http.StatusInternalServerError, "No verses generated", "", err)
		return
	case err != nil:
		s.respondWithAIError(w, r, err, "Failed to generate verses")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"verses":  verses,
	})
}
