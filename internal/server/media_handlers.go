package server

import (
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"songforge/internal/media"
	"songforge/internal/scoring"
)

// handleFindImages ranks catalog images by how well they fit the lyrics.
func (s *Server) handleFindImages(w http.ResponseWriter, r *http.Request) {
	var req lyricsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if blank(req.Lyrics) {
		s.respondWithError(w, r, http.StatusBadRequest, "Lyrics are required", "", nil)
		return
	}

	items, err := s.catalog.Images(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}

	analysis := s.lyrics.AnalyzeThemes(r.Context(), req.Lyrics)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"matchedImages":  scoring.Rank(req.Lyrics, analysis.Analysis, items, findImagesLimit),
		"totalImages":    len(items),
		"analysis":       analysis.Analysis,
		"analysisSource": analysis.Source,
	})
}

type searchRequest struct {
	Query string `json:"query"`
}

// handleSearchImages matches images against a free-text query.
func (s *Server) handleSearchImages(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if blank(req.Query) {
		s.respondWithError(w, r, http.StatusBadRequest, "Search query is required", "", nil)
		return
	}

	items, err := s.catalog.Images(r.Context())
	if err != nil && !errors.Is(err, media.ErrNoValidMedia) {
		s.respondWithServiceError(w, r, err)
		return
	}

	matches := scoring.Search(req.Query, items, searchLimit)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"matchedImages": matches,
		"totalFound":    len(matches),
	})
}

// handleGetVideos lists videos in the media folder.
func (s *Server) handleGetVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.catalog.Videos(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"videos":  videos,
		"total":   len(videos),
	})
}

// handleGetAudio lists tracks in the audio folder.
func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.catalog.Audio(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"audioFiles": tracks,
		"total":      len(tracks),
	})
}

// audioFileHandler serves files from the audio folder with audio MIME types
// the platform table may not know. Range requests are handled by ServeContent.
func (s *Server) audioFileHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if strings.Contains(name[1:], "/") || !media.IsAudioFile(name) {
			s.respondWithError(w, r, http.StatusNotFound, "Not found", "", nil)
			return
		}

		f, err := os.Open(filepath.Join(s.catalog.AudioDir(), filepath.FromSlash(name[1:])))
		if err != nil {
			s.respondWithError(w, r, http.StatusNotFound, "Not found", "", nil)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			s.respondWithError(w, r, http.StatusNotFound, "Not found", "", nil)
			return
		}

		w.Header().Set("Content-Type", media.ContentType(name))
		w.Header().Set("Cache-Control", "public, max-age=3600")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}
