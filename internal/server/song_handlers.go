package server

import (
	"net/http"
	"strconv"
	"strings"

	"songforge/internal/songs"
	"songforge/pkg/models"

	"github.com/gorilla/mux"
)

const registrationMessage = "Song registered for blockchain ownership. Actual blockchain integration pending."

type saveSongRequest struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Lyrics             string          `json:"lyrics"`
	EnhancedLyrics     string          `json:"enhancedLyrics"`
	SaveAsNewVersion   bool            `json:"saveAsNewVersion"`
	VersionNotes       string          `json:"versionNotes"`
	Authors            []models.Author `json:"authors"`
	RegisterBlockchain bool            `json:"registerBlockchain"`
}

// songView is the served form of a song. The registration is repeated under
// "blockchain", the key the registry page reads.
type songView struct {
	*models.Song
	Blockchain *models.Registration `json:"blockchain,omitempty"`
}

func viewSong(song *models.Song) songView {
	return songView{Song: song, Blockchain: song.Registration}
}

type saveSongResponse struct {
	Success              bool                 `json:"success"`
	Song                 songView             `json:"song"`
	CurrentVersion       models.Version       `json:"currentVersion"`
	IsNewVersion         bool                 `json:"isNewVersion"`
	BlockchainRegistered bool                 `json:"blockchainRegistered"`
	Blockchain           *models.Registration `json:"blockchain"`
	RegistrationError    string               `json:"registrationError,omitempty"`
}

// handleSaveSong creates a song or saves a new revision of an existing one.
func (s *Server) handleSaveSong(w http.ResponseWriter, r *http.Request) {
	var req saveSongRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	res, err := s.songs.Save(r.Context(), songs.SaveInput{
		ID:              req.ID,
		Title:           req.Title,
		Lyrics:          req.Lyrics,
		EnhancedLyrics:  req.EnhancedLyrics,
		Notes:           req.VersionNotes,
		Authors:         req.Authors,
		ForceNewVersion: req.SaveAsNewVersion,
		Register:        req.RegisterBlockchain,
	})
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}

	resp := saveSongResponse{
		Success:              true,
		Song:                 viewSong(res.Song),
		CurrentVersion:       res.Applied,
		IsNewVersion:         res.WasNewVersion,
		BlockchainRegistered: res.Registration != nil,
		Blockchain:           res.Registration,
	}
	if res.RegistrationErr != nil {
		resp.RegistrationError = res.RegistrationErr.Error()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleListSongs returns song summaries, most recently updated first.
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.songs.List(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"songs":   summaries,
	})
}

// handleGetSong returns a song with its current version, or the version
// named by ?version=N.
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	id := songID(r)
	if id == "" {
		s.respondWithError(w, r, http.StatusBadRequest, "Song ID is required", "", nil)
		return
	}

	if raw := r.URL.Query().Get("version"); raw != "" {
		// Unparsable numbers name no version and answer 404
		number, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			number = 0
		}
		song, version, err := s.songs.GetVersion(r.Context(), id, number)
		if err != nil {
			s.respondWithServiceError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"song":    viewSong(song),
			"version": version,
		})
		return
	}

	song, err := s.songs.Get(r.Context(), id)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"song":           viewSong(song),
		"currentVersion": song.Latest(),
	})
}

// handleDeleteSong removes a song. The id comes from the path, the query
// string or a JSON body.
func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	id := songID(r)
	if id == "" && r.ContentLength != 0 {
		var req struct {
			ID string `json:"id"`
		}
		if !s.decodeJSON(w, r, &req) {
			return
		}
		id = req.ID
	}
	if blank(id) {
		s.respondWithError(w, r, http.StatusBadRequest, "Song ID is required", "", nil)
		return
	}

	if err := s.songs.Delete(r.Context(), id); err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Song deleted successfully",
	})
}

// handleRegister writes a registration record for submitted lyrics.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	reg, err := s.registry.Register(r.Context(), req)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"registration": reg,
		"message":      registrationMessage,
	})
}

// handleGetRegistration reads a registration record back.
func (s *Server) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := s.registry.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"registration": reg,
	})
}

func songID(r *http.Request) string {
	if id := mux.Vars(r)["id"]; id != "" {
		return id
	}
	return r.URL.Query().Get("id")
}
