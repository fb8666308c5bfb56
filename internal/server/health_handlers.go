package server

import (
	"net/http"
	"time"

	"songforge/internal/media"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status      string                 `json:"status"`
	OpenAI      string                 `json:"openai"`
	MediaFolder string                 `json:"media_folder"`
	MediaFiles  int                    `json:"media_files"`
	Media       *media.Counts          `json:"media,omitempty"`
	Songs       int                    `json:"songs"`
	Storage     string                 `json:"storage"`
	TunnelURL   string                 `json:"tunnel_url,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// handleHealth reports configuration and storage status. Storage failures
// make the server unhealthy; missing media or AI configuration do not.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:      "ok",
		OpenAI:      "not configured",
		MediaFolder: "missing",
		Storage:     s.config.Storage.Backend,
		TunnelURL:   s.tunnel.PublicURL(),
		Timestamp:   s.now().UTC(),
		Details:     make(map[string]interface{}),
	}
	if s.ai.Configured() {
		health.OpenAI = "configured"
	}

	if s.catalog.MediaFolderExists() {
		health.MediaFolder = "exists"
		counts, err := s.mediaCounts(r)
		if err != nil {
			health.Details["media_error"] = err.Error()
		} else {
			health.MediaFiles = counts.Sidecars
			health.Media = &counts
		}
	}

	count, err := s.songs.Count(r.Context())
	if err != nil {
		health.Status = "unhealthy"
		health.Details["storage_error"] = err.Error()
	} else {
		health.Songs = count
	}

	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	if len(health.Details) == 0 {
		health.Details = nil
	}
	s.respondJSON(w, status, health)
}

func (s *Server) mediaCounts(r *http.Request) (media.Counts, error) {
	if s.watcher != nil {
		return s.watcher.Counts(), nil
	}
	return s.catalog.Count(r.Context())
}
