// Package server exposes the song store, lyric tools and media catalog over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"songforge/internal/ai"
	"songforge/internal/config"
	"songforge/internal/lyrics"
	"songforge/internal/media"
	"songforge/internal/ngrok"
	"songforge/internal/registry"
	"songforge/internal/songs"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
	findImagesLimit = 10
	searchLimit     = 20
)

// Deps are the components the server routes requests to. Watcher and Tunnel
// may be nil.
type Deps struct {
	Songs    *songs.Store
	Registry *registry.Service
	Catalog  *media.Catalog
	Watcher  *media.Watcher
	Lyrics   *lyrics.Service
	AI       ai.Completer
	Tunnel   *ngrok.Service
	Logger   *logrus.Logger
}

// Server is the songwriting HTTP server
type Server struct {
	config   *config.Config
	songs    *songs.Store
	registry *registry.Service
	catalog  *media.Catalog
	watcher  *media.Watcher
	lyrics   *lyrics.Service
	ai       ai.Completer
	tunnel   *ngrok.Service
	logger   *logrus.Logger
	now      func() time.Time
}

// New creates a server instance
func New(cfg *config.Config, deps Deps) *Server {
	return &Server{
		config:   cfg,
		songs:    deps.Songs,
		registry: deps.Registry,
		catalog:  deps.Catalog,
		watcher:  deps.Watcher,
		lyrics:   deps.Lyrics,
		ai:       deps.AI,
		tunnel:   deps.Tunnel,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Handler returns the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	s.setupRoutes(router)

	var h http.Handler = router
	if s.config.Server.EnableCORS {
		h = cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
		}).Handler(h)
	}
	h = s.requestLoggingMiddleware(h)
	return s.panicRecoveryMiddleware(h)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.GetAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.GetAddress(), err)
	}

	httpServer := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	localAddress := "http://" + listener.Addr().String()
	s.logger.WithFields(logrus.Fields{
		"address":   localAddress,
		"media_dir": s.catalog.MediaDir(),
		"storage":   s.config.Storage.Backend,
		"openai":    s.ai.Configured(),
	}).Info("Songforge server started")

	if err := s.tunnel.StartTunnel(ctx, localAddress); err != nil {
		s.logger.WithError(err).Warn("Could not start ngrok tunnel")
	}

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.tunnel.Stop(); err != nil {
		s.logger.WithError(err).Warn("Error stopping ngrok tunnel")
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("Server shutdown complete")
	return nil
}

func (s *Server) setupRoutes(r *mux.Router) {
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.respondWithError(w, req, http.StatusMethodNotAllowed, "Method not allowed", "", nil)
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.respondWithError(w, req, http.StatusNotFound, "Not found", "", nil)
	})

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/health.php", s.handleHealth).Methods(http.MethodGet)

	// Songs
	for _, path := range []string{"/songs", "/save-song", "/api/save-song.php"} {
		r.HandleFunc(path, s.handleSaveSong).Methods(http.MethodPost)
	}
	r.HandleFunc("/songs", s.handleListSongs).Methods(http.MethodGet)
	r.HandleFunc("/api/get-songs.php", s.handleListSongs).Methods(http.MethodGet)
	r.HandleFunc("/songs/{id}", s.handleGetSong).Methods(http.MethodGet)
	r.HandleFunc("/api/get-song.php", s.handleGetSong).Methods(http.MethodGet)
	r.HandleFunc("/songs/{id}", s.handleDeleteSong).Methods(http.MethodDelete)
	r.HandleFunc("/songs/{id}/delete", s.handleDeleteSong).Methods(http.MethodPost)
	r.HandleFunc("/api/delete-song.php", s.handleDeleteSong).Methods(http.MethodPost, http.MethodDelete)

	// Registrations
	r.HandleFunc("/registrations", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/blockchain-register.php", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/registrations/{id}", s.handleGetRegistration).Methods(http.MethodGet)

	// Lyric tools
	r.HandleFunc("/api/enhance-lyrics.php", s.handleEnhanceLyrics).Methods(http.MethodPost)
	r.HandleFunc("/api/enhance-with-rhyme.php", s.handleEnhanceWithRhyme).Methods(http.MethodPost)
	r.HandleFunc("/api/generate-verses.php", s.handleGenerateVerses).Methods(http.MethodPost)

	// Media
	r.HandleFunc("/api/find-images.php", s.handleFindImages).Methods(http.MethodPost)
	r.HandleFunc("/api/search-images.php", s.handleSearchImages).Methods(http.MethodPost)
	r.HandleFunc("/api/get-videos.php", s.handleGetVideos).Methods(http.MethodGet)
	r.HandleFunc("/api/get-audio.php", s.handleGetAudio).Methods(http.MethodGet)

	// Static files
	r.PathPrefix("/media/").Handler(
		http.StripPrefix("/media/", http.FileServer(http.Dir(s.catalog.MediaDir()))),
	).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/mp3/").Handler(
		http.StripPrefix("/mp3/", s.audioFileHandler()),
	).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/").Handler(
		http.FileServer(http.Dir(s.config.Server.StaticDir)),
	).Methods(http.MethodGet, http.MethodHead)
}
