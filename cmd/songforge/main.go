package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"songforge/internal/ai"
	"songforge/internal/cache"
	"songforge/internal/config"
	"songforge/internal/kv"
	"songforge/internal/logging"
	"songforge/internal/lyrics"
	"songforge/internal/media"
	"songforge/internal/ngrok"
	"songforge/internal/registry"
	"songforge/internal/server"
	"songforge/internal/songs"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"

	// Basic logger until the configured one exists
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		logrus.WithError(err).Fatal("Error configuring logging")
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	songBackend, regBackend, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing storage")
	}

	reg := registry.NewService(regBackend, logger)
	songStore := songs.NewStore(songBackend, logger, songs.WithRegistrar(reg))

	client := ai.NewClient(ai.Config{
		APIKey:         cfg.AI.APIKey,
		BaseURL:        cfg.AI.BaseURL,
		Model:          cfg.AI.Model,
		Timeout:        cfg.AITimeout(),
		ConnectTimeout: cfg.AIConnectTimeout(),
	}, logger)
	if !client.Configured() {
		logger.Warn("OpenAI API key is not set; lyric tools are disabled and image matching uses keywords")
	}

	analyses := cache.NewAnalysisCache(cfg.AnalysisCacheTTL())
	defer analyses.Stop()

	catalog := media.NewCatalog(cfg.Media.MediaDir, cfg.Media.AudioDir, cfg.Media.AudioWorkers, logger)
	if !catalog.MediaFolderExists() {
		logger.WithField("media_dir", cfg.Media.MediaDir).Warn("Media folder does not exist; image and video endpoints will return 404")
	}

	var watcher *media.Watcher
	if cfg.Media.WatchForChanges {
		watcher, err = media.NewWatcher(ctx, catalog, logger)
		if err != nil {
			logger.WithError(err).Warn("Media watcher disabled")
		} else {
			go watcher.Run(ctx)
		}
	}

	tunnel, err := ngrok.NewService(cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Warn("ngrok tunnel disabled")
	}

	srv := server.New(cfg, server.Deps{
		Songs:    songStore,
		Registry: reg,
		Catalog:  catalog,
		Watcher:  watcher,
		Lyrics:   lyrics.NewService(client, analyses, logger),
		AI:       client,
		Tunnel:   tunnel,
		Logger:   logger,
	})

	if err := srv.Run(ctx); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}
	logger.Info("Server stopped")
}

// openStorage returns the song and registration backends for the
// configured storage kind.
func openStorage(ctx context.Context, cfg config.StorageConfig) (kv.Store, kv.Store, error) {
	if cfg.Backend == config.BackendS3 {
		opts := kv.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		}
		songOpts, regOpts := opts, opts
		songOpts.Prefix = cfg.S3.Prefix + "songs/"
		regOpts.Prefix = cfg.S3.Prefix + "registrations/"

		songBackend, err := kv.NewS3Store(ctx, songOpts)
		if err != nil {
			return nil, nil, err
		}
		regBackend, err := kv.NewS3Store(ctx, regOpts)
		if err != nil {
			return nil, nil, err
		}
		return songBackend, regBackend, nil
	}

	songBackend, err := kv.NewFileStore(cfg.SongsDir)
	if err != nil {
		return nil, nil, err
	}
	regBackend, err := kv.NewFileStore(cfg.RegistrationsDir)
	if err != nil {
		return nil, nil, err
	}
	return songBackend, regBackend, nil
}
