// Package media reads the image, video and audio catalog from disk.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"songforge/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrFolderNotFound is returned when the media directory does not exist.
	ErrFolderNotFound = errors.New("media folder not found")
	// ErrAudioFolderNotFound is returned when the audio directory does not exist.
	ErrAudioFolderNotFound = errors.New("audio folder not found")
	// ErrNoMedia is returned when the media directory has no sidecar files.
	ErrNoMedia = errors.New("no media files found")
	// ErrNoValidMedia is returned when no sidecar pairs with an image.
	ErrNoValidMedia = errors.New("no valid media items found")
)

const (
	sidecarExt      = ".json"
	imageExt        = ".jpg"
	thumbnailSuffix = "_first_frame.jpg"
)

var (
	videoExtensions = map[string]bool{
		".mp4": true, ".webm": true, ".mov": true, ".avi": true,
		".mkv": true, ".m4v": true, ".flv": true, ".wmv": true,
	}
	audioExtensions = map[string]bool{
		".mp3": true, ".wav": true, ".ogg": true, ".m4a": true,
		".aac": true, ".flac": true, ".wma": true,
	}
)

// Counts summarizes the catalog for health reporting.
type Counts struct {
	Sidecars int `json:"sidecars"`
	Images   int `json:"images"`
	Videos   int `json:"videos"`
	Audio    int `json:"audio"`
}

// Catalog reads media directories on every call; nothing is cached.
type Catalog struct {
	mediaDir  string
	audioDir  string
	workers   int
	extractor *Extractor
	logger    *logrus.Logger
}

// NewCatalog creates a catalog over mediaDir (images, videos and sidecars)
// and audioDir. workers bounds parallel audio tag extraction.
func NewCatalog(mediaDir, audioDir string, workers int, logger *logrus.Logger) *Catalog {
	if workers <= 0 {
		workers = 4
	}
	return &Catalog{
		mediaDir:  mediaDir,
		audioDir:  audioDir,
		workers:   workers,
		extractor: NewExtractor(logger),
		logger:    logger,
	}
}

// MediaDir returns the media directory.
func (c *Catalog) MediaDir() string {
	return c.mediaDir
}

// AudioDir returns the audio directory.
func (c *Catalog) AudioDir() string {
	return c.audioDir
}

// Extractor returns the audio metadata extractor.
func (c *Catalog) Extractor() *Extractor {
	return c.extractor
}

// MediaFolderExists reports whether the media directory is present.
func (c *Catalog) MediaFolderExists() bool {
	info, err := os.Stat(c.mediaDir)
	return err == nil && info.IsDir()
}

type sidecar struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Images returns every sidecar that pairs with a .jpg of the same base name,
// in file name order.
func (c *Catalog) Images(ctx context.Context) ([]models.MediaItem, error) {
	entries, err := c.readDir(c.mediaDir, ErrFolderNotFound)
	if err != nil {
		return nil, err
	}

	present := fileSet(entries)
	sidecars := 0
	items := []models.MediaItem{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != sidecarExt {
			continue
		}
		sidecars++

		meta, err := c.readSidecar(name)
		if err != nil {
			c.logger.WithError(err).WithField("file", name).Warn("Skipping unreadable media sidecar")
			continue
		}

		image := strings.TrimSuffix(name, sidecarExt) + imageExt
		if !present[image] {
			continue
		}
		items = append(items, models.MediaItem{
			Filename:    image,
			Description: meta.Description,
			Tags:        meta.Tags,
		})
	}

	if sidecars == 0 {
		return nil, ErrNoMedia
	}
	if len(items) == 0 {
		return nil, ErrNoValidMedia
	}
	return items, nil
}

// Videos lists video files, newest first.
func (c *Catalog) Videos(ctx context.Context) ([]models.VideoFile, error) {
	entries, err := c.readDir(c.mediaDir, ErrFolderNotFound)
	if err != nil {
		return nil, err
	}

	present := fileSet(entries)
	videos := []models.VideoFile{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if entry.IsDir() || !videoExtensions[ext] {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		video := models.VideoFile{
			Filename: name,
			Path:     "media/" + name,
			Tags:     []string{},
			Size:     info.Size(),
			Modified: info.ModTime(),
		}
		if present[base+sidecarExt] {
			if meta, err := c.readSidecar(base + sidecarExt); err == nil {
				video.Description = meta.Description
				video.Tags = meta.Tags
			}
		}
		if present[base+thumbnailSuffix] {
			video.Thumbnail = "media/" + base + thumbnailSuffix
		}
		videos = append(videos, video)
	}

	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].Modified.After(videos[j].Modified)
	})
	return videos, nil
}

// Audio lists audio files, newest first, enriched with embedded tags and
// duration where they can be read.
func (c *Catalog) Audio(ctx context.Context) ([]models.AudioFile, error) {
	entries, err := c.readDir(c.audioDir, ErrAudioFolderNotFound)
	if err != nil {
		return nil, err
	}

	var files []os.DirEntry
	for _, entry := range entries {
		if !entry.IsDir() && audioExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, entry)
		}
	}

	tracks := make([]models.AudioFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, entry := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tracks[i] = c.describeAudio(entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Modified.After(tracks[j].Modified)
	})
	return tracks, nil
}

func (c *Catalog) describeAudio(entry os.DirEntry) models.AudioFile {
	name := entry.Name()
	base := strings.TrimSuffix(name, filepath.Ext(name))
	track := models.AudioFile{
		Filename: name,
		Path:     "mp3/" + name,
		Title:    base,
		Tags:     []string{},
	}
	if info, err := entry.Info(); err == nil {
		track.Size = info.Size()
		track.Modified = info.ModTime()
	}

	if meta, err := c.readSidecar(base + sidecarExt); err == nil {
		track.Description = meta.Description
		track.Tags = meta.Tags
	}

	probe := c.extractor.Probe(filepath.Join(c.audioDir, name))
	if probe.Title != "" {
		track.Title = probe.Title
	}
	track.Artist = probe.Artist
	track.Album = probe.Album
	track.Duration = probe.Duration
	return track
}

// Count tallies the catalog without parsing sidecars.
func (c *Catalog) Count(ctx context.Context) (Counts, error) {
	var counts Counts

	entries, err := c.readDir(c.mediaDir, ErrFolderNotFound)
	if err != nil {
		return counts, err
	}
	present := fileSet(entries)
	for _, entry := range entries {
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case entry.IsDir():
		case ext == sidecarExt:
			counts.Sidecars++
			if present[strings.TrimSuffix(name, filepath.Ext(name))+imageExt] {
				counts.Images++
			}
		case videoExtensions[ext]:
			counts.Videos++
		}
	}
	if err := ctx.Err(); err != nil {
		return counts, err
	}

	audio, err := c.readDir(c.audioDir, ErrAudioFolderNotFound)
	if err != nil {
		// A missing audio folder does not invalidate the media counts.
		return counts, nil
	}
	for _, entry := range audio {
		if !entry.IsDir() && audioExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			counts.Audio++
		}
	}
	return counts, nil
}

func (c *Catalog) readDir(dir string, missing error) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, missing
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	return entries, nil
}

func (c *Catalog) readSidecar(name string) (sidecar, error) {
	var meta sidecar
	data, err := os.ReadFile(filepath.Join(c.mediaDir, name))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse %s: %w", name, err)
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	return meta, nil
}

func fileSet(entries []os.DirEntry) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			set[entry.Name()] = true
		}
	}
	return set
}
