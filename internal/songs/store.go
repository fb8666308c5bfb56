// Package songs implements the versioned song store.
package songs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"songforge/internal/kv"
	"songforge/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const previewLength = 100

// Registrar records a registration for saved lyrics.
type Registrar interface {
	Register(ctx context.Context, req models.RegistrationRequest) (*models.Registration, error)
	Delete(ctx context.Context, id string) error
}

// Store owns the mapping from song id to persisted document.
type Store struct {
	kv        kv.Store
	registrar Registrar
	logger    *logrus.Logger
	locks     *keyLocks
	now       func() time.Time
	newID     func() string
}

// Option configures a Store
type Option func(*Store)

// WithRegistrar enables registration on save.
func WithRegistrar(r Registrar) Option {
	return func(s *Store) { s.registrar = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides song id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// NewStore creates a song store on top of a key-value backend.
func NewStore(backend kv.Store, logger *logrus.Logger, opts ...Option) *Store {
	s := &Store{
		kv:     backend,
		logger: logger,
		locks:  newKeyLocks(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns a fresh song id.
func NewID() string {
	return "song_" + uuid.NewString()
}

// CreateInput holds the fields for a new song
type CreateInput struct {
	Title   string
	Lyrics  string
	Authors []models.Author
}

// SaveInput holds the fields of a save request. An empty ID creates a song.
type SaveInput struct {
	ID              string
	Title           string
	Lyrics          string
	EnhancedLyrics  string
	Notes           string
	Authors         []models.Author
	ForceNewVersion bool
	Register        bool
}

// SaveResult describes the outcome of a save
type SaveResult struct {
	Song            *models.Song
	Applied         models.Version
	WasNewVersion   bool
	Registration    *models.Registration
	RegistrationErr error
}

// Create stores a new song with a single version.
func (s *Store) Create(ctx context.Context, in CreateInput) (*models.Song, error) {
	res, err := s.Save(ctx, SaveInput{Title: in.Title, Lyrics: in.Lyrics, Authors: in.Authors})
	if err != nil {
		return nil, err
	}
	return res.Song, nil
}

// Save creates or updates a song, appending a version when forced, when the
// song has none, or when the lyrics differ from the current version.
func (s *Store) Save(ctx context.Context, in SaveInput) (*SaveResult, error) {
	if strings.TrimSpace(in.Lyrics) == "" {
		return nil, invalid("lyrics", "Lyrics are required")
	}
	authors, err := normalizeAuthors(in.Authors)
	if err != nil {
		return nil, err
	}
	in.Authors = authors

	now := s.now()

	var song *models.Song
	if in.ID == "" {
		id := s.newID()
		unlock := s.locks.lock(id)
		defer unlock()

		song = &models.Song{
			SchemaVersion: models.SchemaVersion,
			ID:            id,
			Authors:       []models.Author{},
			Versions:      []models.Version{},
			Created:       now,
		}
	} else {
		if !kv.ValidKey(in.ID) {
			return nil, invalid("id", "Invalid song id")
		}
		unlock := s.locks.lock(in.ID)
		defer unlock()

		song, err = s.load(ctx, in.ID)
		if err != nil {
			return nil, err
		}
	}

	applied, appended := applySave(song, in, now)
	result := &SaveResult{Applied: applied, WasNewVersion: appended}

	if in.Register {
		reg, err := s.register(ctx, song, in.Lyrics)
		if err != nil {
			s.logger.WithError(err).WithField("song_id", song.ID).Warn("Song registration failed; saving without it")
			result.RegistrationErr = err
		} else {
			song.Registration = reg
			result.Registration = reg
		}
	}

	if err := s.persist(ctx, song); err != nil {
		if result.Registration != nil {
			s.discardRegistration(ctx, result.Registration.ID)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"song_id":     song.ID,
		"version":     applied.Version,
		"new_version": appended,
	}).Info("Song saved")

	result.Song = song
	return result, nil
}

// applySave applies the append-or-overwrite rule and returns the touched version.
func applySave(song *models.Song, in SaveInput, now time.Time) (models.Version, bool) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = models.DefaultSongTitle
	}
	song.Title = title

	if len(in.Authors) > 0 {
		song.Authors = in.Authors
	}

	last := song.Latest()
	appended := in.ForceNewVersion || last == nil || last.Lyrics != in.Lyrics

	if appended {
		song.Versions = append(song.Versions, models.Version{
			Version:        len(song.Versions) + 1,
			Lyrics:         in.Lyrics,
			EnhancedLyrics: in.EnhancedLyrics,
			Notes:          in.Notes,
			Created:        now,
		})
	} else {
		last.Lyrics = in.Lyrics
		last.EnhancedLyrics = in.EnhancedLyrics
		if in.Notes != "" {
			last.Notes = in.Notes
		}
		last.Created = now
	}

	song.CurrentVersion = len(song.Versions)
	song.Updated = now
	return *song.Latest(), appended
}

func (s *Store) register(ctx context.Context, song *models.Song, lyrics string) (*models.Registration, error) {
	if s.registrar == nil {
		return nil, ErrRegistrationUnavailable
	}
	return s.registrar.Register(ctx, models.RegistrationRequest{
		SongID:  song.ID,
		Lyrics:  lyrics,
		Title:   song.Title,
		Authors: song.Authors,
	})
}

// discardRegistration removes a record whose song was never written.
func (s *Store) discardRegistration(ctx context.Context, id string) {
	if err := s.registrar.Delete(ctx, id); err != nil {
		s.logger.WithError(err).WithField("registration_id", id).Error("Failed to remove orphaned registration")
	}
}

// Get returns the song with its current version.
func (s *Store) Get(ctx context.Context, id string) (*models.Song, error) {
	if !kv.ValidKey(id) {
		return nil, invalid("id", "Invalid song id")
	}
	return s.load(ctx, id)
}

// GetVersion returns the song together with the requested version.
func (s *Store) GetVersion(ctx context.Context, id string, number int) (*models.Song, *models.Version, error) {
	song, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	v := song.FindVersion(number)
	if v == nil {
		return nil, nil, fmt.Errorf("%w: song %s has no version %d", ErrVersionNotFound, id, number)
	}
	return song, v, nil
}

// List returns summaries of all readable songs, most recently updated first.
// Unreadable documents are skipped and logged.
func (s *Store) List(ctx context.Context) ([]models.SongSummary, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	summaries := make([]models.SongSummary, 0, len(keys))
	for _, key := range keys {
		song, err := s.load(ctx, key)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				s.logger.WithError(err).WithField("song_id", key).Warn("Skipping unreadable song")
			}
			continue
		}
		summaries = append(summaries, summarize(song))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].Updated.Equal(summaries[j].Updated) {
			return summaries[i].Updated.After(summaries[j].Updated)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

// Delete removes a song permanently.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !kv.ValidKey(id) {
		return invalid("id", "Invalid song id")
	}
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.kv.Delete(ctx, id); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.logger.WithField("song_id", id).Info("Song deleted")
	return nil
}

// Count returns the number of stored song documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return len(keys), nil
}

func (s *Store) load(ctx context.Context, id string) (*models.Song, error) {
	data, err := s.kv.Get(ctx, id)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return decodeSong(id, data)
}

func (s *Store) persist(ctx context.Context, song *models.Song) error {
	data, err := encodeSong(song)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if err := s.kv.Put(ctx, song.ID, data); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

func summarize(song *models.Song) models.SongSummary {
	var lyrics string
	if latest := song.Latest(); latest != nil {
		lyrics = latest.Lyrics
	}
	return models.SongSummary{
		ID:             song.ID,
		Title:          song.Title,
		Created:        song.Created,
		Updated:        song.Updated,
		Preview:        preview(lyrics),
		VersionCount:   len(song.Versions),
		CurrentVersion: song.CurrentVersion,
	}
}

func preview(lyrics string) string {
	runes := []rune(lyrics)
	if len(runes) <= previewLength {
		return lyrics
	}
	return string(runes[:previewLength]) + "..."
}

// normalizeAuthors trims author fields and defaults missing roles.
func normalizeAuthors(authors []models.Author) ([]models.Author, error) {
	if len(authors) == 0 {
		return nil, nil
	}
	out := make([]models.Author, 0, len(authors))
	for i, a := range authors {
		a.Name = strings.TrimSpace(a.Name)
		a.Email = strings.TrimSpace(a.Email)
		a.Role = strings.TrimSpace(a.Role)
		if a.Name == "" {
			return nil, invalid("authors", "Author %d is missing a name", i+1)
		}
		switch a.Role {
		case "":
			a.Role = models.RoleContributor
		case models.RolePrimary, models.RoleCoWriter, models.RoleContributor:
		default:
			return nil, invalid("authors", "Author %q has unknown role %q", a.Name, a.Role)
		}
		out = append(out, a)
	}
	return out, nil
}
