// Package registry writes local placeholder registration records for lyrics.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"songforge/internal/kv"
	"songforge/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	statusRegistered = "registered"
	networkPending   = "pending"
	recordVersion    = "1.0"
)

var (
	// ErrValidation is returned when songId or lyrics are missing.
	ErrValidation = errors.New("songId and lyrics are required")
	// ErrNotFound is returned for unknown registration ids.
	ErrNotFound = errors.New("registration not found")
)

// Service computes lyric hashes and stores registration records.
type Service struct {
	store  kv.Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewService creates a registration service backed by store.
func NewService(store kv.Store, logger *logrus.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// HashLyrics returns the hex SHA-256 digest of the lyrics text.
func HashLyrics(lyrics string) string {
	sum := sha256.Sum256([]byte(lyrics))
	return hex.EncodeToString(sum[:])
}

// Register creates and stores an immutable registration record.
func (s *Service) Register(ctx context.Context, req models.RegistrationRequest) (*models.Registration, error) {
	if strings.TrimSpace(req.SongID) == "" || strings.TrimSpace(req.Lyrics) == "" {
		return nil, ErrValidation
	}

	now := s.now()
	hash := HashLyrics(req.Lyrics)
	authors := req.Authors
	if authors == nil {
		authors = []models.Author{}
	}
	date := now.Format(time.RFC3339)

	reg := &models.Registration{
		ID:         "reg_" + uuid.NewString(),
		SongID:     req.SongID,
		LyricsHash: hash,
		Title:      req.Title,
		Authors:    authors,
		Timestamp:  now.Unix(),
		Date:       date,
		Status:     statusRegistered,
		Metadata: models.RegistrationMetadata{
			SongID:     req.SongID,
			Title:      req.Title,
			LyricsHash: hash,
			Authors:    authors,
			Timestamp:  now.Unix(),
			Date:       date,
			Version:    recordVersion,
		},
		Blockchain: models.LedgerPlaceholder{Network: networkPending},
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode registration: %w", err)
	}
	if err := s.store.Put(ctx, reg.ID, data); err != nil {
		return nil, fmt.Errorf("failed to store registration: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"song_id":         reg.SongID,
		"lyrics_hash":     hash,
	}).Info("Song registered")

	return reg, nil
}

// Get reads a stored registration record.
func (s *Service) Get(ctx context.Context, id string) (*models.Registration, error) {
	data, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) || errors.Is(err, kv.ErrInvalidKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	var reg models.Registration
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to decode registration %s: %w", id, err)
	}
	return &reg, nil
}

// Delete removes a registration record. It is used to roll back a
// registration whose song could not be saved.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, kv.ErrNotFound) || errors.Is(err, kv.ErrInvalidKey) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	s.logger.WithField("registration_id", id).Info("Registration removed")
	return nil
}
