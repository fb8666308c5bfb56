package songs

import (
	"encoding/json"
	"fmt"

	"songforge/pkg/models"
)

// songDocument is the persisted form of a song. Files written before
// schemaVersion existed stored the registration under "blockchain".
type songDocument struct {
	models.Song
	LegacyRegistration *models.Registration `json:"blockchain,omitempty"`
}

func encodeSong(song *models.Song) ([]byte, error) {
	data, err := json.MarshalIndent(song, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode song %s: %w", song.ID, err)
	}
	return append(data, '\n'), nil
}

// decodeSong parses and validates a stored document, upgrading legacy layouts.
func decodeSong(key string, data []byte) (*models.Song, error) {
	var doc songDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w: %s: %v", ErrStorage, ErrCorrupt, key, err)
	}
	song := doc.Song

	switch {
	case song.SchemaVersion == 0:
		if song.Registration == nil {
			song.Registration = doc.LegacyRegistration
		}
		song.SchemaVersion = models.SchemaVersion
	case song.SchemaVersion > models.SchemaVersion:
		return nil, fmt.Errorf("%w: %w: %s: unsupported schema version %d", ErrStorage, ErrCorrupt, key, song.SchemaVersion)
	}

	if song.ID != key {
		return nil, fmt.Errorf("%w: %w: %s: id mismatch %q", ErrStorage, ErrCorrupt, key, song.ID)
	}
	if len(song.Versions) == 0 {
		return nil, fmt.Errorf("%w: %w: %s: no versions", ErrStorage, ErrCorrupt, key)
	}
	for i, v := range song.Versions {
		if v.Version != i+1 {
			return nil, fmt.Errorf("%w: %w: %s: version %d at position %d", ErrStorage, ErrCorrupt, key, v.Version, i+1)
		}
	}

	// The last version is always current
	song.CurrentVersion = len(song.Versions)
	if song.Authors == nil {
		song.Authors = []models.Author{}
	}
	return &song, nil
}
