package models

import "time"

// SchemaVersion is the current layout version of persisted song documents.
const SchemaVersion = 1

// DefaultSongTitle is used when a song is saved without a title.
const DefaultSongTitle = "Untitled Song"

// Author roles
const (
	RolePrimary     = "primary"
	RoleCoWriter    = "co-writer"
	RoleContributor = "contributor"
)

// Author represents a credited writer of a song
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// Version represents one lyric snapshot within a song
type Version struct {
	Version        int       `json:"version"`
	Lyrics         string    `json:"lyrics"`
	EnhancedLyrics string    `json:"enhancedLyrics"`
	Notes          string    `json:"notes"`
	Created        time.Time `json:"created"`
}

// Song represents a titled, versioned lyric document
type Song struct {
	SchemaVersion  int           `json:"schemaVersion"`
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Authors        []Author      `json:"authors"`
	Versions       []Version     `json:"versions"`
	CurrentVersion int           `json:"currentVersion"`
	Created        time.Time     `json:"created"`
	Updated        time.Time     `json:"updated"`
	Registration   *Registration `json:"registration,omitempty"`
}

// Latest returns the current version of the song, or nil if it has none.
func (s *Song) Latest() *Version {
	if len(s.Versions) == 0 {
		return nil
	}
	return &s.Versions[len(s.Versions)-1]
}

// FindVersion returns the version with the given number, or nil.
func (s *Song) FindVersion(number int) *Version {
	for i := range s.Versions {
		if s.Versions[i].Version == number {
			return &s.Versions[i]
		}
	}
	return nil
}

// SongSummary is the listing view of a song
type SongSummary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Created        time.Time `json:"created"`
	Updated        time.Time `json:"updated"`
	Preview        string    `json:"preview"`
	VersionCount   int       `json:"versionCount"`
	CurrentVersion int       `json:"currentVersion"`
}

// Registration is a local placeholder record for a future ledger write
type Registration struct {
	ID         string               `json:"id"`
	SongID     string               `json:"songId"`
	LyricsHash string               `json:"lyricsHash"`
	Title      string               `json:"title"`
	Authors    []Author             `json:"authors"`
	Timestamp  int64                `json:"timestamp"`
	Date       string               `json:"date"`
	Status     string               `json:"status"`
	Metadata   RegistrationMetadata `json:"metadata"`
	Blockchain LedgerPlaceholder    `json:"blockchain"`
}

// RegistrationMetadata mirrors the registered content for later anchoring
type RegistrationMetadata struct {
	SongID     string   `json:"songId"`
	Title      string   `json:"title"`
	LyricsHash string   `json:"lyricsHash"`
	Authors    []Author `json:"authors"`
	Timestamp  int64    `json:"timestamp"`
	Date       string   `json:"date"`
	Version    string   `json:"version"`
}

// LedgerPlaceholder holds chain fields that stay empty until a real ledger exists
type LedgerPlaceholder struct {
	Network         string  `json:"network"`
	TransactionHash *string `json:"transactionHash"`
	BlockNumber     *int64  `json:"blockNumber"`
	IPFSHash        *string `json:"ipfsHash"`
	ContractAddress *string `json:"contractAddress"`
}

// RegistrationRequest carries the content to register for a song
type RegistrationRequest struct {
	SongID  string   `json:"songId"`
	Lyrics  string   `json:"lyrics"`
	Title   string   `json:"title"`
	Authors []Author `json:"authors"`
}
