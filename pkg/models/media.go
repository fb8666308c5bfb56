package models

import "time"

// MediaItem is an image described by a JSON sidecar file
type MediaItem struct {
	Filename    string   `json:"filename"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// VideoFile represents a video asset in the media folder
type VideoFile struct {
	Filename    string    `json:"filename"`
	Path        string    `json:"path"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Thumbnail   string    `json:"thumbnail"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
}

// AudioFile represents a track in the audio folder
type AudioFile struct {
	Filename    string    `json:"filename"`
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist,omitempty"`
	Album       string    `json:"album,omitempty"`
	Duration    int       `json:"duration"` // in seconds
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
}
