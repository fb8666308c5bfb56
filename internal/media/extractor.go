package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// fallbackBitrate is assumed when an MP3 has no decodable frames.
const fallbackBitrate = 192000

// Probe is what could be read from an audio file. Zero values mean unknown.
type Probe struct {
	Title    string
	Artist   string
	Album    string
	Duration int // seconds
}

// Extractor reads embedded tags and durations from audio files
type Extractor struct {
	logger *logrus.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(logger *logrus.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Probe reads tags and duration from path. Failures are logged at debug
// level and leave the corresponding fields empty.
func (e *Extractor) Probe(path string) Probe {
	start := time.Now()
	var probe Probe

	duration, err := e.calculateDuration(path)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"file_path": path,
			"error":     err.Error(),
		}).Debug("Failed to calculate duration")
	}
	probe.Duration = duration

	f, err := os.Open(path)
	if err != nil {
		return probe
	}
	defer f.Close()

	metadata, err := tag.ReadFrom(f)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"file_path": path,
			"error":     err.Error(),
		}).Debug("No readable tags")
		return probe
	}
	probe.Title = strings.TrimSpace(metadata.Title())
	probe.Artist = strings.TrimSpace(metadata.Artist())
	probe.Album = strings.TrimSpace(metadata.Album())

	e.logger.WithFields(logrus.Fields{
		"file_path":       path,
		"title":           probe.Title,
		"duration":        probe.Duration,
		"processing_time": time.Since(start),
	}).Debug("Extracted audio metadata")
	return probe
}

// calculateDuration returns the duration of an audio file in seconds
func (e *Extractor) calculateDuration(path string) (int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3":
		return e.durationMP3(path)
	case ".flac":
		return e.durationFLAC(path)
	case ".wav":
		return e.durationWAV(path)
	case ".m4a":
		return e.durationM4A(path)
	default:
		return 0, fmt.Errorf("unsupported format: %s", ext)
	}
}

// durationMP3 sums frame durations, estimating from size if no frame decodes.
func (e *Extractor) durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped, frames int
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return estimateFromSize(f, fallbackBitrate)
			}
			break
		}
		total += fr.Duration()
		frames++
	}
	return int(total.Seconds()), nil
}

// durationFLAC reads the STREAMINFO block.
func (e *Extractor) durationFLAC(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return 0, errors.New("flac stream missing sample info")
	}
	return int(float64(si.NSamples)/float64(si.SampleRate) + 0.5), nil
}

// durationWAV reads the header and derives the frame count from file size.
func (e *Extractor) durationWAV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, errors.New("invalid wav file")
	}
	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if dec.SampleRate == 0 || frameSize <= 0 {
		return 0, errors.New("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	pcmBytes := st.Size() - 44
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	return int(float64(pcmBytes/frameSize)/float64(dec.SampleRate) + 0.5), nil
}

// durationM4A finds moov/mvhd and reads its timescale and duration.
func (e *Extractor) durationM4A(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	head := make([]byte, 8)
	for {
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := int64(binary.BigEndian.Uint32(head[0:4]))
		if size < 8 {
			return 0, errors.New("invalid atom size")
		}
		if string(head[4:8]) != "moov" {
			if _, err := f.Seek(size-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			continue
		}

		for read := int64(8); read < size; {
			if _, err := io.ReadFull(f, head); err != nil {
				return 0, err
			}
			subSize := int64(binary.BigEndian.Uint32(head[0:4]))
			if subSize < 8 {
				return 0, errors.New("invalid sub-atom size")
			}
			if string(head[4:8]) == "mvhd" {
				return readMVHD(f)
			}
			if _, err := f.Seek(subSize-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			read += subSize
		}
		return 0, errors.New("mvhd atom not found")
	}
}

func readMVHD(r io.ReadSeeker) (int, error) {
	version := make([]byte, 1)
	if _, err := io.ReadFull(r, version); err != nil {
		return 0, err
	}
	// flags, then creation and modification times
	skip := int64(3 + 4 + 4)
	if version[0] == 1 {
		skip = 3 + 8 + 8
	}
	if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
		return 0, err
	}

	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	timescale := binary.BigEndian.Uint32(buf[0:4])
	units := binary.BigEndian.Uint32(buf[4:8])
	if timescale == 0 {
		return 0, errors.New("invalid timescale")
	}
	return int(float64(units)/float64(timescale) + 0.5), nil
}

func estimateFromSize(f *os.File, bitrate int64) (int, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return int(st.Size() * 8 / bitrate), nil
}

// ContentType returns the MIME type for an audio file
func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".aac":
		return "audio/aac"
	case ".wma":
		return "audio/x-ms-wma"
	default:
		return ""
	}
}

// IsAudioFile reports whether path has a supported audio extension
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}
