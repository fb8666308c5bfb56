package media

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mod, mod))
}

// writeWAV writes a mono 16-bit 8 kHz PCM file of the given length.
func writeWAV(t *testing.T, path string, seconds int) {
	t.Helper()
	const rate, channels, bits = 8000, 1, 16
	dataSize := uint32(seconds * rate * channels * bits / 8)

	header := make([]byte, 44)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], 36+dataSize)
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1)
	binary.LittleEndian.PutUint16(header[22:], channels)
	binary.LittleEndian.PutUint32(header[24:], rate)
	binary.LittleEndian.PutUint32(header[28:], rate*channels*bits/8)
	binary.LittleEndian.PutUint16(header[32:], channels*bits/8)
	binary.LittleEndian.PutUint16(header[34:], bits)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], dataSize)

	data := append(header, make([]byte, dataSize)...)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newTestCatalog(t *testing.T) (*Catalog, string, string) {
	t.Helper()
	root := t.TempDir()
	mediaDir := filepath.Join(root, "media")
	audioDir := filepath.Join(root, "mp3")
	require.NoError(t, os.Mkdir(mediaDir, 0o755))
	require.NoError(t, os.Mkdir(audioDir, 0o755))
	return NewCatalog(mediaDir, audioDir, 2, quietLogger()), mediaDir, audioDir
}

func TestImages(t *testing.T) {
	c, mediaDir, _ := newTestCatalog(t)

	writeFile(t, mediaDir, "a.json", `{"description":"A starry night","tags":["night","stars"]}`)
	writeFile(t, mediaDir, "a.jpg", "jpg")
	writeFile(t, mediaDir, "b.json", `{"description": broken`)
	writeFile(t, mediaDir, "b.jpg", "jpg")
	writeFile(t, mediaDir, "c.json", `{"description":"no image"}`)
	writeFile(t, mediaDir, "d.json", `{"description":"City street"}`)
	writeFile(t, mediaDir, "d.jpg", "jpg")

	items, err := c.Images(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "a.jpg", items[0].Filename)
	assert.Equal(t, "A starry night", items[0].Description)
	assert.Equal(t, []string{"night", "stars"}, items[0].Tags)
	assert.Equal(t, "d.jpg", items[1].Filename)
	assert.Equal(t, []string{}, items[1].Tags)
}

func TestImagesErrors(t *testing.T) {
	c, mediaDir, _ := newTestCatalog(t)

	_, err := c.Images(context.Background())
	assert.ErrorIs(t, err, ErrNoMedia)

	writeFile(t, mediaDir, "lonely.json", `{"description":"x"}`)
	_, err = c.Images(context.Background())
	assert.ErrorIs(t, err, ErrNoValidMedia)

	missing := NewCatalog(filepath.Join(t.TempDir(), "nope"), "", 1, quietLogger())
	_, err = missing.Images(context.Background())
	assert.ErrorIs(t, err, ErrFolderNotFound)
	assert.False(t, missing.MediaFolderExists())
}

func TestVideos(t *testing.T) {
	c, mediaDir, _ := newTestCatalog(t)
	now := time.Now()

	old := writeFile(t, mediaDir, "old.MOV", "video")
	touch(t, old, now.Add(-time.Hour))
	fresh := writeFile(t, mediaDir, "fresh.mp4", "video!")
	touch(t, fresh, now)
	writeFile(t, mediaDir, "fresh.json", `{"description":"Ocean waves","tags":["sea"]}`)
	writeFile(t, mediaDir, "fresh_first_frame.jpg", "jpg")
	writeFile(t, mediaDir, "notes.txt", "ignored")

	videos, err := c.Videos(context.Background())
	require.NoError(t, err)

	require.Len(t, videos, 2)
	assert.Equal(t, "fresh.mp4", videos[0].Filename)
	assert.Equal(t, "media/fresh.mp4", videos[0].Path)
	assert.Equal(t, "Ocean waves", videos[0].Description)
	assert.Equal(t, []string{"sea"}, videos[0].Tags)
	assert.Equal(t, "media/fresh_first_frame.jpg", videos[0].Thumbnail)
	assert.EqualValues(t, 6, videos[0].Size)

	assert.Equal(t, "old.MOV", videos[1].Filename)
	assert.Empty(t, videos[1].Thumbnail)
	assert.Equal(t, []string{}, videos[1].Tags)
}

func TestAudio(t *testing.T) {
	c, mediaDir, audioDir := newTestCatalog(t)
	now := time.Now()

	tone := filepath.Join(audioDir, "tone.wav")
	writeWAV(t, tone, 1)
	touch(t, tone, now)
	writeFile(t, mediaDir, "tone.json", `{"description":"A test tone","tags":["calm"]}`)

	older := writeFile(t, audioDir, "demo.ogg", "not really ogg")
	touch(t, older, now.Add(-time.Minute))
	writeFile(t, audioDir, "cover.png", "png")

	tracks, err := c.Audio(context.Background())
	require.NoError(t, err)

	require.Len(t, tracks, 2)
	assert.Equal(t, "tone.wav", tracks[0].Filename)
	assert.Equal(t, "mp3/tone.wav", tracks[0].Path)
	assert.Equal(t, "tone", tracks[0].Title)
	assert.Equal(t, 1, tracks[0].Duration)
	assert.Equal(t, "A test tone", tracks[0].Description)
	assert.Equal(t, []string{"calm"}, tracks[0].Tags)

	assert.Equal(t, "demo.ogg", tracks[1].Filename)
	assert.Zero(t, tracks[1].Duration)
}

func TestAudioMissingFolder(t *testing.T) {
	c := NewCatalog(t.TempDir(), filepath.Join(t.TempDir(), "missing"), 1, quietLogger())

	_, err := c.Audio(context.Background())
	assert.ErrorIs(t, err, ErrAudioFolderNotFound)
}

func TestAudioCanceled(t *testing.T) {
	c, _, audioDir := newTestCatalog(t)
	writeWAV(t, filepath.Join(audioDir, "a.wav"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Audio(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCount(t *testing.T) {
	c, mediaDir, audioDir := newTestCatalog(t)

	writeFile(t, mediaDir, "a.json", "{}")
	writeFile(t, mediaDir, "a.jpg", "jpg")
	writeFile(t, mediaDir, "b.json", "{}")
	writeFile(t, mediaDir, "clip.webm", "v")
	writeFile(t, audioDir, "song.mp3", "a")
	writeFile(t, audioDir, "readme.md", "x")

	counts, err := c.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Counts{Sidecars: 2, Images: 1, Videos: 1, Audio: 1}, counts)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", ContentType("x.MP3"))
	assert.Equal(t, "audio/flac", ContentType("x.flac"))
	assert.Empty(t, ContentType("x.txt"))
	assert.True(t, IsAudioFile("a/b.wav"))
	assert.False(t, IsAudioFile("a/b.json"))
}
