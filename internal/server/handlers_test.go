package server

import (
	"net/http"
	"os"
	"strings"
	"testing"

	"songforge/internal/ai"
	"songforge/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveSong(t *testing.T, env *testEnv, body string) map[string]interface{} {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/save-song.php", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func currentVersion(body map[string]interface{}) float64 {
	return body["currentVersion"].(map[string]interface{})["version"].(float64)
}

func TestSongLifecycle(t *testing.T) {
	env := newTestEnv(t)

	created := saveSong(t, env, `{"title":"First","lyrics":"line one","authors":[{"name":"Ada","role":"primary"}]}`)
	assert.Equal(t, true, created["success"])
	assert.Equal(t, true, created["isNewVersion"])
	assert.Equal(t, false, created["blockchainRegistered"])
	assert.Nil(t, created["blockchain"])
	assert.EqualValues(t, 1, currentVersion(created))

	song := created["song"].(map[string]interface{})
	id := song["id"].(string)
	assert.True(t, strings.HasPrefix(id, "song_"))
	assert.Equal(t, "First", song["title"])

	same := saveSong(t, env, `{"id":"`+id+`","title":"First","lyrics":"line one","versionNotes":"tweak"}`)
	assert.Equal(t, false, same["isNewVersion"])
	assert.EqualValues(t, 1, currentVersion(same))

	changed := saveSong(t, env, `{"id":"`+id+`","lyrics":"line two"}`)
	assert.Equal(t, true, changed["isNewVersion"])
	assert.EqualValues(t, 2, currentVersion(changed))
	assert.Equal(t, "Untitled Song", changed["song"].(map[string]interface{})["title"])

	forced := saveSong(t, env, `{"id":"`+id+`","lyrics":"line two","saveAsNewVersion":true}`)
	assert.EqualValues(t, 3, currentVersion(forced))

	rec := env.do(t, http.MethodGet, "/api/get-songs.php", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["songs"].([]interface{})
	require.Len(t, list, 1)
	summary := list[0].(map[string]interface{})
	assert.EqualValues(t, 3, summary["versionCount"])
	assert.Equal(t, "line two", summary["preview"])

	rec = env.do(t, http.MethodGet, "/api/get-song.php?id="+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, currentVersion(decode(t, rec)))

	rec = env.do(t, http.MethodGet, "/songs/"+id+"?version=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	version := decode(t, rec)["version"].(map[string]interface{})
	assert.Equal(t, "line one", version["lyrics"])
	assert.Equal(t, "tweak", version["notes"])

	assertError(t, env.do(t, http.MethodGet, "/songs/"+id+"?version=9", ""), http.StatusNotFound, "Version not found")
	for _, bad := range []string{"0", "-1", "abc"} {
		assertError(t, env.do(t, http.MethodGet, "/songs/"+id+"?version="+bad, ""), http.StatusNotFound, "Version not found")
	}
	assertError(t, env.do(t, http.MethodGet, "/songs/song_missing?version=0", ""), http.StatusNotFound, "Song not found")

	rec = env.do(t, http.MethodPost, "/api/delete-song.php", `{"id":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Song deleted successfully", decode(t, rec)["message"])

	assertError(t, env.do(t, http.MethodGet, "/songs/"+id, ""), http.StatusNotFound, "Song not found")
	assertError(t, env.do(t, http.MethodDelete, "/songs/"+id, ""), http.StatusNotFound, "Song not found")
}

func TestDeleteRoutes(t *testing.T) {
	env := newTestEnv(t)

	first := saveSong(t, env, `{"lyrics":"a"}`)["song"].(map[string]interface{})["id"].(string)
	second := saveSong(t, env, `{"lyrics":"b"}`)["song"].(map[string]interface{})["id"].(string)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/songs/"+first, "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/songs/"+second+"/delete", "").Code)
	assertError(t, env.do(t, http.MethodPost, "/api/delete-song.php", `{}`), http.StatusBadRequest, "Song ID is required")

	list := decode(t, env.do(t, http.MethodGet, "/songs", ""))["songs"].([]interface{})
	assert.Empty(t, list)
}

func TestSaveSongErrors(t *testing.T) {
	env := newTestEnv(t)

	assertError(t, env.do(t, http.MethodPost, "/songs", `{"title":"x","lyrics":"  "}`), http.StatusBadRequest, "Lyrics are required")
	assertError(t, env.do(t, http.MethodPost, "/save-song", `{"id":"song_missing","lyrics":"x"}`), http.StatusNotFound, "Song not found")
	assertError(t, env.do(t, http.MethodPost, "/songs", `{"lyrics":"x","authors":[{"name":"A","role":"drummer"}]}`), http.StatusBadRequest, `Author "A" has unknown role "drummer"`)
	assertError(t, env.do(t, http.MethodGet, "/api/get-song.php", ""), http.StatusBadRequest, "Song ID is required")
}

func TestSaveWithRegistration(t *testing.T) {
	env := newTestEnv(t)

	body := saveSong(t, env, `{"title":"Owned","lyrics":"hello","registerBlockchain":true}`)
	assert.Equal(t, true, body["blockchainRegistered"])
	assert.NotContains(t, body, "registrationError")

	reg := body["blockchain"].(map[string]interface{})
	regID := reg["id"].(string)
	assert.True(t, strings.HasPrefix(regID, "reg_"))
	assert.Equal(t, registry.HashLyrics("hello"), reg["lyricsHash"])

	song := body["song"].(map[string]interface{})
	assert.Equal(t, regID, song["registration"].(map[string]interface{})["id"])

	assert.Equal(t, regID, song["blockchain"].(map[string]interface{})["id"])

	for _, target := range []string{"/api/get-song.php?id=" + song["id"].(string), "/songs/" + song["id"].(string) + "?version=1"} {
		rec := env.do(t, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code)
		served := decode(t, rec)["song"].(map[string]interface{})
		assert.Equal(t, regID, served["blockchain"].(map[string]interface{})["id"], target)
		assert.Equal(t, regID, served["registration"].(map[string]interface{})["id"], target)
	}

	plain := saveSong(t, env, `{"lyrics":"unregistered"}`)["song"].(map[string]interface{})
	served := decode(t, env.do(t, http.MethodGet, "/songs/"+plain["id"].(string), ""))["song"].(map[string]interface{})
	assert.NotContains(t, served, "blockchain")
	assert.NotContains(t, served, "registration")

	rec := env.do(t, http.MethodGet, "/registrations/"+regID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode(t, rec)["registration"].(map[string]interface{})
	assert.Equal(t, song["id"], stored["songId"])
	assert.Equal(t, "pending", stored["blockchain"].(map[string]interface{})["network"])
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/blockchain-register.php", `{"songId":"song_1","lyrics":"words","title":"T"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, registrationMessage, body["message"])
	assert.Equal(t, "registered", body["registration"].(map[string]interface{})["status"])

	assertError(t, env.do(t, http.MethodPost, "/registrations", `{"songId":"song_1"}`), http.StatusBadRequest, "Song ID and lyrics are required")
	assertError(t, env.do(t, http.MethodGet, "/registrations/reg_missing", ""), http.StatusNotFound, "Registration not found")
}

func TestEnhanceLyrics(t *testing.T) {
	env := newTestEnv(t)
	const path = "/api/enhance-lyrics.php"

	assertError(t, env.do(t, http.MethodPost, path, `{"lyrics":""}`), http.StatusBadRequest, "Lyrics are required")
	body := assertError(t, env.do(t, http.MethodPost, path, `{"lyrics":"a <insert>"}`), http.StatusInternalServerError, msgAINotConfigured)
	assert.Equal(t, "not_configured", body["kind"])

	env.ai.respond(`{"lines":[{"lineNumber":1,"original":"Hello <insert>","alternatives":["Hello moon","Hello sun"]}]}`, nil)
	rec := env.do(t, http.MethodPost, path, `{"lyrics":"Hello <insert>\nBye"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["fallback"])
	assert.Equal(t, "Hello <insert>\nBye", body["originalLyrics"])
	alts := body["alternatives"].([]interface{})
	require.Len(t, alts, 1)
	assert.EqualValues(t, 1, alts[0].(map[string]interface{})["lineNumber"])

	env.ai.respond("Hello moon, hello sun", nil)
	body = decode(t, env.do(t, http.MethodPost, path, `{"lyrics":"Hello <insert>"}`))
	assert.Equal(t, true, body["fallback"])
	assert.Equal(t, "Hello moon, hello sun", body["enhancedLyrics"])
	assert.Contains(t, body, "alternatives")
	assert.Nil(t, body["alternatives"])
}

func TestEnhanceLyricsUpstreamErrors(t *testing.T) {
	env := newTestEnv(t)
	const path = "/api/enhance-lyrics.php"

	env.ai.respond("", &ai.Error{Kind: ai.KindTimeout, Message: "OpenAI request timed out"})
	body := assertError(t, env.do(t, http.MethodPost, path, `{"lyrics":"x"}`), http.StatusServiceUnavailable, msgAIUnavailable)
	assert.Equal(t, "timeout", body["kind"])

	env.ai.respond("", &ai.Error{Kind: ai.KindRateLimited, StatusCode: 429, Message: "Rate limit exceeded. Please wait a moment and try again."})
	body = assertError(t, env.do(t, http.MethodPost, path, `{"lyrics":"x"}`), http.StatusInternalServerError, "OpenAI API error")
	assert.Equal(t, "rate_limited", body["kind"])
	assert.Equal(t, "Rate limit exceeded. Please wait a moment and try again.", body["details"])

	env.ai.respond("", &ai.Error{Kind: ai.KindNetwork, Message: "connection refused"})
	assertError(t, env.do(t, http.MethodPost, path, `{"lyrics":"x"}`), http.StatusInternalServerError, "Failed to connect to OpenAI API")
}

func TestEnhanceWithRhyme(t *testing.T) {
	env := newTestEnv(t)
	const path = "/api/enhance-with-rhyme.php"

	env.ai.respond("no structure", nil)
	body := assertError(t, env.do(t, http.MethodPost, path, `{"lyrics":"x <insert>"}`), http.StatusInternalServerError, "Failed to parse enhancement data")
	assert.Equal(t, "Response format invalid", body["details"])

	env.ai.respond(`{"sections":[{"original":"x <insert>","alternatives":[{"text":"x marks the spot","rhymeType":"end"}]}]}`, nil)
	rec := env.do(t, http.MethodPost, path, `{"lyrics":"x <insert>"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "x <insert>", body["originalLyrics"])
	assert.Len(t, body["sections"], 1)
}

func TestGenerateVerses(t *testing.T) {
	env := newTestEnv(t)
	const path = "/api/generate-verses.php"

	assertError(t, env.do(t, http.MethodPost, path, `{"imageDescription":"sky"}`), http.StatusBadRequest, "Sample lyrics are required")

	env.ai.respond("a\nb\nc\nd\n\ne\nf\ng\nh", nil)
	rec := env.do(t, http.MethodPost, path, `{"imageDescription":"sky","imageTags":["blue"],"sampleLyrics":"up high"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"a\nb\nc\nd", "e\nf\ng\nh"}, decode(t, rec)["verses"])

	env.ai.respond("   ", nil)
	assertError(t, env.do(t, http.MethodPost, path, `{"sampleLyrics":"up high"}`), http.StatusInternalServerError, "No verses generated")

	env.ai.respond("", &ai.Error{Kind: ai.KindQuotaExceeded, Message: "quota"})
	assertError(t, env.do(t, http.MethodPost, path, `{"sampleLyrics":"up high"}`), http.StatusInternalServerError, "Failed to generate verses")
}

func writeImages(t *testing.T, env *testEnv) {
	env.write(t, env.mediaDir, "city.json", `{"description":"Busy city street at rush hour","tags":["urban","traffic"]}`)
	env.write(t, env.mediaDir, "city.jpg", "jpg")
	env.write(t, env.mediaDir, "moon.json", `{"description":"A full moon over the night sky","tags":["moon","night"]}`)
	env.write(t, env.mediaDir, "moon.jpg", "jpg")
}

func TestFindImagesWithKeywordAnalysis(t *testing.T) {
	env := newTestEnv(t)
	const path = "/api/find-images.php"

	assertError(t, env.do(t, http.MethodPost, path, `{"lyrics":"moon"}`), http.StatusNotFound, "No media files found")
	writeImages(t, env)
	assertError(t, env.do(t, http.MethodPost, path, `{}`), http.StatusBadRequest, "Lyrics are required")

	rec := env.do(t, http.MethodPost, path, `{"lyrics":"Walking under the moon tonight"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)

	assert.EqualValues(t, 2, body["totalImages"])
	assert.Equal(t, "keywords", body["analysisSource"])
	matches := body["matchedImages"].([]interface{})
	require.Len(t, matches, 2)
	top := matches[0].(map[string]interface{})
	assert.Equal(t, "moon.jpg", top["filename"])
	assert.Equal(t, "Most Relevant", top["relevance"])
	assert.EqualValues(t, 1, top["rank"])
	assert.Equal(t, "Rank 2", matches[1].(map[string]interface{})["relevance"])
}

func TestFindImagesMissingFolder(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.RemoveAll(env.mediaDir))

	assertError(t, env.do(t, http.MethodPost, "/api/find-images.php", `{"lyrics":"moon"}`), http.StatusNotFound, "Media folder not found")
}

func TestSearchImages(t *testing.T) {
	env := newTestEnv(t)
	writeImages(t, env)
	const path = "/api/search-images.php"

	assertError(t, env.do(t, http.MethodPost, path, `{"query":"  "}`), http.StatusBadRequest, "Search query is required")

	body := decode(t, env.do(t, http.MethodPost, path, `{"query":"City"}`))
	assert.EqualValues(t, 1, body["totalFound"])
	match := body["matchedImages"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "city.jpg", match["filename"])
	assert.EqualValues(t, 1, match["rank"])

	body = decode(t, env.do(t, http.MethodPost, path, `{"query":"volcano"}`))
	assert.EqualValues(t, 0, body["totalFound"])
	assert.Equal(t, []interface{}{}, body["matchedImages"])
}

func TestMediaListings(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, env.mediaDir, "clip.mp4", "video")
	env.write(t, env.audioDir, "demo.ogg", "audio")

	body := decode(t, env.do(t, http.MethodGet, "/api/get-videos.php", ""))
	assert.EqualValues(t, 1, body["total"])
	assert.Equal(t, "media/clip.mp4", body["videos"].([]interface{})[0].(map[string]interface{})["path"])

	body = decode(t, env.do(t, http.MethodGet, "/api/get-audio.php", ""))
	assert.EqualValues(t, 1, body["total"])
	track := body["audioFiles"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "mp3/demo.ogg", track["path"])
	assert.Equal(t, "demo", track["title"])

	require.NoError(t, os.RemoveAll(env.audioDir))
	assertError(t, env.do(t, http.MethodGet, "/api/get-audio.php", ""), http.StatusNotFound, "MP3 folder not found")
}
