package lyrics

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"songforge/internal/ai"
	"songforge/internal/cache"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	text       string
	err        error
	configured bool
	calls      int
	last       ai.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req ai.Request) (string, error) {
	f.calls++
	f.last = req
	return f.text, f.err
}

func (f *fakeCompleter) Configured() bool {
	return f.configured
}

func newTestService(t *testing.T, fc *fakeCompleter) *Service {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	analyses := cache.NewAnalysisCache(time.Hour)
	t.Cleanup(analyses.Stop)
	return NewService(fc, analyses, logger)
}

func TestEnhanceStructured(t *testing.T) {
	fc := &fakeCompleter{configured: true, text: "Sure!\n```json\n" +
		`{"lines":[{"lineNumber":"1","original":"Hello <insert>","alternatives":["Hello world","Hello moon"]}]}` +
		"\n```"}
	svc := newTestService(t, fc)

	res, err := svc.Enhance(context.Background(), "Hello <insert>\nBye")
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Equal(t, "Hello <insert>\nBye", res.OriginalLyrics)
	require.Len(t, res.Alternatives, 1)
	assert.Equal(t, 1, res.Alternatives[0].LineNumber)
	assert.Equal(t, []string{"Hello world", "Hello moon"}, res.Alternatives[0].Alternatives)
	assert.Equal(t, 2000, fc.last.MaxTokens)
	assert.Contains(t, fc.last.UserPrompt, "Hello <insert>\nBye")
}

func TestEnhanceEmptyLines(t *testing.T) {
	svc := newTestService(t, &fakeCompleter{configured: true, text: `{"lines":[]}`})

	res, err := svc.Enhance(context.Background(), "a <insert>")
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.NotNil(t, res.Alternatives)
	assert.Empty(t, res.Alternatives)
}

func TestEnhanceFallback(t *testing.T) {
	for _, text := range []string{"Here are some ideas: walk on", `{"other":1}`, `{"lines": broken`} {
		svc := newTestService(t, &fakeCompleter{configured: true, text: text})

		res, err := svc.Enhance(context.Background(), "a <insert>")
		require.NoError(t, err)
		assert.True(t, res.Fallback, text)
		assert.Equal(t, text, res.EnhancedLyrics)
		assert.Nil(t, res.Alternatives)
	}
}

func TestEnhanceErrors(t *testing.T) {
	fc := &fakeCompleter{configured: true}
	svc := newTestService(t, fc)

	_, err := svc.Enhance(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, fc.calls)

	fc.err = &ai.Error{Kind: ai.KindRateLimited, Message: "Rate limit exceeded"}
	_, err = svc.Enhance(context.Background(), "x <insert>")
	assert.Equal(t, ai.KindRateLimited, ai.KindOf(err))
}

func TestEnhanceWithRhyme(t *testing.T) {
	fc := &fakeCompleter{configured: true, text: `{"sections":[{"original":"street <insert>",` +
		`"alternatives":[{"text":"street of dreams","rhymeType":"internal","syllables":"4"}],` +
		`"suggestions":{"rhymeScheme":"AABB","meter":"iambic","recommendation":"more"}},{"original":"x"}]}`}
	svc := newTestService(t, fc)

	res, err := svc.EnhanceWithRhyme(context.Background(), "street <insert>")
	require.NoError(t, err)

	require.Len(t, res.Sections, 2)
	assert.Equal(t, "street <insert>", res.OriginalLyrics)
	alt := res.Sections[0].Alternatives[0]
	assert.Equal(t, "street of dreams", alt.Text)
	assert.EqualValues(t, 4, alt.Syllables)
	assert.NotNil(t, alt.RhymeWords)
	assert.Equal(t, "AABB", res.Sections[0].Suggestions.RhymeScheme)
	assert.NotNil(t, res.Sections[1].Alternatives)
	assert.Equal(t, 3000, fc.last.MaxTokens)
	assert.InDelta(t, 0.8, fc.last.Temperature, 1e-9)
}

func TestEnhanceWithRhymeParseFailure(t *testing.T) {
	svc := newTestService(t, &fakeCompleter{configured: true, text: "no json here"})

	_, err := svc.EnhanceWithRhyme(context.Background(), "x <insert>")
	assert.ErrorIs(t, err, ErrParse)
}

func TestGenerateVerses(t *testing.T) {
	fc := &fakeCompleter{configured: true, text: "a\nb\nc\nd\n\ne\nf\ng\nh"}
	svc := newTestService(t, fc)

	verses, err := svc.GenerateVerses(context.Background(), VerseRequest{
		ImageDescription: "A night sky",
		ImageTags:        []string{"stars", "night"},
		SampleLyrics:     "Under the moon",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a\nb\nc\nd", "e\nf\ng\nh"}, verses)
	assert.Contains(t, fc.last.UserPrompt, "Tags: stars, night")
	assert.Contains(t, fc.last.UserPrompt, "Image Description: A night sky")
	assert.Equal(t, 1000, fc.last.MaxTokens)
}

func TestGenerateVersesErrors(t *testing.T) {
	fc := &fakeCompleter{configured: true, text: "  \n"}
	svc := newTestService(t, fc)

	_, err := svc.GenerateVerses(context.Background(), VerseRequest{ImageDescription: "x"})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.GenerateVerses(context.Background(), VerseRequest{SampleLyrics: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	fc.err = errors.New("boom")
	_, err = svc.GenerateVerses(context.Background(), VerseRequest{SampleLyrics: "x"})
	assert.EqualError(t, err, "boom")
}

func TestAnalyzeThemesFromModelIsCached(t *testing.T) {
	fc := &fakeCompleter{configured: true, text: `{"themes":["night"],"emotions":["calm"],"atmosphere":"quiet"}`}
	svc := newTestService(t, fc)

	first := svc.AnalyzeThemes(context.Background(), "the moon")
	assert.Equal(t, SourceModel, first.Source)
	assert.Equal(t, []string{"night"}, first.Analysis.Themes)
	assert.Equal(t, []string{}, first.Analysis.Subjects)
	assert.Equal(t, "quiet", first.Analysis.Atmosphere)

	second := svc.AnalyzeThemes(context.Background(), "the moon")
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Analysis, second.Analysis)
	assert.Equal(t, 1, fc.calls)
}

func TestAnalyzeThemesFallsBackToKeywords(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeCompleter
	}{
		{"not configured", &fakeCompleter{}},
		{"call failed", &fakeCompleter{configured: true, err: &ai.Error{Kind: ai.KindTimeout}}},
		{"invalid json", &fakeCompleter{configured: true, text: "themes: moon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.fc)

			res := svc.AnalyzeThemes(context.Background(), "Dancing under the moon and stars")
			assert.Equal(t, SourceKeywords, res.Source)
			assert.Equal(t, []string{"star", "moon"}, res.Analysis.Themes)
			assert.Empty(t, res.Analysis.Atmosphere)
		})
	}
}
