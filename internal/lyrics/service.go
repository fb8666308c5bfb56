// Package lyrics turns model output into line alternatives, rhyme
// suggestions, verses and theme analyses.
package lyrics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"songforge/internal/ai"
	"songforge/internal/cache"
	"songforge/internal/scoring"

	"github.com/sirupsen/logrus"
)

var (
	// ErrParse is returned when model output has no usable structure and no
	// fallback exists.
	ErrParse = errors.New("failed to parse model output")
	// ErrEmptyInput is returned when the required text is blank.
	ErrEmptyInput = errors.New("input text is required")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("model returned no text")
)

// Service orchestrates prompts and response parsing.
type Service struct {
	completer ai.Completer
	analyses  *cache.AnalysisCache
	logger    *logrus.Logger
}

// NewService creates an orchestrator. analyses may be nil to disable caching.
func NewService(completer ai.Completer, analyses *cache.AnalysisCache, logger *logrus.Logger) *Service {
	return &Service{completer: completer, analyses: analyses, logger: logger}
}

// EnhanceResult is the outcome of a line-alternatives request. In fallback
// mode Alternatives is nil and EnhancedLyrics holds the raw model text.
type EnhanceResult struct {
	OriginalLyrics string             `json:"originalLyrics"`
	EnhancedLyrics string             `json:"enhancedLyrics,omitempty"`
	Alternatives   []LineAlternatives `json:"alternatives"`
	Fallback       bool               `json:"fallback"`
}

type enhancePayload struct {
	Lines *[]struct {
		LineNumber   flexInt  `json:"lineNumber"`
		Original     string   `json:"original"`
		Alternatives []string `json:"alternatives"`
	} `json:"lines"`
}

// Enhance asks for alternatives for every <insert> line.
func (s *Service) Enhance(ctx context.Context, lyrics string) (*EnhanceResult, error) {
	if strings.TrimSpace(lyrics) == "" {
		return nil, ErrEmptyInput
	}

	text, err := s.completer.Complete(ctx, ai.Request{
		SystemPrompt: enhanceSystemPrompt,
		UserPrompt:   fmt.Sprintf(enhanceUserTemplate, lyrics),
		MaxTokens:    2000,
		Temperature:  0.7,
	})
	if err != nil {
		return nil, err
	}

	var payload enhancePayload
	if !decodeEmbeddedJSON(text, &payload) || payload.Lines == nil {
		s.logger.WithField("response_length", len(text)).Warn("Enhancement response was not structured; returning raw text")
		return &EnhanceResult{
			OriginalLyrics: lyrics,
			EnhancedLyrics: text,
			Fallback:       true,
		}, nil
	}

	suggestions := make([]Suggestion, 0, len(*payload.Lines))
	for _, line := range *payload.Lines {
		suggestions = append(suggestions, Suggestion{
			LineNumber:   int(line.LineNumber),
			Original:     line.Original,
			Alternatives: line.Alternatives,
		})
	}

	return &EnhanceResult{
		OriginalLyrics: lyrics,
		Alternatives:   MatchLines(lyrics, suggestions),
	}, nil
}

// RhymeAlternative is one rhyme-aware rewrite of a section
type RhymeAlternative struct {
	Text       string   `json:"text"`
	RhymeType  string   `json:"rhymeType"`
	RhymeWords []string `json:"rhymeWords"`
	Syllables  flexInt  `json:"syllables"`
	Flow       string   `json:"flow"`
	RhymeNote  string   `json:"rhymeNote"`
}

// RhymeSuggestions summarizes the scheme advice for a section
type RhymeSuggestions struct {
	RhymeScheme    string `json:"rhymeScheme"`
	Meter          string `json:"meter"`
	Recommendation string `json:"recommendation"`
}

// RhymeSection groups the alternatives for one marked section
type RhymeSection struct {
	Original     string             `json:"original"`
	Alternatives []RhymeAlternative `json:"alternatives"`
	Suggestions  RhymeSuggestions   `json:"suggestions"`
}

// RhymeResult is the outcome of a rhyme-aware enhancement
type RhymeResult struct {
	Sections       []RhymeSection `json:"sections"`
	OriginalLyrics string         `json:"originalLyrics"`
}

// EnhanceWithRhyme asks for rhyme-aware alternatives. There is no fallback:
// unstructured output yields ErrParse.
func (s *Service) EnhanceWithRhyme(ctx context.Context, lyrics string) (*RhymeResult, error) {
	if strings.TrimSpace(lyrics) == "" {
		return nil, ErrEmptyInput
	}

	text, err := s.completer.Complete(ctx, ai.Request{
		SystemPrompt: rhymeSystemPrompt,
		UserPrompt:   fmt.Sprintf(rhymeUserTemplate, lyrics),
		MaxTokens:    3000,
		Temperature:  0.8,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Sections *[]RhymeSection `json:"sections"`
	}
	if !decodeEmbeddedJSON(text, &payload) || payload.Sections == nil {
		return nil, ErrParse
	}

	sections := *payload.Sections
	for i := range sections {
		if sections[i].Alternatives == nil {
			sections[i].Alternatives = []RhymeAlternative{}
		}
		for j := range sections[i].Alternatives {
			if sections[i].Alternatives[j].RhymeWords == nil {
				sections[i].Alternatives[j].RhymeWords = []string{}
			}
		}
	}

	return &RhymeResult{Sections: sections, OriginalLyrics: lyrics}, nil
}

// VerseRequest describes the image and style to write verses for
type VerseRequest struct {
	ImageDescription string
	ImageTags        []string
	SampleLyrics     string
}

// GenerateVerses writes four-line verses inspired by an image.
func (s *Service) GenerateVerses(ctx context.Context, req VerseRequest) ([]string, error) {
	if strings.TrimSpace(req.SampleLyrics) == "" {
		return nil, ErrEmptyInput
	}

	text, err := s.completer.Complete(ctx, ai.Request{
		SystemPrompt: versesSystemPrompt,
		UserPrompt:   versesPrompt(req),
		MaxTokens:    1000,
		Temperature:  0.8,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	return ParseVerses(text), nil
}

// AnalysisResult is a theme analysis and where it came from
type AnalysisResult struct {
	Analysis scoring.Analysis
	Source   string
}

// Analysis sources
const (
	SourceModel    = "model"
	SourceCache    = "cache"
	SourceKeywords = "keywords"
)

// AnalyzeThemes extracts visual themes from lyrics. Any model failure falls
// back to keyword extraction, so this never fails.
func (s *Service) AnalyzeThemes(ctx context.Context, lyrics string) AnalysisResult {
	key := lyricsDigest(lyrics)
	if s.analyses != nil {
		if analysis, ok := s.analyses.GetAnalysis(key); ok {
			return AnalysisResult{Analysis: analysis, Source: SourceCache}
		}
	}

	if !s.completer.Configured() {
		return AnalysisResult{Analysis: scoring.FallbackAnalysis(lyrics), Source: SourceKeywords}
	}

	text, err := s.completer.Complete(ctx, ai.Request{
		SystemPrompt: analysisSystemPrompt,
		UserPrompt:   fmt.Sprintf(analysisUserTemplate, lyrics),
		MaxTokens:    300,
		Temperature:  0.3,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Theme analysis failed; using keyword extraction")
		return AnalysisResult{Analysis: scoring.FallbackAnalysis(lyrics), Source: SourceKeywords}
	}

	var analysis scoring.Analysis
	if !decodeEmbeddedJSON(text, &analysis) {
		s.logger.Warn("Theme analysis was not valid JSON; using keyword extraction")
		return AnalysisResult{Analysis: scoring.FallbackAnalysis(lyrics), Source: SourceKeywords}
	}
	normalizeAnalysis(&analysis)

	if s.analyses != nil {
		s.analyses.SetAnalysis(key, analysis)
	}
	return AnalysisResult{Analysis: analysis, Source: SourceModel}
}

func normalizeAnalysis(a *scoring.Analysis) {
	for _, list := range []*[]string{&a.Themes, &a.Emotions, &a.Subjects, &a.Colors} {
		if *list == nil {
			*list = []string{}
		}
	}
}

func lyricsDigest(lyrics string) string {
	sum := sha256.Sum256([]byte(lyrics))
	return hex.EncodeToString(sum[:])
}
