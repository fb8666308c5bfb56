// Package scoring ranks described media against lyric themes.
//
// Matching is plain case-insensitive substring search with additive weights,
// so a term like "sun" also hits "sunset". That looseness is intended.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"songforge/pkg/models"
)

// Analysis holds the visual themes extracted from lyrics
type Analysis struct {
	Themes     []string `json:"themes"`
	Emotions   []string `json:"emotions"`
	Subjects   []string `json:"subjects"`
	Colors     []string `json:"colors"`
	Atmosphere string   `json:"atmosphere"`
}

// Match is a ranked media item with its score breakdown
type Match struct {
	Filename       string   `json:"filename"`
	Description    string   `json:"description"`
	Tags           []string `json:"tags"`
	Relevance      string   `json:"relevance"`
	Score          int      `json:"score"`
	ScoringDetails []string `json:"scoringDetails"`
	Rank           int      `json:"rank"`
}

// SearchResult is a media item matched by a free-text query
type SearchResult struct {
	Filename    string   `json:"filename"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Rank        int      `json:"rank"`
}

// termWeight scores one category of analysis terms.
type termWeight struct {
	label       string
	description int
	tag         int
}

var (
	themeWeight   = termWeight{label: "Theme", description: 5, tag: 3}
	emotionWeight = termWeight{label: "Emotion", description: 4, tag: 2}
	subjectWeight = termWeight{label: "Subject", description: 4, tag: 2}
	colorWeight   = termWeight{label: "Color", description: 2}
)

const atmospherePoints = 3

// bonusBand rewards a description and lyrics that share a broad theme.
type bonusBand struct {
	points      int
	detail      string
	description []string
	lyrics      []string
}

var bonusBands = []bonusBand{
	{8, "Strong space theme match", []string{"space", "astronaut", "planet"}, []string{"star", "space", "moon"}},
	{8, "Strong nature theme match", []string{"mountain", "ocean", "forest"}, []string{"mountain", "sea", "nature"}},
	{8, "Strong urban theme match", []string{"city", "street", "urban"}, []string{"city", "street", "urban"}},
	{6, "Night/dark theme match", []string{"night", "dark", "moonlight"}, []string{"night", "dark", "moon"}},
	{6, "Light/bright theme match", []string{"sun", "light", "bright"}, []string{"sun", "light", "bright"}},
}

// Score computes the additive relevance of one item for the given lyrics.
func Score(lyrics string, analysis Analysis, item models.MediaItem) (int, []string) {
	description := strings.ToLower(item.Description)
	tags := lowerAll(item.Tags)
	details := []string{}
	score := 0

	scoreTerms := func(terms []string, w termWeight) {
		for _, term := range terms {
			needle := strings.ToLower(strings.TrimSpace(term))
			if needle == "" {
				continue
			}
			if strings.Contains(description, needle) {
				score += w.description
				details = append(details, fmt.Sprintf("+%d: %s %q found in description", w.description, w.label, term))
			}
			if w.tag > 0 && anyContains(tags, needle) {
				score += w.tag
				details = append(details, fmt.Sprintf("+%d: %s %q found in tags", w.tag, w.label, term))
			}
		}
	}

	scoreTerms(analysis.Themes, themeWeight)
	scoreTerms(analysis.Emotions, emotionWeight)
	scoreTerms(analysis.Subjects, subjectWeight)
	scoreTerms(analysis.Colors, colorWeight)

	if atmosphere := strings.ToLower(strings.TrimSpace(analysis.Atmosphere)); atmosphere != "" {
		if strings.Contains(description, atmosphere) {
			score += atmospherePoints
			details = append(details, fmt.Sprintf("+%d: Atmosphere match found in description", atmospherePoints))
		}
	}

	lyricsLower := strings.ToLower(lyrics)
	for _, band := range bonusBands {
		if containsAny(description, band.description) && containsAny(lyricsLower, band.lyrics) {
			score += band.points
			details = append(details, fmt.Sprintf("+%d: %s", band.points, band.detail))
		}
	}

	return score, details
}

// Rank scores every item and returns the best limit matches. Equal scores
// keep catalog order.
func Rank(lyrics string, analysis Analysis, items []models.MediaItem, limit int) []Match {
	matches := make([]Match, 0, len(items))
	for _, item := range items {
		score, details := Score(lyrics, analysis, item)
		matches = append(matches, Match{
			Filename:       item.Filename,
			Description:    item.Description,
			Tags:           nonNil(item.Tags),
			Score:          score,
			ScoringDetails: details,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	for i := range matches {
		matches[i].Rank = i + 1
		if i == 0 {
			matches[i].Relevance = "Most Relevant"
		} else {
			matches[i].Relevance = fmt.Sprintf("Rank %d", i+1)
		}
	}
	return matches
}

// Search matches items against the space-separated words of query. Only
// items scoring above zero are returned.
func Search(query string, items []models.MediaItem, limit int) []SearchResult {
	words := strings.Fields(strings.ToLower(query))

	type scored struct {
		item  models.MediaItem
		score int
	}
	hits := []scored{}
	for _, item := range items {
		description := strings.ToLower(item.Description)
		tags := lowerAll(item.Tags)
		score := 0
		for _, word := range words {
			if strings.Contains(description, word) {
				score += 5
			}
			if anyContains(tags, word) {
				score += 3
			}
		}
		if score > 0 {
			hits = append(hits, scored{item: item, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{
			Filename:    h.item.Filename,
			Description: h.item.Description,
			Tags:        nonNil(h.item.Tags),
			Rank:        i + 1,
		}
	}
	return results
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// anyContains reports whether any haystack contains needle.
func anyContains(haystacks []string, needle string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

// containsAny reports whether s contains any of the needles.
func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
