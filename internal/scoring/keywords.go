package scoring

import "strings"

// commonThemes is the vocabulary used when no model analysis is available.
var commonThemes = []string{
	"space", "star", "moon", "sun", "light", "dark", "night",
	"mountain", "ocean", "sea", "river", "forest", "nature",
	"city", "street", "urban", "building", "road",
	"love", "heart", "soul", "spirit", "dream", "hope",
	"fire", "water", "earth", "wind", "sky", "cloud",
}

// ExtractKeywords returns the common themes that occur in lyrics.
func ExtractKeywords(lyrics string) []string {
	lower := strings.ToLower(lyrics)
	found := []string{}
	for _, theme := range commonThemes {
		if strings.Contains(lower, theme) {
			found = append(found, theme)
		}
	}
	return found
}

// FallbackAnalysis builds an analysis from keyword extraction alone.
func FallbackAnalysis(lyrics string) Analysis {
	return Analysis{
		Themes:   ExtractKeywords(lyrics),
		Emotions: []string{},
		Subjects: []string{},
		Colors:   []string{},
	}
}
