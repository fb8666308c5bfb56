package lyrics

import "strings"

// similarityThreshold is the minimum similarText score for two lines to be
// considered the same.
const similarityThreshold = 70

var insertMarkers = strings.NewReplacer("<insert />", "", "<insert/>", "", "<insert>", "")

// Suggestion is one line of model output before correlation
type Suggestion struct {
	LineNumber   int
	Original     string
	Alternatives []string
}

// LineAlternatives is a suggestion bound to a line of the caller's lyrics
type LineAlternatives struct {
	LineNumber   int      `json:"lineNumber"`
	Original     string   `json:"original"`
	Alternatives []string `json:"alternatives"`
}

// MatchLines binds model suggestions to 1-based source line numbers.
//
// The correlation is a heuristic. Each suggestion claims the first unused
// source line whose text contains, or is contained in, the suggestion's echoed
// original (markers stripped, case-insensitive), or shares more than
// similarityThreshold characters with it. Unmatched suggestions keep the
// model's line number when it points inside the lyrics, and otherwise take
// the next position. Suggestions without alternatives are dropped.
func MatchLines(lyrics string, suggestions []Suggestion) []LineAlternatives {
	sourceLines := strings.Split(lyrics, "\n")
	used := make(map[int]bool)
	out := make([]LineAlternatives, 0, len(suggestions))

	for _, s := range suggestions {
		if len(s.Alternatives) == 0 {
			continue
		}

		echoed := cleanLine(s.Original)
		lineNumber := 0
		for idx, line := range sourceLines {
			if used[idx] {
				continue
			}
			if linesMatch(cleanLine(line), echoed) {
				lineNumber = idx + 1
				used[idx] = true
				break
			}
		}

		if lineNumber == 0 {
			if s.LineNumber >= 1 && s.LineNumber <= len(sourceLines) {
				lineNumber = s.LineNumber
			} else {
				lineNumber = len(out) + 1
			}
		}

		out = append(out, LineAlternatives{
			LineNumber:   lineNumber,
			Original:     s.Original,
			Alternatives: s.Alternatives,
		})
	}
	return out
}

func cleanLine(line string) string {
	return strings.TrimSpace(insertMarkers.Replace(line))
}

// linesMatch compares two cleaned lines. Empty lines never match.
func linesMatch(source, echoed string) bool {
	if source == "" || echoed == "" {
		return false
	}
	a := strings.ToLower(source)
	b := strings.ToLower(echoed)
	return strings.Contains(a, b) || strings.Contains(b, a) || similarText(a, b) > similarityThreshold
}

// similarText counts the characters two strings share: the longest common
// substring plus, recursively, the shared characters to its left and right.
func similarText(a, b string) int {
	if a == "" || b == "" {
		return 0
	}

	pos1, pos2, longest := 0, 0, 0
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > longest {
				pos1, pos2, longest = i, j, k
			}
		}
	}
	if longest == 0 {
		return 0
	}

	return longest + similarText(a[:pos1], b[:pos2]) + similarText(a[pos1+longest:], b[pos2+longest:])
}
