package lyrics

import (
	"regexp"
	"strings"
)

const (
	linesPerVerse = 4
	minVerses     = 2
)

var (
	blankLine  = regexp.MustCompile(`\n\s*\n`)
	verseLabel = regexp.MustCompile(`(?i)^(verse\s*\d+[:\-.)\s]*|\d+[.)\-\s]*)`)
)

// ParseVerses splits model text into verses of exactly four lines. Labels
// such as "Verse 2:" or "3." are removed, long blocks are cut to four lines
// and short ones padded with empty lines. When fewer than two verses come out
// of the blank-line split, all lines are regrouped in fours instead.
func ParseVerses(text string) []string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")

	verses := []string{}
	for _, block := range blankLine.Split(text, -1) {
		lines := cleanVerseLines(block)
		if len(lines) == 0 {
			continue
		}
		if len(lines) > linesPerVerse {
			lines = lines[:linesPerVerse]
		}
		verses = append(verses, padVerse(lines))
	}

	if len(verses) < minVerses {
		all := cleanVerseLines(text)
		verses = []string{}
		for i := 0; i < len(all); i += linesPerVerse {
			end := i + linesPerVerse
			if end > len(all) {
				end = len(all)
			}
			verses = append(verses, padVerse(all[i:end]))
		}
	}
	return verses
}

func cleanVerseLines(block string) []string {
	out := []string{}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(verseLabel.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func padVerse(lines []string) string {
	padded := make([]string, linesPerVerse)
	copy(padded, lines)
	return strings.Join(padded, "\n")
}
