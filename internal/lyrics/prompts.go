package lyrics

import (
	"fmt"
	"strings"
)

const enhanceSystemPrompt = "You are a creative lyrics assistant. You help enhance lyrics by providing multiple alternatives for lines that need completion. You MUST return ONLY valid JSON, no markdown code blocks, no explanations, no additional text. The JSON must be parseable."

const enhanceUserTemplate = `Please provide alternatives for lines with <insert> tags. For each line containing <insert>, provide 3-5 alternative completions. Return your response as a JSON object with this structure:

{
  "lines": [
    {
      "lineNumber": 1,
      "original": "I'm walking down the street <insert>",
      "alternatives": [
        "I'm walking down the street where dreams come alive",
        "I'm walking down the street with hope in my eyes",
        "I'm walking down the street where love never dies"
      ]
    }
  ]
}

Here are the lyrics:

%s

Return ONLY valid JSON, no other text.`

const rhymeSystemPrompt = "You are an expert lyricist and poetry analyst. You specialize in rhyme patterns, meter, and lyrical flow. You MUST return ONLY valid JSON that can be parsed directly. No markdown, no code blocks, no explanations."

const rhymeUserTemplate = `Analyze these lyrics and provide enhancement suggestions with focus on:

1. **Internal Rhyme Patterns**: Suggest alternatives that create internal rhymes (words that rhyme within the same line)
2. **End Rhyme**: Maintain or improve end-of-line rhyme schemes
3. **Slant Rhyme**: Suggest near-rhymes for creative flow
4. **Syllable Count**: Match syllable counts for consistent rhythm
5. **Multiple Alternatives**: Provide 5-7 creative alternatives per section
6. **Rhyme Scheme Analysis**: Suggest rhyme schemes (AABB, ABAB, ABCB, etc.)

For each section with <insert> tags, return:
{
  "sections": [
    {
      "original": "I'm walking down the street <insert>",
      "alternatives": [
        {
          "text": "I'm walking down the street where dreams come alive",
          "rhymeType": "internal",
          "rhymeWords": ["street", "dreams"],
          "syllables": 9,
          "flow": "smooth, upbeat",
          "rhymeNote": "Internal rhyme: street/dreams"
        }
      ],
      "suggestions": {
        "rhymeScheme": "AABB",
        "meter": "iambic",
        "recommendation": "Consider internal rhymes for stronger impact"
      }
    }
  ]
}

Here are the lyrics:

%s

Return ONLY valid JSON, no markdown, no code blocks, no explanations.`

const versesSystemPrompt = "You are a creative lyricist who writes verses that match visual themes and maintain stylistic consistency."

const versesUserTemplate = `Based on this image description and the sample lyrics provided, generate 3-5 alternate verses that match the visual theme and style of the sample lyrics.

Image Description: %s
%s
Sample Lyrics:
%s

Generate alternate verses that:
1. Match the tone and style of the sample lyrics
2. Relate to the visual themes in the image description
3. Are creative and inspiring
4. Maintain similar structure/rhythm if applicable
5. Each verse must be exactly 4 lines

IMPORTANT: Each verse must consist of exactly 4 lines. Return each verse separated by a blank line. Do not include verse numbers or labels, just the 4 lines for each verse separated by blank lines.`

const analysisSystemPrompt = "You are an expert at analyzing lyrics for visual themes and emotional content. Return only valid JSON."

const analysisUserTemplate = `Analyze these lyrics and extract the key visual themes, emotions, and subjects:

"%s"

Return a JSON object with these fields:
{
  "themes": ["array", "of", "main", "themes"],
  "emotions": ["array", "of", "emotional", "tones"],
  "subjects": ["array", "of", "main", "subjects"],
  "colors": ["array", "of", "color", "associations"],
  "atmosphere": "description of overall atmosphere"
}

Keep it concise and focused on visual elements.`

func versesPrompt(req VerseRequest) string {
	tags := ""
	if len(req.ImageTags) > 0 {
		tags = "Tags: " + strings.Join(req.ImageTags, ", ") + "\n"
	}
	return fmt.Sprintf(versesUserTemplate, req.ImageDescription, tags, req.SampleLyrics)
}
