package lyrics

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// jsonObject spans from the first '{' to the last '}' so that objects
// wrapped in markdown fences or prose are still found.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// decodeEmbeddedJSON decodes the JSON object embedded in model text into v.
func decodeEmbeddedJSON(text string, v interface{}) bool {
	raw := jsonObject.FindString(text)
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

// flexInt accepts a JSON number or numeric string; anything else decodes as 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*f = flexInt(v)
			return nil
		}
	}
	*f = 0
	return nil
}
