package analysis

import (
	"encoding/json"
	"strings"

	"tone-coach-service/internal/models"
)

const maxBullets = 3

// Normalize turns free-form model output into an AnalysisResult. It tries a strict
// parse of the whole text, then of the last top-level {...} block, and otherwise
// returns models.FallbackResult(). It never fails.
func Normalize(raw string) models.AnalysisResult {
	res, _ := normalize(raw)
	return res
}

// normalize also reports whether the fallback was used.
func normalize(raw string) (models.AnalysisResult, bool) {
	if res, ok := parseResult(raw); ok {
		return res, false
	}
	if block, ok := lastObject(raw); ok {
		if res, ok := parseResult(block); ok {
			return res, false
		}
	}
	return models.FallbackResult(), true
}

func parseResult(s string) (models.AnalysisResult, bool) {
	s = strings.TrimSpace(s)
	// null and scalars decode into a zero struct without error.
	if !strings.HasPrefix(s, "{") {
		return models.AnalysisResult{}, false
	}
	var res models.AnalysisResult
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return models.AnalysisResult{}, false
	}
	return sanitize(res), true
}

// sanitize keeps a parsed result inside the documented value ranges.
func sanitize(res models.AnalysisResult) models.AnalysisResult {
	tone := strings.ToLower(strings.TrimSpace(res.Tone))
	if !models.IsTone(tone) {
		tone = "neutral"
	}
	res.Tone = tone

	switch {
	case res.Confidence == 0:
		res.Confidence = 3
	case res.Confidence < 1:
		res.Confidence = 1
	case res.Confidence > 5:
		res.Confidence = 5
	}

	if len(res.Bullets) > maxBullets {
		res.Bullets = res.Bullets[:maxBullets]
	}
	return res
}

// lastObject returns the last balanced, top-level brace block in s. Braces inside
// JSON strings are ignored.
func lastObject(s string) (string, bool) {
	depth, start := 0, -1
	inString, escaped := false, false
	found := ""
	ok := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				found, ok = s[start:i+1], true
			}
		}
	}
	return found, ok
}
