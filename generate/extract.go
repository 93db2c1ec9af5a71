package generate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/polyprompt/polyprompt/llmerr"
)

var fencedJSONBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// ExtractJSON recovers a JSON object from model text output, trying three
// strategies in order: a direct parse of the whole text, a fenced code
// block (``` or ```json), and the first balanced {...} span in the text. It
// returns an llmerr.KindResponseFormat error naming provider if none of the
// three strategies produce valid JSON.
func ExtractJSON(provider, text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)

	if raw, ok := tryParse(trimmed); ok {
		return raw, nil
	}

	if m := fencedJSONBlock.FindStringSubmatch(text); m != nil {
		if raw, ok := tryParse(strings.TrimSpace(m[1])); ok {
			return raw, nil
		}
	}

	if span, ok := firstBalancedObject(text); ok {
		if raw, ok := tryParse(span); ok {
			return raw, nil
		}
	}

	return nil, llmerr.New(provider, llmerr.KindResponseFormat, nil).
		WithMessage("could not extract a JSON object from model output")
}

func tryParse(s string) (json.RawMessage, bool) {
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, false
	}
	return json.RawMessage(s), true
}

// firstBalancedObject scans text for the first top-level {...} span,
// tracking brace depth and skipping over braces inside string literals.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
