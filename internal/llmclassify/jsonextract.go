package llmclassify

import (
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// extractJSON pulls the JSON payload out of a model response: the first
// fenced code block if present, otherwise the first balanced array or
// object. Returns "" when neither is found.
func extractJSON(s string) string {
	if m := fencedJSON.FindStringSubmatch(s); m != nil {
		if candidate := strings.TrimSpace(m[1]); candidate != "" {
			return candidate
		}
	}

	// Whichever balanced block starts first wins, so an object wrapping an
	// array is returned whole.
	idxArr := strings.IndexByte(s, '[')
	idxObj := strings.IndexByte(s, '{')
	if idxObj >= 0 && (idxArr < 0 || idxObj < idxArr) {
		if b := firstBalanced(s, '{', '}'); b != "" {
			return b
		}
		return firstBalanced(s, '[', ']')
	}
	if b := firstBalanced(s, '[', ']'); b != "" {
		return b
	}
	return firstBalanced(s, '{', '}')
}

func firstBalanced(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
