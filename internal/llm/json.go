package llm

import (
	"encoding/json"
	"strings"
)

// FirstJSONArray extracts the first well-formed JSON array substring from a
// model reply. Models occasionally wrap output in Markdown fences or prose
// despite instructions, so the raw text is cleaned before scanning.
func FirstJSONArray(raw string) (string, bool) {
	s := stripFences(raw)

	for start := strings.IndexByte(s, '['); start != -1; {
		end := matchBracket(s, start)
		if end != -1 {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(s[start+1:], '[')
		if next == -1 {
			break
		}
		start = start + 1 + next
	}

	return "", false
}

// stripFences removes ```json ... ``` or ``` ... ``` wrappers.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// matchBracket returns the index of the ']' closing the '[' at start, or -1.
// String literals are skipped so brackets inside descriptions don't count.
func matchBracket(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
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
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
