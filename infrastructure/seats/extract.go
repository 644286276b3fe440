package seats

import "strings"

// extractJSON finds the JSON object in a model response that may wrap it in
// prose or markdown fences. It tries a ```json fence, then any fence whose
// body starts with '{', then the first balanced top-level object. It returns
// "" when none is found.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if body, ok := fenced(response, "```json"); ok {
		return body
	}
	if body, ok := fenced(response, "```"); ok && strings.HasPrefix(body, "{") {
		return body
	}
	return balancedObject(response)
}

// fenced returns the trimmed body of the first fence opened by marker.
// Any language tag on the opening line is skipped.
func fenced(s, marker string) (string, bool) {
	start := strings.Index(s, marker)
	if start == -1 {
		return "", false
	}
	rest := s[start+len(marker):]
	if marker == "```" {
		if nl := strings.IndexByte(rest, '\n'); nl != -1 {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// balancedObject scans from the first '{' to its matching '}', ignoring
// braces inside string literals.
func balancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
