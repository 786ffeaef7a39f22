package quizcoach

import (
	"regexp"
	"strings"
)

const fenceMarker = "```"

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// stripFences normalizes raw model output into a best-effort JSON-shaped
// string: surrounding prose and markdown code fences are removed and, when
// the remainder still doesn't start with '{', the first object-looking span
// is extracted. It never fails; if no object can be found the stripped text
// is returned unchanged so later stages fail predictably.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, fenceMarker) {
		// Drop the opening fence line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, fenceMarker)
		}
		if end := strings.Index(s, fenceMarker); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	} else if open := strings.Index(s, fenceMarker); open >= 0 {
		// Fences embedding the payload, or an unterminated opening fence.
		body := s[open+len(fenceMarker):]
		if nl := strings.Index(body, "\n"); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, fenceMarker); end >= 0 {
			body = body[:end]
		}
		s = strings.TrimSpace(body)
	}

	if strings.HasPrefix(s, "{") {
		return s
	}
	if span := jsonObjectRe.FindString(s); span != "" {
		return span
	}
	return s
}
