package utils

import (
	"strings"
)

// ExtractJSONObject returns the JSON object embedded in model output. It
// strips Markdown fences and any prose before the first '{' or after the
// last '}'. Input without an object is returned trimmed.
func ExtractJSONObject(input string) string {
	cleaned := strings.TrimSpace(input)
	if fence := strings.Index(cleaned, "```"); fence >= 0 {
		rest := cleaned[fence+3:]
		// drop the info string (```json)
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		cleaned = strings.TrimSpace(rest)
	}

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end < start {
		return cleaned
	}
	return cleaned[start : end+1]
}
