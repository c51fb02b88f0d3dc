// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package generative

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curatarr/internal/models"
)

const systemPrompt = `You are a film and television recommendation assistant.
Recommend titles the viewer has NOT already watched, based on their history.
Respond with JSON only, in exactly this shape:
{"recommendations":[{"title":"...","year":2010,"type":"movie|series","reason":"one sentence"}]}
Use the original release title and year. Do not include titles from the history.`

func buildUserPrompt(summary string, count int, filters models.Filters) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommend %d titles.\n\n", count)
	b.WriteString("Watch history (most recent first):\n")
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n")

	if desc := describeFilters(filters); desc != "" {
		b.WriteString("\nConstraints:\n")
		b.WriteString(desc)
	}
	return b.String()
}

// describeFilters renders active filters as prompt constraints, one per line.
func describeFilters(f models.Filters) string {
	var lines []string
	if f.Kind != "" {
		lines = append(lines, fmt.Sprintf("- Only recommend type %q.", f.Kind))
	}
	if len(f.Genres) > 0 {
		lines = append(lines, "- Each title must belong to at least one of these genres: "+strings.Join(f.Genres, ", ")+".")
	}
	if f.LanguageActive() {
		lines = append(lines, fmt.Sprintf("- Original language must be %q (ISO 639-1).", strings.ToLower(f.Language)))
	}
	switch {
	case f.YearMin > 0 && f.YearMax > 0:
		lines = append(lines, fmt.Sprintf("- Released between %d and %d inclusive.", f.YearMin, f.YearMax))
	case f.YearMin > 0:
		lines = append(lines, fmt.Sprintf("- Released in %d or later.", f.YearMin))
	case f.YearMax > 0:
		lines = append(lines, fmt.Sprintf("- Released in %d or earlier.", f.YearMax))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// decodeJSON unmarshals model output, tolerating code fences and prose
// around the JSON object.
func decodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return directErr
	}
	return json.Unmarshal([]byte(sanitized), target)
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" || trimmed[0] == '{' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return ""
}

func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	body := strings.TrimPrefix(content, "```")
	// Drop an optional language tag on the opening fence.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}
