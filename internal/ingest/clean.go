// Package ingest turns raw connector payloads into chunked documents
// ready for embedding. Text is normalized first, then split into
// token-budgeted chunks with overlap, and finally mapped to documents
// with stable IDs so re-ingesting the same source updates in place.
package ingest

import (
	"regexp"
	"strings"
)

var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes markdown-ish source text for retrieval. Fenced
// code blocks rarely embed well, so they collapse to a [CODE_BLOCK]
// placeholder; inline code keeps its content in brackets.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = fencedCodeRe.ReplaceAllString(text, "[CODE_BLOCK]")
	text = inlineCodeRe.ReplaceAllString(text, "[$1]")

	// Normalize line endings before collapsing runs.
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
