// Package helpers carries small text utilities used at the engine boundary.
package helpers

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// LooksLikeHTML reports whether a document body appears to be markup rather
// than plain text.
func LooksLikeHTML(text string) bool {
	t := strings.TrimSpace(strings.ToLower(text))
	return strings.HasPrefix(t, "<!doctype") ||
		strings.HasPrefix(t, "<html") ||
		(strings.Contains(t, "<body") && strings.Contains(t, "</body>"))
}

// CleanDocumentText extracts readable text from an HTML bill body. Plain text
// passes through with whitespace collapsed. Extraction failure falls back to
// the raw input rather than dropping the document.
func CleanDocumentText(text string) string {
	if !LooksLikeHTML(text) {
		return collapseWhitespace(text)
	}
	u, _ := url.Parse("https://localhost/document")
	article, err := readability.FromReader(strings.NewReader(text), u)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return collapseWhitespace(text)
	}
	return collapseWhitespace(article.TextContent)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
