package ingest

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML flattens markup in feed descriptions to plain text. Feeds
// routinely embed anchor tags and tracking pixels in summaries; claim
// matching wants the visible text only.
func StripHTML(input string) string {
	if !strings.ContainsRune(input, '<') {
		return strings.TrimSpace(input)
	}

	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var b strings.Builder
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
