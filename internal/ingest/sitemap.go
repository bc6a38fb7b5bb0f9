package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gridwire/gridwire/internal/model"
)

// SitemapEntry is one <url> element from a sitemap.
type SitemapEntry struct {
	URL     string
	LastMod string
}

// nowFunc is injectable for template-expansion tests.
var nowFunc = time.Now

// ApplyDynamicTemplate expands {YYYY} and {MM} placeholders using the
// current UTC year and month, for monthly sitemap URLs.
func ApplyDynamicTemplate(url string) string {
	if !strings.Contains(url, "{YYYY}") && !strings.Contains(url, "{MM}") {
		return url
	}
	now := nowFunc().UTC()
	url = strings.ReplaceAll(url, "{YYYY}", fmt.Sprintf("%04d", now.Year()))
	url = strings.ReplaceAll(url, "{MM}", fmt.Sprintf("%02d", int(now.Month())))
	return url
}

// ParseSitemap extracts (url, lastmod) pairs from sitemap XML or HTML.
// The lenient HTML parser accepts both; entries without a <loc> are
// skipped. A document that cannot be parsed at all returns an error.
func ParseSitemap(data []byte) ([]SitemapEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}

	var entries []SitemapEntry
	doc.Find("url").Each(func(_ int, s *goquery.Selection) {
		loc := strings.TrimSpace(s.Find("loc").First().Text())
		if loc == "" {
			return
		}
		entries = append(entries, SitemapEntry{
			URL:     loc,
			LastMod: strings.TrimSpace(s.Find("lastmod").First().Text()),
		})
	})
	return entries, nil
}

// SitemapArticles maps sitemap entries onto canonical articles using
// the publisher default and lastmod as the publication date. The URL
// doubles as the title until content extraction fills it in.
func SitemapArticles(entries []SitemapEntry, publisher string) []model.Article {
	articles := make([]model.Article, 0, len(entries))
	for _, e := range entries {
		articles = append(articles, model.Article{
			URL:             e.URL,
			Title:           e.URL,
			Publisher:       publisher,
			PublicationDate: parseLastMod(e.LastMod),
		})
	}
	return articles
}

// parseLastMod accepts the common sitemap date shapes.
func parseLastMod(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return model.ToUTC(&t)
		}
	}
	return nil
}
