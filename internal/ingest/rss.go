package ingest

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gridwire/gridwire/internal/model"
	"github.com/mmcdole/gofeed"
)

// ParseFeed parses raw RSS/Atom bytes into standardized articles for
// the given publisher. A malformed feed returns an error and no items.
func ParseFeed(data []byte, publisher string) ([]model.Article, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	articles := make([]model.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		articles = append(articles, standardizeFeedItem(item, publisher))
	}
	return articles, nil
}

// standardizeFeedItem maps one raw feed entry onto the canonical
// article shape. Missing fields stay zero-valued; the pipeline's dedup
// step drops entries without a usable URL.
func standardizeFeedItem(item *gofeed.Item, publisher string) model.Article {
	var published *time.Time
	if item.PublishedParsed != nil {
		published = model.ToUTC(item.PublishedParsed)
	} else if item.UpdatedParsed != nil {
		published = model.ToUTC(item.UpdatedParsed)
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}
	summary = StripHTML(summary)

	author := ""
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		author = item.Authors[0].Name
	}

	return model.Article{
		URL:             item.Link,
		Title:           item.Title,
		Publisher:       publisher,
		PublicationDate: published,
		ContentSummary:  summary,
		Author:          author,
	}
}
