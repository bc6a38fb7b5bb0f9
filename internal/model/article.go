package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Article is the canonical shape every raw feed or sitemap entry is
// standardized into at the ingestion boundary. Identity is the URL.
type Article struct {
	ID              int64      `json:"id,omitempty"`
	URL             string     `json:"url"`
	Title           string     `json:"title"`
	Publisher       string     `json:"publisher"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	ContentSummary  string     `json:"content_summary,omitempty"`
	Author          string     `json:"author,omitempty"`
	CreatedAt       time.Time  `json:"created_at,omitempty"`
}

// Validate checks the fields required for persistence.
func (a *Article) Validate() error {
	u, err := url.Parse(a.URL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(a.Publisher) == "" {
		return fmt.Errorf("publisher is required")
	}
	return nil
}

// SourceWatermark marks the newest already-processed item for a logical
// source. One row per source_key; mutated only after a successful batch.
type SourceWatermark struct {
	SourceKey           string     `json:"source_key"`
	LastPublicationDate *time.Time `json:"last_publication_date,omitempty"`
	LastURL             string     `json:"last_url,omitempty"`
}

// LogEntry is one row of the append-only processing audit trail.
type LogEntry struct {
	CreatedAt  time.Time `json:"created_at"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	ArticleURL string    `json:"article_url,omitempty"`
	Metadata   string    `json:"metadata,omitempty"`
}

// ToUTC coerces a possibly naive stored timestamp to a UTC-aware one.
// SQLite hands back whatever location the driver picked; watermark
// comparisons need a single zone.
func ToUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
