package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gridwire/gridwire/internal/model"
)

// Remote mirrors writes to a PostgREST-style HTTP endpoint. All methods
// are best-effort: callers log failures and continue, the local store
// stays authoritative. Duplicate-key conflicts count as success.
type Remote struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRemote creates a mirror client for the given endpoint. An empty
// baseURL disables mirroring; every method becomes a no-op.
func NewRemote(baseURL, apiKey string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled reports whether a remote endpoint is configured.
func (r *Remote) Enabled() bool {
	return r != nil && r.baseURL != ""
}

// UpsertArticle mirrors an article row.
func (r *Remote) UpsertArticle(ctx context.Context, a *model.Article) error {
	if !r.Enabled() {
		return nil
	}
	payload := map[string]any{
		"url":              a.URL,
		"title":            a.Title,
		"publisher":        a.Publisher,
		"publication_date": a.PublicationDate,
		"content_summary":  a.ContentSummary,
		"author":           a.Author,
	}
	return r.post(ctx, "/articles", payload, "resolution=merge-duplicates")
}

// GetWatermark reads the mirrored watermark for a source key. Returns
// nil when the remote has no row.
func (r *Remote) GetWatermark(ctx context.Context, key string) (*model.SourceWatermark, error) {
	if !r.Enabled() {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/source_watermarks?source_key=eq.%s", r.baseURL, url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote get: unexpected status %d", resp.StatusCode)
	}

	var rows []struct {
		SourceKey           string     `json:"source_key"`
		LastPublicationDate *time.Time `json:"last_publication_date"`
		LastURL             string     `json:"last_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode watermark: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &model.SourceWatermark{
		SourceKey:           rows[0].SourceKey,
		LastPublicationDate: model.ToUTC(rows[0].LastPublicationDate),
		LastURL:             rows[0].LastURL,
	}, nil
}

// UpdateWatermark mirrors a watermark write.
func (r *Remote) UpdateWatermark(ctx context.Context, key string, t *time.Time, lastURL string) error {
	if !r.Enabled() {
		return nil
	}
	payload := map[string]any{
		"source_key": key,
	}
	if t != nil {
		payload["last_publication_date"] = t
	}
	if lastURL != "" {
		payload["last_url"] = lastURL
	}
	return r.post(ctx, "/source_watermarks", payload, "resolution=merge-duplicates")
}

// AppendLog mirrors an audit log row.
func (r *Remote) AppendLog(ctx context.Context, entry model.LogEntry) error {
	if !r.Enabled() {
		return nil
	}
	payload := map[string]any{
		"level":       entry.Level,
		"message":     entry.Message,
		"article_url": entry.ArticleURL,
		"metadata":    entry.Metadata,
	}
	return r.post(ctx, "/processing_log", payload, "")
}

func (r *Remote) post(ctx context.Context, path string, payload any, prefer string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	r.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	// 409 means the row already exists; the mirror is converged.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote post %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

func (r *Remote) setHeaders(req *http.Request) {
	if r.apiKey != "" {
		req.Header.Set("apikey", r.apiKey)
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}
