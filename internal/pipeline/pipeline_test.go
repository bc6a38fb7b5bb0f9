package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gridwire/gridwire/internal/config"
	"github.com/gridwire/gridwire/internal/model"
	"github.com/gridwire/gridwire/internal/store"
)

func rssBody(items string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test Feed</title>` + items + `</channel></rss>`
}

func rssItem(title, link, pubDate string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate></item>`, title, link, pubDate)
}

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(src config.Source) *config.Config {
	return &config.Config{
		Defaults: config.Defaults{BaseDelay: 0.01},
		Sources:  []config.Source{src},
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config) (*Pipeline, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(cfg, st, Options{}), st
}

func TestPipeline_EndToEnd(t *testing.T) {
	feed := rssBody(rssItem("Chiefs win opener", "https://example.com/nfl/chiefs-win", "Sun, 07 Sep 2025 12:00:00 GMT"))
	server := serveFeed(t, feed)

	cfg := testConfig(config.Source{
		Name:      "nfl-news",
		URL:       config.StringList{server.URL},
		Type:      "rss",
		Publisher: "NFL.com",
	})
	p, st := newTestPipeline(t, cfg)
	ctx := context.Background()

	stats, err := p.ProcessSource(ctx, &cfg.Sources[0])
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := Stats{Total: 1, Kept: 1}
	if stats != want {
		t.Errorf("expected %+v, got %+v", want, stats)
	}

	article, err := st.GetArticleByURL(ctx, "https://example.com/nfl/chiefs-win")
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if article == nil {
		t.Fatal("expected article row after pipeline run")
	}
	if article.Title != "Chiefs win opener" {
		t.Errorf("unexpected title %q", article.Title)
	}

	events, err := st.ListEvents(ctx, store.EventFilter{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Confidence == nil {
		t.Error("expected event confidence to be written")
	}

	// Second run over the same feed: watermark suppresses everything
	stats, err = p.ProcessSource(ctx, &cfg.Sources[0])
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stats != (Stats{}) {
		t.Errorf("expected zero stats on second run, got %+v", stats)
	}
}

func TestPipeline_StatsConservation(t *testing.T) {
	feed := rssBody(
		rssItem("Chiefs win opener", "https://example.com/nfl/chiefs-win", "Sun, 07 Sep 2025 12:00:00 GMT") +
			rssItem("Chiefs staffer on stadium vote", "https://example.com/local/stadium", "Sun, 07 Sep 2025 13:00:00 GMT") +
			rssItem("Markets rally on rate cut", "https://example.com/markets", "Sun, 07 Sep 2025 14:00:00 GMT"),
	)
	server := serveFeed(t, feed)

	cfg := testConfig(config.Source{
		Name:      "mixed",
		URL:       config.StringList{server.URL},
		Type:      "rss",
		Publisher: "Example",
	})
	p, st := newTestPipeline(t, cfg)
	ctx := context.Background()

	stats, err := p.ProcessSource(ctx, &cfg.Sources[0])
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("expected total 3, got %d", stats.Total)
	}
	if stats.Total != stats.Kept+stats.Rejected+stats.Escalated {
		t.Errorf("conservation violated: %+v", stats)
	}
	if stats.Kept != 1 || stats.Escalated != 1 || stats.Rejected != 1 {
		t.Errorf("unexpected split %+v", stats)
	}

	// Escalated and rejected items are counted but never persisted
	for _, url := range []string{"https://example.com/local/stadium", "https://example.com/markets"} {
		a, err := st.GetArticleByURL(ctx, url)
		if err != nil {
			t.Fatalf("get %s: %v", url, err)
		}
		if a != nil {
			t.Errorf("expected %s not persisted", url)
		}
	}
}

func TestPipeline_SigningClaim(t *testing.T) {
	pubDate := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC1123Z)
	feed := rssBody(rssItem("Chiefs sign kicker to extension", "https://example.com/nfl/chiefs-sign-kicker", pubDate))
	server := serveFeed(t, feed)

	cfg := testConfig(config.Source{
		Name:      "nfl-news",
		URL:       config.StringList{server.URL},
		Type:      "rss",
		Publisher: "NFL.com",
	})
	p, st := newTestPipeline(t, cfg)
	ctx := context.Background()

	stats, err := p.ProcessSource(ctx, &cfg.Sources[0])
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if stats.Kept != 1 {
		t.Fatalf("expected 1 kept, got %+v", stats)
	}

	events, err := st.ListEvents(ctx, store.EventFilter{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventType != "signing" {
		t.Errorf("expected event type signing, got %q", events[0].EventType)
	}

	claims, err := st.ClaimsForEvent(ctx, events[0].ID)
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(claims))
	}
	if claims[0].Status != model.ClaimStatusReported {
		t.Errorf("expected status reported, got %q", claims[0].Status)
	}
	if claims[0].Confidence == nil {
		t.Error("expected claim confidence to be written")
	}

	citations, err := st.ClaimCitations(ctx, claims[0].ID)
	if err != nil {
		t.Fatalf("citations: %v", err)
	}
	if len(citations) != 1 || citations[0].URL != "https://example.com/nfl/chiefs-sign-kicker" {
		t.Errorf("unexpected citations %+v", citations)
	}
}

func TestPipeline_MalformedFeedSoftFails(t *testing.T) {
	server := serveFeed(t, "this is not a feed")

	cfg := testConfig(config.Source{
		Name: "broken",
		URL:  config.StringList{server.URL},
		Type: "rss",
	})
	p, _ := newTestPipeline(t, cfg)

	stats, err := p.ProcessSource(context.Background(), &cfg.Sources[0])
	if err != nil {
		t.Fatalf("parse failure must not abort the source: %v", err)
	}
	if stats != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestPipeline_UnsupportedTypeSkipped(t *testing.T) {
	cfg := testConfig(config.Source{
		Name: "weird",
		URL:  config.StringList{"https://example.com/feed"},
		Type: "api",
	})
	p, _ := newTestPipeline(t, cfg)

	stats, err := p.ProcessSource(context.Background(), &cfg.Sources[0])
	if err != nil {
		t.Fatalf("unsupported type must not error: %v", err)
	}
	if stats != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestPipeline_FetchFailureAbortsSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(config.Source{
		Name: "down",
		URL:  config.StringList{server.URL},
		Type: "rss",
	})
	p, _ := newTestPipeline(t, cfg)

	_, err := p.ProcessSource(context.Background(), &cfg.Sources[0])
	if err == nil {
		t.Error("expected error after retry exhaustion")
	}

	// Run isolates the failure and reports zero stats for the source
	results := p.Run(context.Background())
	if stats, ok := results["down"]; !ok || stats != (Stats{}) {
		t.Errorf("expected zero stats entry for failed source, got %+v", results)
	}
}

func TestPipeline_InBatchDedup(t *testing.T) {
	feed := rssBody(
		rssItem("Chiefs win opener", "https://example.com/nfl/chiefs-win", "Sun, 07 Sep 2025 12:00:00 GMT") +
			rssItem("Chiefs win opener updated", "https://example.com/nfl/chiefs-win", "Sun, 07 Sep 2025 15:00:00 GMT"),
	)
	server := serveFeed(t, feed)

	cfg := testConfig(config.Source{
		Name:      "dupes",
		URL:       config.StringList{server.URL},
		Type:      "rss",
		Publisher: "NFL.com",
	})
	p, st := newTestPipeline(t, cfg)
	ctx := context.Background()

	stats, err := p.ProcessSource(ctx, &cfg.Sources[0])
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("expected first-wins dedup to leave 1 item, got %+v", stats)
	}

	a, err := st.GetArticleByURL(ctx, "https://example.com/nfl/chiefs-win")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a == nil || a.Title != "Chiefs win opener" {
		t.Errorf("expected first occurrence persisted, got %+v", a)
	}
}

func TestNewerThanWatermark(t *testing.T) {
	base := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	older := base.Add(-time.Hour)
	newer := base.Add(time.Hour)

	tests := []struct {
		name    string
		article model.Article
		wm      *model.SourceWatermark
		want    bool
	}{
		{"no watermark", model.Article{URL: "u"}, nil, true},
		{"strictly newer date", model.Article{URL: "u", PublicationDate: &newer}, &model.SourceWatermark{LastPublicationDate: &base}, true},
		{"equal date", model.Article{URL: "u", PublicationDate: &base}, &model.SourceWatermark{LastPublicationDate: &base}, false},
		{"older date", model.Article{URL: "u", PublicationDate: &older}, &model.SourceWatermark{LastPublicationDate: &base}, false},
		{"no dates url differs", model.Article{URL: "u2"}, &model.SourceWatermark{LastURL: "u1"}, true},
		{"no dates url same", model.Article{URL: "u1"}, &model.SourceWatermark{LastURL: "u1"}, false},
		{"empty watermark row", model.Article{URL: "u"}, &model.SourceWatermark{}, true},
		{"candidate undated stored url", model.Article{URL: "u2"}, &model.SourceWatermark{LastPublicationDate: &base, LastURL: "u1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newerThanWatermark(&tt.article, tt.wm); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClassifyEventType(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Chiefs sign kicker to extension", "signing"},
		{"Patriots acquire cornerback in trade", "trade"},
		{"Star back placed on injured reserve", "injury"},
		{"Veteran lineman waived after camp", "roster"},
		{"Receiver suspended six games", "discipline"},
		{"Chiefs win opener", "news"},
	}
	for _, tt := range tests {
		if got := classifyEventType(tt.title); got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.title, tt.want, got)
		}
	}
}

func TestSummarizeEvent_FallbackToArticles(t *testing.T) {
	feed := rssBody(rssItem("Chiefs win opener", "https://example.com/nfl/chiefs-win", "Sun, 07 Sep 2025 12:00:00 GMT"))
	server := serveFeed(t, feed)

	cfg := testConfig(config.Source{
		Name:      "nfl-news",
		URL:       config.StringList{server.URL},
		Type:      "rss",
		Publisher: "NFL.com",
	})
	p, st := newTestPipeline(t, cfg)
	ctx := context.Background()

	if _, err := p.ProcessSource(ctx, &cfg.Sources[0]); err != nil {
		t.Fatalf("process: %v", err)
	}

	events, err := st.ListEvents(ctx, store.EventFilter{})
	if err != nil || len(events) != 1 {
		t.Fatalf("list events: %v (%d)", err, len(events))
	}

	// "win" matches no transaction pattern, so the event has no claims
	// and the summary falls back to the linked article title
	summary, err := p.SummarizeEvent(ctx, &events[0])
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != "Chiefs win opener" {
		t.Errorf("unexpected summary %q", summary)
	}

	stored, err := st.ListEvents(ctx, store.EventFilter{})
	if err != nil {
		t.Fatalf("relist: %v", err)
	}
	if stored[0].Summary != summary {
		t.Errorf("summary not persisted, got %q", stored[0].Summary)
	}
}

func TestParsePublishDate(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"2025-09-07T12:00:00Z", true},
		{"2025-09-07T12:00:00", true},
		{"2025-09-07", true},
		{"yesterday", false},
		{"", false},
	}
	for _, tt := range tests {
		got := parsePublishDate(tt.value)
		if (got != nil) != tt.ok {
			t.Errorf("%q: expected ok=%v, got %v", tt.value, tt.ok, got)
		}
	}
}
