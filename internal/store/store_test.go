package store

import (
	"context"
	"testing"
	"time"

	"github.com/gridwire/gridwire/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func timePtr(t time.Time) *time.Time { return &t }

func TestUpsertArticle_InsertAndUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pub := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	a := &model.Article{
		URL:             "https://www.nfl.com/news/chiefs-win-opener",
		Title:           "Chiefs win opener",
		Publisher:       "NFL.com",
		PublicationDate: &pub,
	}

	id, err := s.UpsertArticle(ctx, a)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero article ID")
	}

	// Same URL again with extra fields should update in place
	a2 := &model.Article{
		URL:            a.URL,
		Title:          a.Title,
		Publisher:      a.Publisher,
		ContentSummary: "Kansas City opened the season with a win.",
		Author:         "Staff",
	}
	id2, err := s.UpsertArticle(ctx, a2)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if id2 != id {
		t.Errorf("expected same ID %d, got %d", id, id2)
	}

	stored, err := s.GetArticleByURL(ctx, a.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored == nil {
		t.Fatal("expected stored article")
	}
	if stored.ContentSummary != a2.ContentSummary {
		t.Errorf("summary not updated: %q", stored.ContentSummary)
	}
	if stored.PublicationDate == nil || !stored.PublicationDate.Equal(pub) {
		t.Errorf("publication date lost on update: %v", stored.PublicationDate)
	}
}

func TestUpsertArticle_EmptyFieldsKeepStored(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &model.Article{
		URL:       "https://example.com/a",
		Title:     "Original title",
		Publisher: "ESPN",
		Author:    "Jane Reporter",
	}
	if _, err := s.UpsertArticle(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	update := &model.Article{
		URL:       a.URL,
		Title:     "Updated title",
		Publisher: a.Publisher,
	}
	if _, err := s.UpsertArticle(ctx, update); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored, err := s.GetArticleByURL(ctx, a.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Title != "Updated title" {
		t.Errorf("expected updated title, got %q", stored.Title)
	}
	if stored.Author != "Jane Reporter" {
		t.Errorf("empty author overwrote stored value: %q", stored.Author)
	}
}

func TestUpsertArticle_Invalid(t *testing.T) {
	s := openTestStore(t)

	_, err := s.UpsertArticle(context.Background(), &model.Article{
		URL:       "ftp://example.com/a",
		Title:     "t",
		Publisher: "p",
	})
	if err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestGetArticleByURL_Missing(t *testing.T) {
	s := openTestStore(t)

	stored, err := s.GetArticleByURL(context.Background(), "https://example.com/none")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored != nil {
		t.Errorf("expected nil for missing URL, got %+v", stored)
	}
}

func TestWatermark_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	wm, err := s.GetWatermark(ctx, "nfl-news")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if wm != nil {
		t.Fatalf("expected nil watermark for fresh source, got %+v", wm)
	}

	ts := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	if err := s.UpsertWatermark(ctx, "nfl-news", &ts, "https://example.com/latest"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	wm, err = s.GetWatermark(ctx, "nfl-news")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if wm == nil {
		t.Fatal("expected watermark")
	}
	if wm.LastPublicationDate == nil || !wm.LastPublicationDate.Equal(ts) {
		t.Errorf("expected %v, got %v", ts, wm.LastPublicationDate)
	}
	if wm.LastURL != "https://example.com/latest" {
		t.Errorf("unexpected last URL %q", wm.LastURL)
	}
	if loc := wm.LastPublicationDate.Location(); loc != time.UTC {
		t.Errorf("expected UTC timestamp, got %v", loc)
	}
}

func TestUpsertWatermark_NilKeepsStored(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	if err := s.UpsertWatermark(ctx, "src", &ts, "https://example.com/a"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// nil timestamp and empty URL must not clobber stored values
	if err := s.UpsertWatermark(ctx, "src", nil, ""); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	wm, err := s.GetWatermark(ctx, "src")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if wm.LastPublicationDate == nil || !wm.LastPublicationDate.Equal(ts) {
		t.Errorf("nil timestamp clobbered stored value: %v", wm.LastPublicationDate)
	}
	if wm.LastURL != "https://example.com/a" {
		t.Errorf("empty URL clobbered stored value: %q", wm.LastURL)
	}

	// A real newer value still overrides
	ts2 := ts.Add(24 * time.Hour)
	if err := s.UpsertWatermark(ctx, "src", &ts2, "https://example.com/b"); err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	wm, err = s.GetWatermark(ctx, "src")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !wm.LastPublicationDate.Equal(ts2) || wm.LastURL != "https://example.com/b" {
		t.Errorf("expected updated watermark, got %+v", wm)
	}
}

func TestAppendLog_And_RecentLogs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		err := s.AppendLog(ctx, model.LogEntry{
			Level:      "info",
			Message:    msg,
			ArticleURL: "https://example.com/a",
		})
		if err != nil {
			t.Fatalf("append %q: %v", msg, err)
		}
	}

	entries, err := s.RecentLogs(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "third" {
		t.Errorf("expected newest first, got %q", entries[0].Message)
	}
}

func TestFindOrCreateEvent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	date := time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC)
	ev, created, err := s.FindOrCreateEvent(ctx, "abc123", "Chiefs win opener", &date, "game")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created {
		t.Error("expected created=true for new signature")
	}
	if ev.ID == 0 {
		t.Fatal("expected non-zero event ID")
	}

	ev2, created2, err := s.FindOrCreateEvent(ctx, "abc123", "ignored title", nil, "")
	if err != nil {
		t.Fatalf("reuse: %v", err)
	}
	if created2 {
		t.Error("expected created=false for existing signature")
	}
	if ev2.ID != ev.ID {
		t.Errorf("expected same event ID %d, got %d", ev.ID, ev2.ID)
	}
	if ev2.Title != "Chiefs win opener" {
		t.Errorf("reuse must not rewrite title, got %q", ev2.Title)
	}
	if ev2.UpdatedAt.Before(ev.UpdatedAt) {
		t.Error("expected updated_at bumped on reuse")
	}
}

func TestSetEventConfidenceIfUnset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev, _, err := s.FindOrCreateEvent(ctx, "sig1", "title", nil, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	wrote, err := s.SetEventConfidenceIfUnset(ctx, ev.ID, 75.0)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !wrote {
		t.Error("expected first write to land")
	}

	wrote, err = s.SetEventConfidenceIfUnset(ctx, ev.ID, 10.0)
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if wrote {
		t.Error("expected second write to be skipped")
	}

	events, err := s.ListEvents(ctx, EventFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Confidence == nil || *events[0].Confidence != 75.0 {
		t.Errorf("expected confidence 75.0 preserved, got %v", events[0].Confidence)
	}
}

func TestLinkEventArticle_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev, _, err := s.FindOrCreateEvent(ctx, "sig2", "title", nil, "")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	articleID, err := s.UpsertArticle(ctx, &model.Article{
		URL:       "https://example.com/a",
		Title:     "t",
		Publisher: "p",
	})
	if err != nil {
		t.Fatalf("upsert article: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.LinkEventArticle(ctx, ev.ID, articleID, "primary"); err != nil {
			t.Fatalf("link attempt %d: %v", i, err)
		}
	}

	articles, err := s.EventArticles(ctx, ev.ID)
	if err != nil {
		t.Fatalf("event articles: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("expected 1 linked article, got %d", len(articles))
	}
}

func TestFindOrCreateClaim_And_Sources(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev, _, err := s.FindOrCreateEvent(ctx, "sig3", "title", nil, "")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	claim, created, err := s.FindOrCreateClaim(ctx, ev.ID, "Chiefs sign kicker", "")
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}
	if !created {
		t.Error("expected created=true")
	}
	if claim.Status != model.ClaimStatusReported {
		t.Errorf("expected default status reported, got %q", claim.Status)
	}

	claim2, created2, err := s.FindOrCreateClaim(ctx, ev.ID, "Chiefs sign kicker", "")
	if err != nil {
		t.Fatalf("reuse claim: %v", err)
	}
	if created2 || claim2.ID != claim.ID {
		t.Errorf("expected existing claim %d, got %d (created=%v)", claim.ID, claim2.ID, created2)
	}

	srcID, err := s.FindOrCreateSource(ctx, "NFL.com", "NFL.com", "https://www.nfl.com")
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	srcID2, err := s.FindOrCreateSource(ctx, "NFL.com", "", "")
	if err != nil {
		t.Fatalf("reuse source: %v", err)
	}
	if srcID2 != srcID {
		t.Errorf("expected same source ID %d, got %d", srcID, srcID2)
	}

	err = s.AttachClaimSource(ctx, model.ClaimSource{
		ClaimID:  claim.ID,
		SourceID: srcID,
		URL:      "https://www.nfl.com/news/x",
		Citation: "Chiefs sign kicker",
	})
	if err != nil {
		t.Fatalf("attach source: %v", err)
	}

	citations, err := s.ClaimCitations(ctx, claim.ID)
	if err != nil {
		t.Fatalf("citations: %v", err)
	}
	if len(citations) != 1 || citations[0].URL != "https://www.nfl.com/news/x" {
		t.Errorf("unexpected citations %+v", citations)
	}

	claims, err := s.ClaimsForEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("claims for event: %v", err)
	}
	if len(claims) != 1 {
		t.Errorf("expected 1 claim, got %d", len(claims))
	}
}

func TestSetClaimConfidenceIfUnset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev, _, err := s.FindOrCreateEvent(ctx, "sig4", "title", nil, "")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	claim, _, err := s.FindOrCreateClaim(ctx, ev.ID, "text", "")
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}

	wrote, err := s.SetClaimConfidenceIfUnset(ctx, claim.ID, 60.0)
	if err != nil || !wrote {
		t.Fatalf("first write: wrote=%v err=%v", wrote, err)
	}
	wrote, err = s.SetClaimConfidenceIfUnset(ctx, claim.ID, 5.0)
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if wrote {
		t.Error("expected second write to be skipped")
	}
}

func TestListEvents_Filters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	date := time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC)
	if _, _, err := s.FindOrCreateEvent(ctx, "s1", "game one", &date, "game"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.FindOrCreateEvent(ctx, "s2", "trade one", timePtr(date.Add(24*time.Hour)), "trade"); err != nil {
		t.Fatal(err)
	}

	events, err := s.ListEvents(ctx, EventFilter{EventType: "trade"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].EventType != "trade" {
		t.Errorf("unexpected filter result %+v", events)
	}

	events, err = s.ListEvents(ctx, EventFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event with limit, got %d", len(events))
	}
}

func TestFindOrCreateEntity_And_Link(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.FindOrCreateEntity(ctx, "team", "Kansas City Chiefs")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id2, err := s.FindOrCreateEntity(ctx, "team", "Kansas City Chiefs")
	if err != nil {
		t.Fatalf("reuse: %v", err)
	}
	if id2 != id {
		t.Errorf("expected same entity ID %d, got %d", id, id2)
	}

	ev, _, err := s.FindOrCreateEvent(ctx, "sig5", "title", nil, "")
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.LinkEventEntity(ctx, ev.ID, id, "subject"); err != nil {
			t.Fatalf("link attempt %d: %v", i, err)
		}
	}
}

func TestGetEvent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, _, err := s.FindOrCreateEvent(ctx, "sig-get", "Chiefs trade pick", nil, "trade")
	if err != nil {
		t.Fatalf("FindOrCreateEvent: %v", err)
	}

	got, err := s.GetEvent(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got == nil {
		t.Fatal("GetEvent returned nil for existing event")
	}
	if got.Signature != "sig-get" || got.Title != "Chiefs trade pick" || got.EventType != "trade" {
		t.Errorf("GetEvent = %+v", got)
	}

	missing, err := s.GetEvent(ctx, created.ID+1000)
	if err != nil {
		t.Fatalf("GetEvent missing: %v", err)
	}
	if missing != nil {
		t.Errorf("GetEvent for absent id = %+v, want nil", missing)
	}
}

func TestReferenceTables(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.db.Exec(`INSERT INTO feeds (url, publisher) VALUES (?, ?)`,
		"https://example.com/feed.xml", "Example"); err != nil {
		t.Fatalf("insert feed: %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO feeds (url, publisher) VALUES (?, ?)`,
		"https://example.com/feed.xml", "Other"); err == nil {
		t.Error("duplicate feed URL should violate the unique constraint")
	}

	res, err := s.db.Exec(`INSERT INTO teams (name) VALUES (?)`, "Kansas City Chiefs")
	if err != nil {
		t.Fatalf("insert team: %v", err)
	}
	teamID, _ := res.LastInsertId()
	res, err = s.db.Exec(`INSERT INTO players (name, team_id) VALUES (?, ?)`, "Pat Q", teamID)
	if err != nil {
		t.Fatalf("insert player: %v", err)
	}
	playerID, _ := res.LastInsertId()

	_, err = s.db.Exec(`INSERT INTO player_team_history (player_id, team_id, start_date) VALUES (?, ?, ?)`,
		playerID, teamID, "2025-03-12")
	if err != nil {
		t.Fatalf("insert history: %v", err)
	}

	_, err = s.db.Exec(`INSERT INTO player_team_history (player_id, team_id) VALUES (?, ?)`,
		playerID+1000, teamID)
	if err == nil {
		t.Error("history row for unknown player should violate the foreign key")
	}
}
