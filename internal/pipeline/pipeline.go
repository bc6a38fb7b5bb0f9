// Package pipeline orchestrates incremental feed ingestion: fetch,
// dedup against per-source watermarks, relevance filtering, persistence
// and event clustering.
package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gridwire/gridwire/internal/config"
	"github.com/gridwire/gridwire/internal/extract"
	"github.com/gridwire/gridwire/internal/filter"
	"github.com/gridwire/gridwire/internal/ingest"
	"github.com/gridwire/gridwire/internal/logging"
	"github.com/gridwire/gridwire/internal/model"
	"github.com/gridwire/gridwire/internal/score"
	"github.com/gridwire/gridwire/internal/signature"
	"github.com/gridwire/gridwire/internal/store"
	"github.com/gridwire/gridwire/internal/worker"
)

const defaultUserAgent = "gridwire/1.0 (+https://github.com/gridwire/gridwire)"

// Stats counts the fate of every item that survived dedup for one
// source run. Total == Kept + Rejected + Escalated always holds.
type Stats struct {
	Total     int
	Kept      int
	Rejected  int
	Escalated int
}

// Options carries the optional pipeline collaborators.
type Options struct {
	// Remote mirrors persistence writes; nil disables mirroring.
	Remote *store.Remote

	// Keywords overrides the default relevance keyword list.
	Keywords []string

	// ClaimPatterns overrides the claim allowlist regexes.
	ClaimPatterns []string

	// UserAgent for outbound requests.
	UserAgent string
}

// Pipeline processes configured sources sequentially; fetches within a
// source run concurrently up to the source's limit.
type Pipeline struct {
	cfg       *config.Config
	store     *store.Store
	remote    *store.Remote
	relevance *filter.Relevance
	claims    *extract.ClaimExtractor
	tiers     *score.TierClassifier
	userAgent string
	logger    *log.Logger
}

// New creates a pipeline over the given sources config and store.
func New(cfg *config.Config, st *store.Store, opts Options) *Pipeline {
	relevance := filter.NewRelevance(opts.Keywords)
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Pipeline{
		cfg:       cfg,
		store:     st,
		remote:    opts.Remote,
		relevance: relevance,
		claims:    extract.NewClaimExtractor(relevance, opts.ClaimPatterns),
		tiers:     score.NewTierClassifier(nil),
		userAgent: userAgent,
		logger:    logging.WithPrefix("pipeline"),
	}
}

// Run processes every enabled source and returns per-source stats.
// Source failures are logged and isolated; the map always has an entry
// for each enabled source.
func (p *Pipeline) Run(ctx context.Context) map[string]Stats {
	results := make(map[string]Stats, len(p.cfg.Sources))
	for i := range p.cfg.Sources {
		src := &p.cfg.Sources[i]
		if !src.IsEnabled() {
			continue
		}
		stats, err := p.ProcessSource(ctx, src)
		if err != nil {
			p.logger.Error("source failed", "source", src.Key(), "error", err)
			results[src.Key()] = Stats{}
			continue
		}
		results[src.Key()] = stats
	}
	return results
}

// ProcessSource runs one source through the full state machine:
// load watermark, fetch, dedup, filter, persist, update watermark.
// Fetch and persistence failures abort the source with zero stats and
// the prior watermark intact.
func (p *Pipeline) ProcessSource(ctx context.Context, src *config.Source) (Stats, error) {
	key := src.Key()

	wm, err := p.store.GetWatermark(ctx, key)
	if err != nil {
		return Stats{}, fmt.Errorf("load watermark: %w", err)
	}

	articles, err := p.fetchArticles(ctx, src)
	if err != nil {
		return Stats{}, err
	}

	fresh := p.dedup(articles, wm)

	stats := Stats{Total: len(fresh)}
	var newestDate *time.Time
	var newestURL string

	for i := range fresh {
		a := &fresh[i]
		decision, relScore := p.relevance.FilterArticle(a)
		switch decision {
		case filter.Keep:
			stats.Kept++
			if err := p.persistKept(ctx, src, a, relScore); err != nil {
				return Stats{}, fmt.Errorf("persist %s: %w", a.URL, err)
			}
			if a.PublicationDate != nil && (newestDate == nil || a.PublicationDate.After(*newestDate)) {
				newestDate = a.PublicationDate
				newestURL = a.URL
			}
		case filter.Escalate:
			stats.Escalated++
			p.logger.Debug("escalated for review", "url", a.URL, "score", relScore)
		default:
			stats.Rejected++
		}
	}

	if err := p.store.UpsertWatermark(ctx, key, newestDate, newestURL); err != nil {
		return Stats{}, fmt.Errorf("update watermark: %w", err)
	}
	if p.remote.Enabled() {
		if err := p.remote.UpdateWatermark(ctx, key, newestDate, newestURL); err != nil {
			p.logger.Warn("remote watermark mirror failed", "source", key, "error", err)
		}
	}

	p.logger.Info("source processed", "source", key,
		"total", stats.Total, "kept", stats.Kept,
		"rejected", stats.Rejected, "escalated", stats.Escalated)
	return stats, nil
}

// fetchArticles resolves the source URLs, fetches them concurrently
// with retry, and parses them into canonical articles. Parse failures
// soft-fail to empty item lists so one malformed payload cannot abort
// the batch.
func (p *Pipeline) fetchArticles(ctx context.Context, src *config.Source) ([]model.Article, error) {
	urls := make([]string, 0, len(src.URL)+1)
	urls = append(urls, src.URL...)
	if src.URLTemplate != "" {
		urls = append(urls, ingest.ApplyDynamicTemplate(src.URLTemplate))
	}
	if len(urls) == 0 {
		p.logger.Warn("source has no URL", "source", src.Key())
		return nil, nil
	}

	switch src.Type {
	case "rss", "sitemap":
	default:
		p.logger.Warn("unsupported source type", "source", src.Key(), "type", src.Type)
		return nil, nil
	}

	fetcher := ingest.NewFetcher(p.cfg.FetchTimeout(src), p.userAgent, 0)
	policy := ingest.RetryPolicy{
		Retries:   p.cfg.RetryCount(),
		BaseDelay: p.cfg.RetryBaseDelay(),
		Timeout:   p.cfg.FetchTimeout(src),
	}

	payloads, err := ingest.MapLimit(ctx, urls, p.cfg.MaxParallel(src), func(ctx context.Context, url string) ([]byte, error) {
		return policy.FetchWithRetry(ctx, fetcher, url)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	var articles []model.Article
	for i, payload := range payloads {
		if payload == nil {
			continue
		}
		switch src.Type {
		case "rss":
			items, err := ingest.ParseFeed(payload, src.Publisher)
			if err != nil {
				p.logger.Warn("feed parse failed", "url", urls[i], "error", err)
				continue
			}
			articles = append(articles, items...)
		case "sitemap":
			entries, err := ingest.ParseSitemap(payload)
			if err != nil {
				p.logger.Warn("sitemap parse failed", "url", urls[i], "error", err)
				continue
			}
			articles = append(articles, p.sitemapArticles(ctx, src, entries)...)
		}
	}
	return articles, nil
}

// sitemapArticles turns sitemap entries into articles, optionally
// enriching them with full page content through the worker pool.
func (p *Pipeline) sitemapArticles(ctx context.Context, src *config.Source, entries []ingest.SitemapEntry) []model.Article {
	if src.DaysBack > 0 {
		recent := entries[:0]
		for _, e := range entries {
			if extract.IsRecent(e.URL, src.DaysBack, time.Now().UTC()) {
				recent = append(recent, e)
			}
		}
		entries = recent
	}
	if src.MaxArticles > 0 && len(entries) > src.MaxArticles {
		entries = entries[:src.MaxArticles]
	}

	base := ingest.SitemapArticles(entries, src.Publisher)
	if !src.ExtractContent {
		return base
	}

	urls := make([]string, len(base))
	byURL := make(map[string]int, len(base))
	for i, a := range base {
		urls[i] = a.URL
		byURL[a.URL] = i
	}

	extractor := extract.NewArticleExtractor(p.cfg.FetchTimeout(src), p.userAgent, 0, worker.NewLimiter(2, 4))
	processor := worker.NewBatchProcessor(extractor, p.cfg.MaxParallel(src))

	for _, res := range processor.ProcessURLs(ctx, urls) {
		if res.Error != nil || res.Article == nil {
			continue
		}
		i, ok := byURL[res.URL]
		if !ok {
			continue
		}
		if res.Article.Title != "" {
			base[i].Title = res.Article.Title
		}
		base[i].ContentSummary = res.Article.Content
		base[i].Author = res.Article.Author
		if t := parsePublishDate(res.Article.PublishDate); t != nil {
			base[i].PublicationDate = t
		}
	}
	return base
}

// dedup drops in-batch URL duplicates (first occurrence wins) and
// items not newer than the stored watermark.
func (p *Pipeline) dedup(articles []model.Article, wm *model.SourceWatermark) []model.Article {
	seen := make(map[string]bool, len(articles))
	var fresh []model.Article
	for _, a := range articles {
		if a.URL == "" || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		if !newerThanWatermark(&a, wm) {
			continue
		}
		fresh = append(fresh, a)
	}
	return fresh
}

// newerThanWatermark: with two parseable dates the candidate must be
// strictly newer; with only a stored URL the candidate URL must differ;
// with no watermark everything passes.
func newerThanWatermark(a *model.Article, wm *model.SourceWatermark) bool {
	if wm == nil {
		return true
	}
	if a.PublicationDate != nil && wm.LastPublicationDate != nil {
		return a.PublicationDate.After(*wm.LastPublicationDate)
	}
	if wm.LastURL != "" {
		return a.URL != wm.LastURL
	}
	return true
}

// persistKept upserts one kept article and runs the extended flow:
// audit log, event clustering, claims, confidence.
func (p *Pipeline) persistKept(ctx context.Context, src *config.Source, a *model.Article, relScore float64) error {
	if a.Publisher == "" {
		a.Publisher = src.Publisher
	}

	articleID, err := p.store.UpsertArticle(ctx, a)
	if err != nil {
		return fmt.Errorf("upsert article: %w", err)
	}
	a.ID = articleID

	entry := model.LogEntry{
		Level:      "info",
		Message:    "article kept",
		ArticleURL: a.URL,
		Metadata:   fmt.Sprintf(`{"source":%q,"score":%.2f}`, src.Key(), relScore),
	}
	if err := p.store.AppendLog(ctx, entry); err != nil {
		return fmt.Errorf("append log: %w", err)
	}

	if p.remote.Enabled() {
		if err := p.remote.UpsertArticle(ctx, a); err != nil {
			p.logger.Warn("remote article mirror failed", "url", a.URL, "error", err)
		}
		if err := p.remote.AppendLog(ctx, entry); err != nil {
			p.logger.Warn("remote log mirror failed", "url", a.URL, "error", err)
		}
	}

	return p.clusterArticle(ctx, a)
}

// clusterArticle attaches the article to its event by signature and
// maintains claims and confidence.
func (p *Pipeline) clusterArticle(ctx context.Context, a *model.Article) error {
	sig := signature.EventSignature(a.Title, a.PublicationDate)
	ev, created, err := p.store.FindOrCreateEvent(ctx, sig, a.Title, dateOnly(a.PublicationDate), classifyEventType(a.Title))
	if err != nil {
		return fmt.Errorf("find or create event: %w", err)
	}
	if created {
		p.logger.Debug("new event", "signature", sig, "title", a.Title)
	}

	if err := p.store.LinkEventArticle(ctx, ev.ID, a.ID, "primary"); err != nil {
		return fmt.Errorf("link event article: %w", err)
	}

	for _, team := range p.relevance.TeamMentions(a.Title) {
		entityID, err := p.store.FindOrCreateEntity(ctx, "team", team)
		if err != nil {
			return fmt.Errorf("find or create entity: %w", err)
		}
		if err := p.store.LinkEventEntity(ctx, ev.ID, entityID, "subject"); err != nil {
			return fmt.Errorf("link event entity: %w", err)
		}
	}

	tier := p.tierFor(a)

	for _, candidate := range p.claims.Extract(a.Title, a.ContentSummary) {
		claim, _, err := p.store.FindOrCreateClaim(ctx, ev.ID, candidate.Text, candidate.Status)
		if err != nil {
			return fmt.Errorf("find or create claim: %w", err)
		}

		sourceID, err := p.store.FindOrCreateSource(ctx, a.Publisher, a.Publisher, a.URL)
		if err != nil {
			return fmt.Errorf("find or create source: %w", err)
		}
		err = p.store.AttachClaimSource(ctx, model.ClaimSource{
			ClaimID:  claim.ID,
			SourceID: sourceID,
			URL:      a.URL,
			Citation: candidate.Citation,
		})
		if err != nil {
			return fmt.Errorf("attach claim source: %w", err)
		}

		claimConf := score.ClaimConfidence([]score.Evidence{{SourceTier: tier, PublishedAt: a.PublicationDate}})
		if _, err := p.store.SetClaimConfidenceIfUnset(ctx, claim.ID, claimConf); err != nil {
			return fmt.Errorf("set claim confidence: %w", err)
		}
	}

	linked, err := p.store.EventArticles(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("event articles: %w", err)
	}
	evidence := make([]score.Evidence, 0, len(linked))
	for i := range linked {
		evidence = append(evidence, score.Evidence{
			SourceTier:  p.tierFor(&linked[i]),
			PublishedAt: linked[i].PublicationDate,
		})
	}
	conf := score.EventConfidence(evidence)
	if _, err := p.store.SetEventConfidenceIfUnset(ctx, ev.ID, conf); err != nil {
		return fmt.Errorf("set event confidence: %w", err)
	}
	return nil
}

// tierFor classifies an article's source tier, preferring the URL host.
func (p *Pipeline) tierFor(a *model.Article) string {
	if tier := p.tiers.ClassifyURL(a.URL); tier != "" {
		return tier
	}
	return p.tiers.ClassifyPublisher(a.Publisher)
}

// dateOnly truncates a timestamp to its calendar date for event rows.
func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

var eventTypePatterns = []struct {
	kind    string
	pattern *regexp.Regexp
}{
	{"signing", regexp.MustCompile(`(?i)\b(signs?|re-signs?|agrees? to)\b`)},
	{"trade", regexp.MustCompile(`(?i)\b(traded?|trades? for|acquires?|acquired)\b`)},
	{"injury", regexp.MustCompile(`(?i)\b(injured reserve|injury|tear|fracture|sprain|strain)\b`)},
	{"roster", regexp.MustCompile(`(?i)\b(waived|released|cut|activated)\b`)},
	{"discipline", regexp.MustCompile(`(?i)\b(suspended|suspension)\b`)},
}

// classifyEventType buckets a headline into a coarse transaction kind.
func classifyEventType(title string) string {
	for _, et := range eventTypePatterns {
		if et.pattern.MatchString(title) {
			return et.kind
		}
	}
	return "news"
}

var publishDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parsePublishDate parses the loosely formatted dates that article
// pages embed in meta tags.
func parsePublishDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range publishDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
