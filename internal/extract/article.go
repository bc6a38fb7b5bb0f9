package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gridwire/gridwire/internal/util"
)

// Waiter gates outbound requests, typically a per-domain rate limiter.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// ExtractedArticle is the structured result of pulling full content
// from an article page. Callers treat extraction as best-effort: a nil
// result means the page could not be fetched or parsed.
type ExtractedArticle struct {
	Title       string
	Content     string
	Author      string
	PublishDate string
	URL         string
}

const maxContentParagraphs = 10

var (
	urlDatePattern     = regexp.MustCompile(`/(\d{4})/(\d{1,2})/(\d{1,2})/`)
	titleSuffixPattern = regexp.MustCompile(`\s*\|\s*NFL\.com\s*$`)
)

// ArticleExtractor fetches article pages and extracts structured
// fields through a selector cascade. It respects robots.txt and
// per-domain rate limits.
type ArticleExtractor struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    Waiter
}

// NewArticleExtractor creates an extractor with the given fetch policy.
func NewArticleExtractor(timeout time.Duration, userAgent string, maxBytes int64, limiter Waiter) *ArticleExtractor {
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	return &ArticleExtractor{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc("", "", ""),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		robots:    util.NewRobotsChecker(userAgent, timeout),
		limiter:   limiter,
	}
}

// IsRecent reports whether the URL looks recent based on an embedded
// /YYYY/MM/DD/ path segment. URLs without a date pass by default.
func IsRecent(rawURL string, daysBack int, now time.Time) bool {
	m := urlDatePattern.FindStringSubmatch(rawURL)
	if m == nil {
		return true
	}
	t, err := time.Parse("2006-1-2", fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]))
	if err != nil {
		return true
	}
	cutoff := now.UTC().AddDate(0, 0, -daysBack)
	return !t.Before(cutoff)
}

// Extract fetches the URL and pulls structured article fields.
// Returns nil on any fetch or parse failure.
func (e *ArticleExtractor) Extract(ctx context.Context, rawURL string) *ExtractedArticle {
	if !e.robots.IsAllowed(ctx, rawURL) {
		return nil
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, rawURL); err != nil {
			return nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		return nil
	}

	return parseArticle(doc, rawURL)
}

func parseArticle(doc *goquery.Document, rawURL string) *ExtractedArticle {
	title := firstText(doc,
		`h1[data-testid="headline"]`,
		"h1.headline",
		"h1",
		".article-title",
		`[data-testid="headline"]`,
	)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	title = strings.TrimSpace(titleSuffixPattern.ReplaceAllString(title, ""))

	var content string
	for _, sel := range []string{
		`[data-testid="article-body"]`,
		".article-body",
		".story-body",
		".content-body",
		"article",
		".article-content",
	} {
		body := doc.Find(sel).First()
		if body.Length() == 0 {
			continue
		}
		body.Find("script, style, nav, header, footer, aside").Remove()

		var parts []string
		body.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				parts = append(parts, text)
			}
			return len(parts) < maxContentParagraphs
		})
		if len(parts) > 0 {
			content = strings.Join(parts, "\n\n")
			break
		}
	}

	author := firstText(doc,
		`[data-testid="author"]`,
		".author",
		".byline",
	)

	publishDate := ""
	for _, sel := range []string{`[data-testid="publish-date"]`, ".publish-date", "time[datetime]"} {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if dt, ok := el.Attr("datetime"); ok && dt != "" {
			publishDate = dt
		} else {
			publishDate = strings.TrimSpace(el.Text())
		}
		if publishDate != "" {
			break
		}
	}

	if title == "" && content == "" {
		return nil
	}

	return &ExtractedArticle{
		Title:       title,
		Content:     content,
		Author:      author,
		PublishDate: publishDate,
		URL:         rawURL,
	}
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if el := doc.Find(sel).First(); el.Length() > 0 {
			if text := strings.TrimSpace(el.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}
