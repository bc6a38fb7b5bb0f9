package filter

import (
	"strings"

	"github.com/gridwire/gridwire/internal/model"
)

// Decision is the three-way outcome of relevance filtering.
type Decision string

const (
	Keep     Decision = "KEEP"
	Reject   Decision = "REJECT"
	Escalate Decision = "ESCALATE"
)

const (
	keepThreshold     = 0.5
	escalateThreshold = 0.3
	urlHitScore       = 0.9
)

// Relevance scores an article's textual and URL relevance against a
// fixed keyword set. The keyword list is immutable after construction,
// so a single instance is safe for concurrent use without locking.
type Relevance struct {
	keywords []string
}

// DefaultKeywords covers the league token plus common team names.
func DefaultKeywords() []string {
	return []string{
		"nfl",
		"chiefs",
		"patriots",
		"packers",
		"cowboys",
		"49ers",
		"eagles",
		"giants",
		"jets",
		"ravens",
		"steelers",
		"bears",
	}
}

// NewRelevance creates a filter. An empty keyword list falls back to
// the defaults.
func NewRelevance(keywords []string) *Relevance {
	if len(keywords) == 0 {
		keywords = DefaultKeywords()
	}
	return &Relevance{keywords: keywords}
}

// FilterArticle scores the article and maps the score to a decision:
// >= 0.5 KEEP, >= 0.3 ESCALATE, otherwise REJECT.
func (r *Relevance) FilterArticle(a *model.Article) (Decision, float64) {
	score := r.Score(a)
	switch {
	case score >= keepThreshold:
		return Keep, score
	case score >= escalateThreshold:
		return Escalate, score
	default:
		return Reject, score
	}
}

// Score is the raw relevance score in [0,1]: the max of bounded text
// scores over title and summary, floored at 0.9 on a URL pattern hit.
func (r *Relevance) Score(a *model.Article) float64 {
	score := r.scoreText(a.Title)
	if s := r.scoreText(a.ContentSummary); s > score {
		score = s
	}
	if r.IsLeagueURLPattern(a.URL) && urlHitScore > score {
		score = urlHitScore
	}
	return score
}

// IsTeamMention reports whether any keyword appears in the text.
func (r *Relevance) IsTeamMention(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range r.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// TeamMentions returns the team keywords present in the text, in
// keyword-list order. The league token itself is not a team.
func (r *Relevance) TeamMentions(text string) []string {
	lower := strings.ToLower(text)
	var teams []string
	for _, k := range r.keywords {
		if k == "nfl" || k == "" {
			continue
		}
		if strings.Contains(lower, k) {
			teams = append(teams, k)
		}
	}
	return teams
}

// IsLeagueURLPattern reports whether the URL looks league-related:
// "nfl" or any keyword appears in the lowercased URL.
func (r *Relevance) IsLeagueURLPattern(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if strings.Contains(lower, "nfl") {
		return true
	}
	for _, k := range r.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// scoreText counts distinct keyword hits and maps them onto [0,1]
// linearly, saturating at three hits.
func (r *Relevance) scoreText(text string) float64 {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, k := range r.keywords {
		if k != "" && strings.Contains(lower, k) {
			hits++
		}
	}
	score := float64(hits) / 3.0
	if score > 1.0 {
		score = 1.0
	}
	return score
}
