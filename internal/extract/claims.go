package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gridwire/gridwire/internal/filter"
	"github.com/gridwire/gridwire/internal/model"
	"gopkg.in/yaml.v3"
)

// ClaimCandidate is a factual assertion extracted from article text,
// before it is attached to an event.
type ClaimCandidate struct {
	Text     string
	Status   string
	Citation string
}

const snippetLen = 140

// defaultAllowlist covers the transaction lexicon: signings, trades,
// injuries, waivers, activations, suspensions.
var defaultAllowlist = []string{
	`\b(signs?|re-signs?|agrees? to)\b`,
	`\b(traded?|trades? for|acquires?|acquired)\b`,
	`\b(placed? on (ir|injured reserve)|suffers?|tear|fracture|sprain|strain|injury)\b`,
	`\b(waived|released|cut)\b`,
	`\b(activated|designated to return)\b`,
	`\b(suspended|suspension)\b`,
}

// allowlistFile is the on-disk shape of a pattern override file.
type allowlistFile struct {
	Patterns []string `yaml:"patterns"`
}

// ClaimExtractor emits claim candidates from relevant article text
// using an allowlist of regex patterns. The pattern set is compiled at
// construction and owned by the instance, so extractors are cheap to
// inject and isolated in tests.
type ClaimExtractor struct {
	relevance *filter.Relevance
	pattern   *regexp.Regexp
}

// NewClaimExtractor compiles the given patterns; an empty list uses
// the built-in defaults. Invalid patterns are skipped individually.
func NewClaimExtractor(relevance *filter.Relevance, patterns []string) *ClaimExtractor {
	if relevance == nil {
		relevance = filter.NewRelevance(nil)
	}
	if len(patterns) == 0 {
		patterns = defaultAllowlist
	}

	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err == nil {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		valid = defaultAllowlist
	}

	return &ClaimExtractor{
		relevance: relevance,
		pattern:   regexp.MustCompile("(?i)" + strings.Join(valid, "|")),
	}
}

// LoadAllowlist reads a YAML pattern file. A missing or malformed file
// is an error; callers decide whether to fall back to the defaults.
func LoadAllowlist(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allowlist: %w", err)
	}
	var f allowlistFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse allowlist: %w", err)
	}
	out := make([]string, 0, len(f.Patterns))
	for _, p := range f.Patterns {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// Extract returns at most one claim candidate for the article text.
// Irrelevant content (relevance REJECT) yields nothing; so does text
// that matches no allowlisted pattern.
func (e *ClaimExtractor) Extract(title, content string) []ClaimCandidate {
	decision, _ := e.relevance.FilterArticle(&model.Article{
		Title:          title,
		ContentSummary: content,
	})
	if decision == filter.Reject {
		return nil
	}

	if !e.pattern.MatchString(title + ". " + content) {
		return nil
	}

	snippet := strings.TrimSpace(title)
	if snippet == "" {
		if len(content) > snippetLen {
			snippet = content[:snippetLen] + "…"
		} else {
			snippet = content
		}
	}
	if snippet == "" {
		return nil
	}

	return []ClaimCandidate{{
		Text:     snippet,
		Status:   model.ClaimStatusReported,
		Citation: snippet,
	}}
}
