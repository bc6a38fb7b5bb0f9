package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/gridwire/gridwire/internal/model"
)

const maxSummaryClaims = 3

// SummarizeEvent composes a short text summary of an event from its
// claims and citations, falling back to linked article titles when no
// claims exist. The result is persisted on the event row.
func (p *Pipeline) SummarizeEvent(ctx context.Context, event *model.Event) (string, error) {
	claims, err := p.store.ClaimsForEvent(ctx, event.ID)
	if err != nil {
		return "", fmt.Errorf("claims for event: %w", err)
	}

	var parts []string
	for i, claim := range claims {
		if i >= maxSummaryClaims {
			break
		}
		line := claim.ClaimText
		citations, err := p.store.ClaimCitations(ctx, claim.ID)
		if err != nil {
			return "", fmt.Errorf("claim citations: %w", err)
		}
		if len(citations) > 0 && citations[0].URL != "" {
			line += " (" + citations[0].URL + ")"
		}
		parts = append(parts, line)
	}

	if len(parts) == 0 {
		articles, err := p.store.EventArticles(ctx, event.ID)
		if err != nil {
			return "", fmt.Errorf("event articles: %w", err)
		}
		for i, a := range articles {
			if i >= maxSummaryClaims {
				break
			}
			parts = append(parts, a.Title)
		}
	}

	if len(parts) == 0 {
		return "", nil
	}

	summary := strings.Join(parts, "; ")
	if err := p.store.UpdateEventSummary(ctx, event.ID, summary); err != nil {
		return "", fmt.Errorf("update summary: %w", err)
	}
	return summary, nil
}
