// Package score turns accumulated evidence into bounded confidence
// values. Scoring is transparent and local: tier weighting, distinct
// tier corroboration, and recency decay, clamped to [0,100].
package score

import (
	"math"
	"strings"
	"time"
)

// Evidence is one item backing an event or claim.
type Evidence struct {
	SourceTier  string     // "A" | "B" | "C"
	PublishedAt *time.Time // nil when the source carried no date
}

// nowFunc is injectable for tests.
var nowFunc = time.Now

var tierWeights = map[string]float64{
	"A": 1.0,
	"B": 0.7,
	"C": 0.4,
}

const unknownTierWeight = 0.3

func tierWeight(tier string) float64 {
	if w, ok := tierWeights[strings.ToUpper(strings.TrimSpace(tier))]; ok {
		return w
	}
	return unknownTierWeight
}

type weights struct {
	baseMultiplier float64
	flatBonus      float64
	extraTierBonus float64
	bonusCap       float64
	decayCap       float64
}

var eventWeights = weights{
	baseMultiplier: 60,
	flatBonus:      15,
	extraTierBonus: 5,
	bonusCap:       25,
	decayCap:       20,
}

var claimWeights = weights{
	baseMultiplier: 50,
	flatBonus:      10,
	extraTierBonus: 5,
	bonusCap:       20,
	decayCap:       25,
}

// EventConfidence aggregates evidence into an event confidence score.
// Empty evidence yields exactly 0.0.
func EventConfidence(evidence []Evidence) float64 {
	return compute(evidence, eventWeights)
}

// ClaimConfidence uses the same shape with a stricter baseline.
func ClaimConfidence(sources []Evidence) float64 {
	return compute(sources, claimWeights)
}

func compute(items []Evidence, w weights) float64 {
	if len(items) == 0 {
		return 0.0
	}

	maxWeight := 0.0
	tiers := make(map[string]struct{})
	var mostRecent *time.Time
	for _, it := range items {
		if tw := tierWeight(it.SourceTier); tw > maxWeight {
			maxWeight = tw
		}
		tiers[strings.ToUpper(strings.TrimSpace(it.SourceTier))] = struct{}{}
		if it.PublishedAt != nil && (mostRecent == nil || it.PublishedAt.After(*mostRecent)) {
			mostRecent = it.PublishedAt
		}
	}

	base := maxWeight * w.baseMultiplier

	// Corroboration counts distinct tiers beyond the first.
	extra := len(tiers) - 1
	bonus := 0.0
	if extra >= 1 {
		bonus = w.flatBonus
		if extra > 1 {
			bonus += math.Min(w.bonusCap, float64(extra-1)*w.extraTierBonus)
		}
	}

	decay := 0.0
	if mostRecent != nil {
		days := nowFunc().UTC().Sub(mostRecent.UTC()).Hours() / 24
		decay = math.Min(w.decayCap, math.Max(0, days))
	}

	result := base + bonus - decay
	if result < 0 {
		result = 0
	}
	if result > 100 {
		result = 100
	}
	return math.Round(result*100) / 100
}
