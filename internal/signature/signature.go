// Package signature derives stable content-addressable identifiers used
// to cluster articles into events. Signatures are deterministic: the
// same normalized title and calendar date always produce the same
// value. No network or state.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

const (
	maxNormalizedLen = 200
	signatureLen     = 40
)

// NormalizeTitle lowercases, strips everything that is not a letter,
// digit or space, collapses whitespace, and truncates to 200 runes.
func NormalizeTitle(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))

	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	collapsed := strings.Join(strings.Fields(b.String()), " ")
	runes := []rune(collapsed)
	if len(runes) > maxNormalizedLen {
		return string(runes[:maxNormalizedLen])
	}
	return collapsed
}

// EventSignature composes "normalized|YYYY-MM-DD" (or "na" for a nil
// date) and returns the first 40 hex chars of its SHA-256 digest.
func EventSignature(title string, date *time.Time) string {
	dateStr := "na"
	if date != nil {
		dateStr = date.Format("2006-01-02")
	}
	key := NormalizeTitle(title) + "|" + dateStr
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:signatureLen]
}
