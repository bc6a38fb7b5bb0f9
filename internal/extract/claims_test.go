package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gridwire/gridwire/internal/filter"
	"github.com/gridwire/gridwire/internal/model"
)

func TestClaimExtractor_SigningClaim(t *testing.T) {
	e := NewClaimExtractor(nil, nil)

	claims := e.Extract(
		"Chiefs sign veteran linebacker",
		"The Chiefs agreed to terms with a veteran linebacker on Tuesday.",
	)
	if len(claims) != 1 {
		t.Fatalf("got %d claims, want 1", len(claims))
	}
	if claims[0].Text != "Chiefs sign veteran linebacker" {
		t.Errorf("claim text = %q, want the trimmed title", claims[0].Text)
	}
	if claims[0].Status != model.ClaimStatusReported {
		t.Errorf("status = %q, want %q", claims[0].Status, model.ClaimStatusReported)
	}
	if claims[0].Citation == "" {
		t.Error("citation should carry the snippet")
	}
}

func TestClaimExtractor_RejectedContentYieldsNothing(t *testing.T) {
	e := NewClaimExtractor(nil, nil)

	// "signed" matches the allowlist, but the content is not relevant.
	claims := e.Extract(
		"City council signs new waste contract",
		"The mayor signed a five-year agreement for waste collection.",
	)
	if len(claims) != 0 {
		t.Errorf("got %d claims from irrelevant content, want 0", len(claims))
	}
}

func TestClaimExtractor_NoPatternMatch(t *testing.T) {
	e := NewClaimExtractor(nil, nil)

	claims := e.Extract(
		"Chiefs fans enjoy tailgate season",
		"Packers and Eagles supporters gathered for the annual cookout.",
	)
	if len(claims) != 0 {
		t.Errorf("got %d claims without a pattern match, want 0", len(claims))
	}
}

func TestClaimExtractor_ContentFallbackSnippet(t *testing.T) {
	e := NewClaimExtractor(nil, nil)

	long := "The Chiefs placed their starting cornerback on injured reserve after Sunday. " +
		strings.Repeat("More detail about the Chiefs roster move. ", 10)
	claims := e.Extract("", long)
	if len(claims) != 1 {
		t.Fatalf("got %d claims, want 1", len(claims))
	}
	if !strings.HasSuffix(claims[0].Text, "…") {
		t.Errorf("long content snippet should end with ellipsis, got %q", claims[0].Text)
	}
	if len(claims[0].Text) > snippetLen+len("…") {
		t.Errorf("snippet too long: %d bytes", len(claims[0].Text))
	}
}

func TestClaimExtractor_EmptyInput(t *testing.T) {
	e := NewClaimExtractor(nil, nil)
	if claims := e.Extract("", ""); len(claims) != 0 {
		t.Errorf("got %d claims for empty input, want 0", len(claims))
	}
}

func TestClaimExtractor_CustomPatterns(t *testing.T) {
	rel := filter.NewRelevance(nil)
	e := NewClaimExtractor(rel, []string{`\bretires?\b`})

	claims := e.Extract("Packers quarterback retires", "He announced it Monday.")
	if len(claims) != 1 {
		t.Fatalf("custom pattern: got %d claims, want 1", len(claims))
	}

	// The default signing lexicon is replaced by the custom list.
	claims = e.Extract("Packers sign kicker", "Deal announced Monday.")
	if len(claims) != 0 {
		t.Errorf("default pattern should not match, got %d claims", len(claims))
	}
}

func TestClaimExtractor_InvalidPatternSkipped(t *testing.T) {
	e := NewClaimExtractor(nil, []string{`([`, `\bwaived\b`})

	claims := e.Extract("Chiefs waived backup tackle", "Roster move Tuesday.")
	if len(claims) != 1 {
		t.Fatalf("got %d claims, want 1 (invalid pattern skipped)", len(claims))
	}
}

func TestLoadAllowlist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "allowlist.yaml")
	content := "patterns:\n  - '\\bsigns?\\b'\n  - '\\btraded\\b'\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	patterns, err := LoadAllowlist(path)
	if err != nil {
		t.Fatalf("LoadAllowlist: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("got %d patterns, want 2", len(patterns))
	}

	if _, err := LoadAllowlist(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should return an error")
	}
}
