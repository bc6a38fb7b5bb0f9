package signature

import (
	"strings"
	"testing"
	"time"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Chiefs Win!", "chiefs win"},
		{"  Trade:   QB   moves  ", "trade qb moves"},
		{"49ers @ Rams — recap", "49ers rams recap"},
		{"", ""},
		{"!!!???", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTitle_Truncates(t *testing.T) {
	long := strings.Repeat("a", 300)
	if got := NormalizeTitle(long); len(got) != 200 {
		t.Errorf("len = %d, want 200", len(got))
	}
}

func TestEventSignature_Determinism(t *testing.T) {
	d := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)

	a := EventSignature("Chiefs Win!", &d)
	b := EventSignature("chiefs win", &d)
	if a != b {
		t.Errorf("case/punctuation variants should match: %s != %s", a, b)
	}
	if len(a) != 40 {
		t.Errorf("signature length = %d, want 40", len(a))
	}

	other := time.Date(2025, 9, 8, 12, 0, 0, 0, time.UTC)
	if EventSignature("Chiefs Win!", &other) == a {
		t.Error("different date should change the signature")
	}
	if EventSignature("Chiefs Lose", &d) == a {
		t.Error("different title should change the signature")
	}
}

func TestEventSignature_TimeOfDayIgnored(t *testing.T) {
	morning := time.Date(2025, 9, 7, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 9, 7, 22, 30, 0, 0, time.UTC)
	if EventSignature("Chiefs win opener", &morning) != EventSignature("Chiefs win opener", &evening) {
		t.Error("signatures should only depend on the calendar date")
	}
}

func TestEventSignature_NilDate(t *testing.T) {
	a := EventSignature("Chiefs win opener", nil)
	if len(a) != 40 {
		t.Fatalf("signature length = %d, want 40", len(a))
	}
	d := time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC)
	if a == EventSignature("Chiefs win opener", &d) {
		t.Error("nil date should not collide with a dated signature")
	}
}
