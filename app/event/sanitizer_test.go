package event

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizePrice(t *testing.T) {
	sanitizer := NewSanitizer()

	cases := []struct {
		input    string
		expected string
	}{
		{"FREE", "Free"},
		{"free", "Free"},
		{"₹0", "Free"},
		{"Complimentary", "Free"},
		{"TBD", "Check website"},
		{"tba", "Check website"},
		{"Coming Soon", "Check website"},
		{"n/a", "Check website"},
		{"", "Check website"},
		{"₹499", "₹499"},
		{"  ₹499 onwards  ", "₹499 onwards"},
	}

	for _, c := range cases {
		got := sanitizer.NormalizePrice(c.input)
		if got != c.expected {
			t.Errorf("NormalizePrice(%q) = %q, expected %q", c.input, got, c.expected)
		}
	}
}

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	sanitizer := NewSanitizer()

	got := sanitizer.CleanText("  Live   Music\t\tNight \n ")
	if got != "Live Music Night" {
		t.Errorf("Expected 'Live Music Night', got %q", got)
	}
}

func TestCleanTextStripsControlCharacters(t *testing.T) {
	sanitizer := NewSanitizer()

	got := sanitizer.CleanText("Live\x00 Music\x07 Night")
	if got != "Live Music Night" {
		t.Errorf("Expected control characters stripped, got %q", got)
	}
}

func TestCleanTextCapsLength(t *testing.T) {
	sanitizer := NewSanitizer()

	got := sanitizer.CleanText(strings.Repeat("a", 800))
	if len(got) != maxFreeTextLength {
		t.Errorf("Expected text capped at %d characters, got %d", maxFreeTextLength, len(got))
	}
}

func TestCleanTextCapsOnRuneBoundary(t *testing.T) {
	sanitizer := NewSanitizer()

	got := sanitizer.CleanText(strings.Repeat("न", 600))
	if !utf8.ValidString(got) {
		t.Error("Expected capped multibyte text to remain valid UTF-8")
	}
	if count := utf8.RuneCountInString(got); count != maxFreeTextLength {
		t.Errorf("Expected text capped at %d runes, got %d", maxFreeTextLength, count)
	}
}

func TestCleanTextKeepsMultibyteUnderCap(t *testing.T) {
	sanitizer := NewSanitizer()

	input := strings.Repeat("न", 200) // 200 runes, 600 bytes
	got := sanitizer.CleanText(input)
	if got != input {
		t.Errorf("Expected multibyte text under the rune cap untouched, got %d runes", utf8.RuneCountInString(got))
	}
}

func TestRunLowersCategory(t *testing.T) {
	sanitizer := NewSanitizer()

	e := sanitizer.Run(StandardizedEvent{Category: "  Music  "})
	if e.Category != "music" {
		t.Errorf("Expected category 'music', got %q", e.Category)
	}
}
