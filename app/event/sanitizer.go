package event

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFreeTextLength = 500

var freePriceVariants = map[string]bool{
	"free":          true,
	"free entry":    true,
	"entry free":    true,
	"₹0":            true,
	"rs 0":          true,
	"rs. 0":         true,
	"0":             true,
	"complimentary": true,
	"no charge":     true,
}

var placeholderPriceVariants = map[string]bool{
	"tbd":             true,
	"tba":             true,
	"to be decided":   true,
	"to be announced": true,
	"coming soon":     true,
	"n/a":             true,
	"na":              true,
	"-":               true,
}

type Sanitizer struct{}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// Run returns a sanitized copy of the candidate. The input is untrusted
// scraped text; every free-text field is cleaned field by field.
func (s *Sanitizer) Run(e StandardizedEvent) StandardizedEvent {
	e.ExternalID = strings.TrimSpace(e.ExternalID)
	e.Title = s.CleanText(e.Title)
	e.Description = s.CleanText(e.Description)
	e.Venue = s.CleanText(e.Venue)
	e.City = s.CleanText(e.City)
	e.Category = strings.ToLower(s.CleanText(e.Category))
	e.Genre = s.CleanText(e.Genre)
	e.Language = s.CleanText(e.Language)
	e.Duration = s.CleanText(e.Duration)
	e.ImageURL = strings.TrimSpace(e.ImageURL)
	e.TicketURL = strings.TrimSpace(e.TicketURL)
	e.Price = s.NormalizePrice(e.Price)
	return e
}

// CleanText trims, collapses internal whitespace, strips control characters
// and caps the result at the free-text limit. The cap counts runes, never
// bytes: listing text is routinely multibyte (Devanagari, ₹) and a byte cut
// would leave invalid UTF-8.
func (s *Sanitizer) CleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range text {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}

	cleaned := strings.TrimSpace(b.String())
	if utf8.RuneCountInString(cleaned) > maxFreeTextLength {
		runes := []rune(cleaned)
		cleaned = strings.TrimSpace(string(runes[:maxFreeTextLength]))
	}
	return cleaned
}

// NormalizePrice maps raw price text to one of the normalized display
// forms: "Free", "Check website", or the trimmed literal amount.
func (s *Sanitizer) NormalizePrice(price string) string {
	cleaned := s.CleanText(price)
	lowered := strings.ToLower(cleaned)

	if cleaned == "" || placeholderPriceVariants[lowered] {
		return "Check website"
	}
	if freePriceVariants[lowered] {
		return "Free"
	}
	return cleaned
}
