package event

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	minTitleLength       = 3
	minVenueLength       = 2
	minCityLength        = 2
	minDescriptionLength = 10
	maxTitleLength       = 200
	maxDescriptionLength = 2000
	pastDateGrace        = time.Hour
	maxFutureWindow      = 365 * 24 * time.Hour
	priceSanityCeiling   = 100000
	probeTimeout         = 5 * time.Second
)

var priceAmountPattern = regexp.MustCompile(`[\d]+(?:[.,]\d+)*`)

type Validator struct {
	sanitizer  *Sanitizer
	httpClient *http.Client

	mu         sync.RWMutex
	probeCache map[string]bool
}

func NewValidator() *Validator {
	return &Validator{
		sanitizer:  NewSanitizer(),
		httpClient: &http.Client{Timeout: probeTimeout},
		probeCache: make(map[string]bool),
	}
}

// Check performs the cheap structural validation: sanitization, required
// fields, length bounds and the soft-warning rules. No network access.
func (v *Validator) Check(e StandardizedEvent) ValidationResult {
	result := ValidationResult{
		Sanitized: v.sanitizer.Run(e),
	}

	v.checkRequired(&result)
	v.checkWarnings(&result)

	result.IsValid = len(result.Errors) == 0
	return result
}

// CheckFull runs Check plus URL format and reachability validation.
// Ticket URL problems are hard errors; image URL problems are soft, the
// image is dropped instead of failing the record.
func (v *Validator) CheckFull(ctx context.Context, e StandardizedEvent) ValidationResult {
	result := v.Check(e)

	if result.Sanitized.TicketURL != "" {
		if !isValidAbsoluteURL(result.Sanitized.TicketURL) {
			result.Errors = append(result.Errors, "ticket URL is not a valid absolute URL")
		} else if !v.probeURL(ctx, result.Sanitized.TicketURL) {
			result.Errors = append(result.Errors, "ticket URL is not reachable")
		}
	}

	if result.Sanitized.ImageURL != "" {
		if !isValidAbsoluteURL(result.Sanitized.ImageURL) {
			result.Warnings = append(result.Warnings, "image URL is not a valid absolute URL, image dropped")
			result.Sanitized.ImageURL = ""
		} else if !v.probeURL(ctx, result.Sanitized.ImageURL) {
			result.Warnings = append(result.Warnings, "image URL is not reachable, image dropped")
			result.Sanitized.ImageURL = ""
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

func (v *Validator) checkRequired(result *ValidationResult) {
	e := result.Sanitized

	requiredFields := []struct {
		name  string
		value string
	}{
		{"external_id", e.ExternalID},
		{"title", e.Title},
		{"city", e.City},
		{"venue", e.Venue},
	}

	for _, field := range requiredFields {
		if field.value == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("%s is required", field.name))
		}
	}

	// Thresholds count characters, not bytes; multibyte scripts are the norm
	// for this domain.
	if e.Title != "" && utf8.RuneCountInString(e.Title) < minTitleLength {
		result.Errors = append(result.Errors, fmt.Sprintf("title must be at least %d characters", minTitleLength))
	}
	if e.Venue != "" && utf8.RuneCountInString(e.Venue) < minVenueLength {
		result.Errors = append(result.Errors, fmt.Sprintf("venue must be at least %d characters", minVenueLength))
	}
	if e.City != "" && utf8.RuneCountInString(e.City) < minCityLength {
		result.Errors = append(result.Errors, fmt.Sprintf("city must be at least %d characters", minCityLength))
	}
	if utf8.RuneCountInString(e.Description) < minDescriptionLength {
		result.Errors = append(result.Errors, fmt.Sprintf("description must be at least %d characters", minDescriptionLength))
	}
	if e.EventDate.IsZero() {
		result.Errors = append(result.Errors, "event_date is required")
	}
	if !KnownPlatforms[e.SourcePlatform] {
		result.Errors = append(result.Errors, fmt.Sprintf("unknown source platform: %s", e.SourcePlatform))
	}
}

func (v *Validator) checkWarnings(result *ValidationResult) {
	e := result.Sanitized

	if utf8.RuneCountInString(e.Title) > maxTitleLength {
		result.Warnings = append(result.Warnings, fmt.Sprintf("title exceeds %d characters", maxTitleLength))
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLength {
		result.Warnings = append(result.Warnings, fmt.Sprintf("description exceeds %d characters", maxDescriptionLength))
	}
	if e.ExternalID != "" && !strings.Contains(e.ExternalID, "-") {
		result.Warnings = append(result.Warnings, "external_id is missing a platform prefix separator")
	}

	if !e.EventDate.IsZero() {
		now := time.Now()
		if e.EventDate.Before(now.Add(-pastDateGrace)) {
			result.Warnings = append(result.Warnings, "event date is in the past")
		} else if e.EventDate.After(now.Add(maxFutureWindow)) {
			result.Warnings = append(result.Warnings, "event date is more than a year in the future")
		}
	}

	if e.TicketURL == "" {
		result.Warnings = append(result.Warnings, "ticket URL is missing")
	}
	if e.ImageURL == "" {
		result.Warnings = append(result.Warnings, "image URL is missing")
	}

	if e.Price == "Check website" {
		result.Warnings = append(result.Warnings, "price is a placeholder")
	} else if amount, ok := extractPriceAmount(e.Price); ok && amount > priceSanityCeiling {
		result.Warnings = append(result.Warnings, fmt.Sprintf("price amount %.0f exceeds sanity ceiling", amount))
	}
}

// probeURL checks reachability with a HEAD request. Results are cached per
// URL for the process lifetime since the same image hosts repeat heavily
// within a batch.
func (v *Validator) probeURL(ctx context.Context, rawURL string) bool {
	v.mu.RLock()
	reachable, ok := v.probeCache[rawURL]
	v.mu.RUnlock()
	if ok {
		return reachable
	}

	reachable = v.doProbe(ctx, rawURL)

	v.mu.Lock()
	v.probeCache[rawURL] = reachable
	v.mu.Unlock()

	return reachable
}

func (v *Validator) doProbe(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 400
}

func isValidAbsoluteURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func extractPriceAmount(price string) (float64, bool) {
	match := priceAmountPattern.FindString(price)
	if match == "" {
		return 0, false
	}
	match = strings.ReplaceAll(match, ",", "")
	amount, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}
