package scrapers

import (
	"testing"
	"time"
)

const platformsYAML = `
platforms:
  allevents:
    enabled: true
    base_url: https://allevents.example.com
    min_delay_ms: 1500
    max_concurrent: 2
    city_slugs:
      mumbai: mumbai-india
  insider:
    enabled: false
    base_url: https://insider.example.com
`

func TestParsePlatformConfigs(t *testing.T) {
	configs, err := ParsePlatformConfigs([]byte(platformsYAML))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("Expected 2 platforms, got %d", len(configs))
	}

	allevents := configs["allevents"]
	if allevents == nil {
		t.Fatal("Expected allevents platform")
	}
	if allevents.Name != "allevents" {
		t.Errorf("Expected name set from map key, got %q", allevents.Name)
	}
	if !allevents.Enabled {
		t.Error("Expected allevents enabled")
	}
	if allevents.MinDelayMs != 1500 {
		t.Errorf("Expected min delay 1500ms, got %d", allevents.MinDelayMs)
	}
	if allevents.MaxConcurrent != 2 {
		t.Errorf("Expected max concurrent 2, got %d", allevents.MaxConcurrent)
	}

	// Defaults applied to unset fields
	if allevents.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", allevents.MaxRetries)
	}
	if allevents.RetryDelayMs != 1000 {
		t.Errorf("Expected default retry delay 1000ms, got %d", allevents.RetryDelayMs)
	}

	insider := configs["insider"]
	if insider.Enabled {
		t.Error("Expected insider disabled")
	}
	if insider.MinDelayMs != 2000 {
		t.Errorf("Expected default min delay 2000ms, got %d", insider.MinDelayMs)
	}
}

func TestParsePlatformConfigsMissingBaseURL(t *testing.T) {
	_, err := ParsePlatformConfigs([]byte("platforms:\n  allevents:\n    enabled: true\n"))
	if err == nil {
		t.Error("Expected error for missing base_url")
	}
}

func TestParsePlatformConfigsEmpty(t *testing.T) {
	_, err := ParsePlatformConfigs([]byte("platforms: {}\n"))
	if err == nil {
		t.Error("Expected error for empty platforms file")
	}
}

func TestLimitsConversion(t *testing.T) {
	cfg := &PlatformConfig{
		MinDelayMs:    1500,
		MaxConcurrent: 2,
		MaxRetries:    4,
		RetryDelayMs:  250,
	}

	limits := cfg.Limits()
	if limits.MinDelay != 1500*time.Millisecond {
		t.Errorf("Expected 1500ms min delay, got %v", limits.MinDelay)
	}
	if limits.MaxConcurrent != 2 {
		t.Errorf("Expected max concurrent 2, got %d", limits.MaxConcurrent)
	}
	if limits.MaxRetries != 4 {
		t.Errorf("Expected max retries 4, got %d", limits.MaxRetries)
	}
	if limits.RetryDelay != 250*time.Millisecond {
		t.Errorf("Expected 250ms retry delay, got %v", limits.RetryDelay)
	}
}

func TestCitySlug(t *testing.T) {
	cfg := &PlatformConfig{
		CitySlugs: map[string]string{"mumbai": "mumbai-india"},
	}

	if got := cfg.CitySlug("Mumbai"); got != "mumbai-india" {
		t.Errorf("Expected configured slug, got %q", got)
	}
	if got := cfg.CitySlug("Navi Mumbai"); got != "navi-mumbai" {
		t.Errorf("Expected hyphenated fallback slug, got %q", got)
	}
}
