package scrapers

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/event-comb/app/queue"
)

// PlatformConfig holds per-platform scraping settings loaded from the
// platforms file. Pacing values are milliseconds in YAML.
type PlatformConfig struct {
	Name          string            // map key, set after parsing
	Enabled       bool              `yaml:"enabled"`
	BaseURL       string            `yaml:"base_url"`
	MinDelayMs    int               `yaml:"min_delay_ms"`
	MaxConcurrent int               `yaml:"max_concurrent"`
	MaxRetries    int               `yaml:"max_retries"`
	RetryDelayMs  int               `yaml:"retry_delay_ms"`
	CitySlugs     map[string]string `yaml:"city_slugs"`
}

type platformsFile struct {
	Platforms map[string]*PlatformConfig `yaml:"platforms"`
}

// LoadPlatformConfigs reads the platforms YAML file, applies defaults and
// validates every entry.
func LoadPlatformConfigs(path string) (map[string]*PlatformConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read platforms file: %w", err)
	}

	return ParsePlatformConfigs(data)
}

func ParsePlatformConfigs(data []byte) (map[string]*PlatformConfig, error) {
	var file platformsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Platforms) == 0 {
		return nil, fmt.Errorf("platforms file defines no platforms")
	}

	for name, cfg := range file.Platforms {
		if cfg == nil {
			return nil, fmt.Errorf("platform %s has an empty configuration", name)
		}
		cfg.Name = name

		if cfg.MinDelayMs == 0 {
			cfg.MinDelayMs = 2000
		}
		if cfg.MaxConcurrent == 0 {
			cfg.MaxConcurrent = 1
		}
		if cfg.MaxRetries == 0 {
			cfg.MaxRetries = 3
		}
		if cfg.RetryDelayMs == 0 {
			cfg.RetryDelayMs = 1000
		}

		if err := validatePlatformConfig(cfg); err != nil {
			return nil, fmt.Errorf("invalid platform %s: %w", name, err)
		}
	}

	return file.Platforms, nil
}

func validatePlatformConfig(cfg *PlatformConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	nonNegativeFields := map[string]int{
		"min_delay_ms":   cfg.MinDelayMs,
		"max_concurrent": cfg.MaxConcurrent,
		"max_retries":    cfg.MaxRetries,
		"retry_delay_ms": cfg.RetryDelayMs,
	}
	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

// Limits converts the YAML pacing values into queue limits.
func (c *PlatformConfig) Limits() queue.Limits {
	return queue.Limits{
		MinDelay:      time.Duration(c.MinDelayMs) * time.Millisecond,
		MaxConcurrent: c.MaxConcurrent,
		MaxRetries:    c.MaxRetries,
		RetryDelay:    time.Duration(c.RetryDelayMs) * time.Millisecond,
	}
}

// CitySlug resolves the platform's own naming convention for a canonical
// city name. Unknown cities fall back to a lowercase hyphenated slug.
func (c *PlatformConfig) CitySlug(city string) string {
	key := strings.ToLower(strings.TrimSpace(city))
	if slug, ok := c.CitySlugs[key]; ok {
		return slug
	}
	return strings.ReplaceAll(key, " ", "-")
}
