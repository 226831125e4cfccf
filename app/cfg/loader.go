package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./event-comb.db" description:"Path to the SQLite database file"`

	// Application configuration
	PlatformsFile  string  `long:"platforms-file" env:"PLATFORMS_FILE" default:"./platforms.yml" description:"Path to the platform configuration file"`
	Port           string  `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey   string  `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	DefaultCity    string  `long:"default-city" env:"DEFAULT_CITY" default:"Mumbai" description:"City to harvest when a request does not specify one"`
	DefaultLimit   int     `long:"default-limit" env:"DEFAULT_LIMIT" default:"50" description:"Maximum events per platform when a request does not specify a limit"`
	FullValidation bool    `long:"full-validation" env:"FULL_VALIDATION" description:"Enable network-backed URL validation (slow, off by default)"`
	HarvestOnStart bool    `long:"harvest-on-start" env:"HARVEST_ON_START" description:"Run one harvest for the default city on startup"`
	BrowserEnabled bool    `long:"browser" env:"BROWSER_ENABLED" description:"Enable the headless browser for JavaScript-rendered platforms"`
	OutboundRPS    float64 `long:"outbound-rps" env:"OUTBOUND_RPS" default:"4" description:"Global outbound requests-per-second cap across all platforms"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Event Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Kolkata)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:         raw.DBPath,
		PlatformsFile:  raw.PlatformsFile,
		Port:           raw.Port,
		APIAccessKey:   raw.APIAccessKey,
		DefaultCity:    raw.DefaultCity,
		DefaultLimit:   raw.DefaultLimit,
		FullValidation: raw.FullValidation,
		HarvestOnStart: raw.HarvestOnStart,
		BrowserEnabled: raw.BrowserEnabled,
		OutboundRPS:    raw.OutboundRPS,
		UserAgent:      raw.UserAgent,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
