package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestGetReturnsLoadedConfig(t *testing.T) {
	previous := globalCfg
	defer func() { globalCfg = previous }()

	globalCfg = &Cfg{Port: "9090", Version: "test-version"}

	got := Get()
	if got.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", got.Port)
	}
	if got.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", got.Version)
	}
}

func TestGetPanicsBeforeLoad(t *testing.T) {
	previous := globalCfg
	defer func() { globalCfg = previous }()
	globalCfg = nil

	defer func() {
		if recover() == nil {
			t.Error("Expected Get to panic before Load")
		}
	}()
	Get()
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:         "./test.db",
		PlatformsFile:  "./platforms.yml",
		Port:           "8080",
		APIAccessKey:   "test-key",
		DefaultCity:    "Mumbai",
		DefaultLimit:   50,
		FullValidation: true,
		BrowserEnabled: true,
		OutboundRPS:    4,
		UserAgent:      "Test Agent",
		Timezone:       "UTC",
		Debug:          true,
		Version:        "test-version",
	}

	if cfg.DBPath != "./test.db" {
		t.Errorf("Expected DB path './test.db', got '%s'", cfg.DBPath)
	}
	if cfg.PlatformsFile != "./platforms.yml" {
		t.Errorf("Expected platforms file './platforms.yml', got '%s'", cfg.PlatformsFile)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if cfg.DefaultCity != "Mumbai" {
		t.Errorf("Expected default city 'Mumbai', got '%s'", cfg.DefaultCity)
	}
	if cfg.DefaultLimit != 50 {
		t.Errorf("Expected default limit 50, got %d", cfg.DefaultLimit)
	}
	if !cfg.FullValidation {
		t.Error("Expected full validation to be enabled")
	}
	if !cfg.BrowserEnabled {
		t.Error("Expected browser to be enabled")
	}
	if cfg.OutboundRPS != 4 {
		t.Errorf("Expected outbound RPS 4, got %f", cfg.OutboundRPS)
	}
	if cfg.UserAgent != "Test Agent" {
		t.Errorf("Expected user agent 'Test Agent', got '%s'", cfg.UserAgent)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Expected timezone 'UTC', got '%s'", cfg.Timezone)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
}
