package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != DefaultBaseURL {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 0 || cfg.RunInterval != 0 {
		t.Fatalf("expected zero timeout and interval, got %v %v", cfg.RequestTimeout, cfg.RunInterval)
	}
	if cfg.StorageTTL != 30*24*time.Hour {
		t.Fatalf("StorageTTL = %v", cfg.StorageTTL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:8080/v1/")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "15")
	t.Setenv("RUN_INTERVAL", "300")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8080/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.RunInterval != 5*time.Minute {
		t.Fatalf("RunInterval = %v", cfg.RunInterval)
	}
}

func TestLoadRejectsRelativeBaseURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "li.quest/v1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}

func TestLoadRejectsNegativeInterval(t *testing.T) {
	t.Setenv("RUN_INTERVAL", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative run_interval")
	}
}
