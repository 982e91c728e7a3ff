package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.Port != "8081" {
		t.Errorf("Expected default port 8081, got %s", cfg.Port)
	}
	if cfg.SessionTTL != 10*time.Minute {
		t.Errorf("Expected default session TTL 10m, got %s", cfg.SessionTTL)
	}
	if cfg.StepTimeout != 10*time.Second {
		t.Errorf("Expected default step timeout 10s, got %s", cfg.StepTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("STEP_TIMEOUT", "3s")
	t.Setenv("UPSTREAM_URL", "http://backend:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.SessionTTL != 5*time.Minute {
		t.Errorf("Expected session TTL 5m, got %s", cfg.SessionTTL)
	}
	if cfg.StepTimeout != 3*time.Second {
		t.Errorf("Expected step timeout 3s, got %s", cfg.StepTimeout)
	}
	if cfg.Upstream.BaseURL != "http://backend:9000" {
		t.Errorf("Expected upstream URL override, got %s", cfg.Upstream.BaseURL)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SessionTTL != 10*time.Minute {
		t.Errorf("Expected fallback TTL for invalid value, got %s", cfg.SessionTTL)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Port:        "8081",
		DBPath:      "./data/toolproxy.db",
		RedisAddr:   "localhost:6379",
		SessionTTL:  time.Minute,
		StepTimeout: time.Second,
		PendingTTL:  time.Minute,
		Upstream:    UpstreamConfig{BaseURL: "http://localhost:8001"},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	cfg.Upstream.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for empty upstream URL")
	}
}
