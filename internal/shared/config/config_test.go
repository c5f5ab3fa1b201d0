package config

import (
	"testing"
	"time"
)

func TestNormalizeEnv(t *testing.T) {
	cases := map[string]string{
		"production": "production",
		"PROD":       "production",
		"staging":    "staging",
		"local":      "local",
		"dev":        "dev",
		"":           "dev",
		"garbage":    "dev",
	}
	for raw, want := range cases {
		if got := normalizeEnv(raw); got != want {
			t.Errorf("normalizeEnv(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestGetDurationDefaults(t *testing.T) {
	t.Setenv("SESSION_TTL", "")
	if got := getDuration("SESSION_TTL", time.Hour); got != time.Hour {
		t.Fatalf("empty env should fall back to default, got %v", got)
	}
	t.Setenv("SESSION_TTL", "not-a-duration")
	if got := getDuration("SESSION_TTL", time.Hour); got != time.Hour {
		t.Fatalf("invalid env should fall back to default, got %v", got)
	}
	t.Setenv("SESSION_TTL", "90m")
	if got := getDuration("SESSION_TTL", time.Hour); got != 90*time.Minute {
		t.Fatalf("expected 90m, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("TOKEN_SECRET", "")
	t.Setenv("PORT", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("default port = %q", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Errorf("env = %q", cfg.Env)
	}
	if cfg.TokenSecret != "dev-secret" {
		t.Errorf("dev token secret = %q", cfg.TokenSecret)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("session ttl = %v", cfg.SessionTTL)
	}
	if cfg.GenerationMaxTokens != 3000 {
		t.Errorf("generation max tokens = %d", cfg.GenerationMaxTokens)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" http://a.example , ,http://b.example")
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Fatalf("splitAndTrim = %v", got)
	}
}
