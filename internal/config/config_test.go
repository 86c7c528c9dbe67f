package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q", cfg.GinMode)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.DBPath != "roomatch.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("Redis.Addr = %q, want disabled", cfg.Redis.Addr)
	}
	if cfg.Chat.MaxBodyRunes != 4000 {
		t.Errorf("Chat.MaxBodyRunes = %d", cfg.Chat.MaxBodyRunes)
	}
	if cfg.Match.DefaultLimit != 20 || cfg.Match.MaxLimit != 100 {
		t.Errorf("Match limits = %d/%d", cfg.Match.DefaultLimit, cfg.Match.MaxLimit)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Errorf("IdempotencyTTL = %v", cfg.IdempotencyTTL)
	}
	if cfg.OTEL.Enabled {
		t.Error("OTEL should default off")
	}
	if cfg.OTEL.SampleRatio != 1.0 {
		t.Errorf("SampleRatio = %v", cfg.OTEL.SampleRatio)
	}
}

func TestLoad_OverridesAndNormalization(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GIN_MODE", "bogus")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("API_BASE_PATH", "api/v2/")
	t.Setenv("READ_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , https://b.example ,")
	t.Setenv("RATE_RPS", "2.5")
	t.Setenv("CHAT_MAX_BODY_RUNES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("unknown GIN_MODE should normalize to release, got %q", cfg.GinMode)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.ReadTimeout != 3*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.ReadTimeout)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[0] != "https://a.example" {
		t.Errorf("AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.RateRPS != 2.5 {
		t.Errorf("RateRPS = %v", cfg.RateRPS)
	}
	// Unparseable numbers fall back to the default.
	if cfg.Chat.MaxBodyRunes != 4000 {
		t.Errorf("Chat.MaxBodyRunes = %d", cfg.Chat.MaxBodyRunes)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"zero body cap", map[string]string{"CHAT_MAX_BODY_RUNES": "0"}},
		{"inverted match limits", map[string]string{"MATCH_DEFAULT_LIMIT": "50", "MATCH_MAX_LIMIT": "10"}},
		{"negative rps", map[string]string{"RATE_RPS": "-1"}},
		{"zero burst", map[string]string{"RATE_BURST": "0"}},
		{"sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}},
		{"negative redis db", map[string]string{"REDIS_DB": "-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func Test_normalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/":        "/",
		"api":      "/api",
		"/api/v1/": "/api/v1",
		"  /x  ":   "/x",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func Test_getbool(t *testing.T) {
	t.Setenv("FLAG", "YES")
	if !getbool("FLAG", false) {
		t.Error("YES should be true")
	}
	t.Setenv("FLAG", "off")
	if getbool("FLAG", true) {
		t.Error("off should be false")
	}
	t.Setenv("FLAG", "maybe")
	if !getbool("FLAG", true) {
		t.Error("unparseable should keep default")
	}
}
