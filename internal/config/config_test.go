package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "ENVIRONMENT", "LOG_LEVEL", "TIKTOK_BASE_URL", "TIKTOK_MS_TOKEN", "TIKTOK_USER_AGENT",
		"TIKTOK_HTTP_TIMEOUT_SEC", "TIKTOK_PAGE_SIZE", "USE_MOCK_PLATFORM", "DEFAULT_SOUND_ID",
		"MAX_FETCH_COUNT", "MAX_UPLOAD_MB", "SESSION_TTL_MIN",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("addr: %q", cfg.Addr())
	}
	if cfg.DefaultSoundID != DefaultSoundID {
		t.Fatalf("sound id: %q", cfg.DefaultSoundID)
	}
	if cfg.HTTPTimeout != 30*time.Second || cfg.PageSize != 30 || cfg.MaxFetchCount != 500 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 32<<20 || cfg.SessionTTL != 2*time.Hour || cfg.UseMock {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("TIKTOK_BASE_URL", "http://127.0.0.1:8081/")
	t.Setenv("USE_MOCK_PLATFORM", "true")
	t.Setenv("TIKTOK_PAGE_SIZE", "10")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" || !cfg.UseMock || cfg.PageSize != 10 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.TikTokBaseURL != "http://127.0.0.1:8081" {
		t.Fatalf("trailing slash should be trimmed: %q", cfg.TikTokBaseURL)
	}
}

func TestFromEnv_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_FETCH_COUNT", "lots")
	t.Setenv("USE_MOCK_PLATFORM", "maybe")
	_, err := FromEnv()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "MAX_FETCH_COUNT") || !strings.Contains(msg, "USE_MOCK_PLATFORM") {
		t.Fatalf("expected both problems reported, got %q", msg)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIKTOK_PAGE_SIZE", "0")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected page size error")
	}
	clearEnv(t)
	t.Setenv("TIKTOK_BASE_URL", "ftp://example")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected base url error")
	}
}
