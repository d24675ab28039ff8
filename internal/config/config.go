package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSoundID is the sample sound the form starts with.
const DefaultSoundID = "7194996106114271233"

// Config holds process settings read from the environment.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	TikTokBaseURL string
	MsToken       string
	UserAgent     string
	HTTPTimeout   time.Duration
	PageSize      int
	UseMock       bool

	DefaultSoundID string
	MaxFetchCount  int
	MaxUploadBytes int64
	SessionTTL     time.Duration
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // loads .env
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           envOr("PORT", "8080"),
		Environment:    envOr("ENVIRONMENT", "local"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		TikTokBaseURL:  strings.TrimRight(envOr("TIKTOK_BASE_URL", "https://www.tiktok.com"), "/"),
		MsToken:        os.Getenv("TIKTOK_MS_TOKEN"),
		UserAgent:      envOr("TIKTOK_USER_AGENT", defaultUserAgent),
		DefaultSoundID: envOr("DEFAULT_SOUND_ID", DefaultSoundID),
	}

	var errs []error
	timeoutSec := intEnv("TIKTOK_HTTP_TIMEOUT_SEC", 30, &errs)
	cfg.PageSize = intEnv("TIKTOK_PAGE_SIZE", 30, &errs)
	cfg.MaxFetchCount = intEnv("MAX_FETCH_COUNT", 500, &errs)
	uploadMB := intEnv("MAX_UPLOAD_MB", 32, &errs)
	ttlMin := intEnv("SESSION_TTL_MIN", 120, &errs)
	cfg.UseMock = boolEnv("USE_MOCK_PLATFORM", false, &errs)

	cfg.HTTPTimeout = time.Duration(timeoutSec) * time.Second
	cfg.MaxUploadBytes = int64(uploadMB) << 20
	cfg.SessionTTL = time.Duration(ttlMin) * time.Minute

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("TIKTOK_PAGE_SIZE must be between 1 and 100, got %d", c.PageSize)
	}
	if c.MaxFetchCount < 1 {
		return fmt.Errorf("MAX_FETCH_COUNT must be positive, got %d", c.MaxFetchCount)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("TIKTOK_HTTP_TIMEOUT_SEC must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MIN must be positive")
	}
	if !strings.HasPrefix(c.TikTokBaseURL, "http://") && !strings.HasPrefix(c.TikTokBaseURL, "https://") {
		return fmt.Errorf("TIKTOK_BASE_URL must be an http(s) URL, got %q", c.TikTokBaseURL)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", k, v))
		return def
	}
	return n
}

func boolEnv(k string, def bool, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a boolean", k, v))
		return def
	}
	return b
}
