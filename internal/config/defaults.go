package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"transcribe-client/internal/domain"
)

// Baseline values matching the deployed backend's polling contract.
const (
	defaultAPIBaseURL     = "http://localhost:8000"
	defaultPollIntervalMs = 1500
	defaultFetchTimeoutMs = 8000
	defaultMaxRetries     = 3
	defaultBackoffBaseMs  = 500
	defaultBackoffMaxMs   = 10000
)

// LoadEnv loads a local .env file when present. Packaged builds rely on
// real environment variables, so a missing file is not an error.
func LoadEnv() {
	_ = godotenv.Load()
}

// DefaultSettings returns baseline configuration for first launch with
// environment overrides applied.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		APIBaseURL:     getenv("MN_API_BASE_URL", defaultAPIBaseURL),
		PollIntervalMs: getenvInt("MN_POLL_INTERVAL_MS", defaultPollIntervalMs),
		FetchTimeoutMs: getenvInt("MN_FETCH_TIMEOUT_MS", defaultFetchTimeoutMs),
		MaxRetries:     getenvInt("MN_MAX_RETRIES", defaultMaxRetries),
		BackoffBaseMs:  getenvInt("MN_BACKOFF_BASE_MS", defaultBackoffBaseMs),
		BackoffMaxMs:   getenvInt("MN_BACKOFF_MAX_MS", defaultBackoffMaxMs),
		RequireAuth:    getenvBool("MN_REQUIRE_AUTH", false),
	}
}

// Normalize trims the base URL and replaces out-of-range numbers with
// defaults so the orchestrator never sees a zero poll interval or a
// negative retry budget.
func Normalize(cfg domain.Settings) domain.Settings {
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.PollIntervalMs <= 0 {
		cfg.PollIntervalMs = defaultPollIntervalMs
	}
	if cfg.FetchTimeoutMs <= 0 {
		cfg.FetchTimeoutMs = defaultFetchTimeoutMs
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BackoffBaseMs <= 0 {
		cfg.BackoffBaseMs = defaultBackoffBaseMs
	}
	if cfg.BackoffMaxMs < cfg.BackoffBaseMs {
		cfg.BackoffMaxMs = defaultBackoffMaxMs
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
