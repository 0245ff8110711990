package config

import (
	"os"
	"path/filepath"
	"testing"

	"transcribe-client/internal/domain"
)

// TestDefaultSettings verifies baseline defaults are present.
func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.APIBaseURL == "" {
		t.Fatal("expected non-empty base URL")
	}
	if cfg.PollIntervalMs != 1500 {
		t.Fatalf("poll interval = %d, want 1500", cfg.PollIntervalMs)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("max retries = %d, want 3", cfg.MaxRetries)
	}
}

// TestDefaultSettingsEnvOverride verifies environment variables shape
// defaults.
func TestDefaultSettingsEnvOverride(t *testing.T) {
	t.Setenv("MN_API_BASE_URL", "https://transcribe.example.com")
	t.Setenv("MN_MAX_RETRIES", "7")
	t.Setenv("MN_REQUIRE_AUTH", "true")

	cfg := DefaultSettings()
	if cfg.APIBaseURL != "https://transcribe.example.com" {
		t.Fatalf("base URL = %q", cfg.APIBaseURL)
	}
	if cfg.MaxRetries != 7 {
		t.Fatalf("max retries = %d, want 7", cfg.MaxRetries)
	}
	if !cfg.RequireAuth {
		t.Fatal("expected require auth override")
	}
}

// TestNormalizeRepairsInvalidValues verifies out-of-range numbers fall
// back to defaults.
func TestNormalizeRepairsInvalidValues(t *testing.T) {
	cfg := Normalize(domain.Settings{
		APIBaseURL:     "  https://api.example.com/ ",
		PollIntervalMs: 0,
		FetchTimeoutMs: -1,
		MaxRetries:     -4,
		BackoffBaseMs:  0,
		BackoffMaxMs:   1,
	})

	if cfg.APIBaseURL != "https://api.example.com" {
		t.Fatalf("base URL = %q", cfg.APIBaseURL)
	}
	if cfg.PollIntervalMs <= 0 || cfg.FetchTimeoutMs <= 0 {
		t.Fatalf("timings not repaired: %+v", cfg)
	}
	if cfg.MaxRetries < 0 {
		t.Fatalf("max retries = %d", cfg.MaxRetries)
	}
	if cfg.BackoffMaxMs < cfg.BackoffBaseMs {
		t.Fatalf("backoff cap below base: %+v", cfg)
	}
}

// TestJSONStoreLoadMissingReturnsDefaults checks first-run behavior.
func TestJSONStoreLoadMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.json")
	store := NewJSONStore(path)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.PollIntervalMs != 1500 {
		t.Fatalf("poll interval = %d, want 1500", got.PollIntervalMs)
	}
}

// TestJSONStoreLoadMissingRepairsEnvOverrides verifies a bad environment
// override cannot leak a non-positive interval through the first-run
// defaults path.
func TestJSONStoreLoadMissingRepairsEnvOverrides(t *testing.T) {
	t.Setenv("MN_POLL_INTERVAL_MS", "-5")
	t.Setenv("MN_FETCH_TIMEOUT_MS", "0")

	path := filepath.Join(t.TempDir(), "missing", "settings.json")
	got, err := NewJSONStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.PollIntervalMs != 1500 {
		t.Fatalf("poll interval = %d, want 1500", got.PollIntervalMs)
	}
	if got.FetchTimeoutMs != 8000 {
		t.Fatalf("fetch timeout = %d, want 8000", got.FetchTimeoutMs)
	}
}

// TestJSONStoreSaveAndLoadRoundTrip checks persisted settings fidelity.
func TestJSONStoreSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	store := NewJSONStore(path)
	want := domain.Settings{
		APIBaseURL:     "https://transcribe.example.com",
		PollIntervalMs: 2000,
		FetchTimeoutMs: 5000,
		MaxRetries:     2,
		BackoffBaseMs:  250,
		BackoffMaxMs:   4000,
		RequireAuth:    true,
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

// TestJSONStoreLoadInvalidJSON checks parse error handling.
func TestJSONStoreLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not-json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewJSONStore(path)
	if _, err := store.Load(); err == nil {
		t.Fatal("expected json parse error")
	}
}
