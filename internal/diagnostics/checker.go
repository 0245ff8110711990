package diagnostics

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"transcribe-client/internal/domain"
)

// Checker validates backend connectivity and required local paths.
type Checker struct {
	httpClient *http.Client
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker with real OS and network dependencies.
func NewChecker() *Checker {
	return &Checker{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings, dataDir string) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkBaseURL(settings.APIBaseURL),
		c.checkBackend(settings.APIBaseURL),
		c.checkDataDir(dataDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkBaseURL validates the configured backend endpoint is a usable
// absolute HTTP(S) URL.
func (c *Checker) checkBaseURL(baseURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "api_base_url",
		Name: "Backend URL",
	}

	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Backend URL is empty."
		item.Hint = "Set the transcription service URL in settings."
		return item
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backend URL is not a valid http(s) address: %s", trimmed)
		item.Hint = "Use a full URL like https://transcribe.example.com."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Backend URL is well-formed: %s", trimmed)
	return item
}

// checkBackend probes the service root endpoint and verifies the health
// payload.
func (c *Checker) checkBackend(baseURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "backend_reachable",
		Name: "Backend reachability",
	}

	target := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/"
	res, err := c.httpClient.Get(target)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot reach backend: %v", err)
		item.Hint = "Check your network connection and the service URL."
		return item
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backend health endpoint returned status %d", res.StatusCode)
		item.Hint = "The service may be down or the URL may point at the wrong host."
		return item
	}

	var health struct {
		OK      bool   `json:"ok"`
		Service string `json:"service"`
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err != nil || json.Unmarshal(body, &health) != nil || !health.OK {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Backend responded but did not report a healthy service."
		item.Hint = "Verify the URL points at the transcription API root."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Backend reachable: %s", health.Service)
	return item
}

// checkDataDir validates the local data directory exists and is writable.
func (c *Checker) checkDataDir(dataDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "data_dir",
		Name: "Data directory",
	}

	if strings.TrimSpace(dataDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Data directory is empty."
		item.Hint = "The client needs a writable directory for settings and run history."
		return item
	}

	if err := c.mkdirAll(dataDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create data directory: %s", dataDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(dataDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Data directory is not writable: %s", dataDir)
		item.Hint = "Adjust permissions so settings and history can be stored."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dataDir)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	httpClient *http.Client,
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		httpClient: httpClient,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
