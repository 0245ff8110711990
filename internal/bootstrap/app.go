package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wailsapp/mimetype"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"transcribe-client/internal/api"
	"transcribe-client/internal/config"
	"transcribe-client/internal/diagnostics"
	"transcribe-client/internal/domain"
	"transcribe-client/internal/history"
	"transcribe-client/internal/jobs"
	"transcribe-client/internal/upload"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// ErrNotAuthenticated is returned when an upload is started without a
// signed-in session while the client is configured to require one.
var ErrNotAuthenticated = errors.New("sign-in required before uploading")

var mediaDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Media files",
		Pattern:     "*.mp4;*.mov;*.mkv;*.avi;*.mp3;*.wav;*.m4a;*.flac;*.aac;*.ogg;*.webm",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// uploader pushes a local file through the presigned upload pipeline.
type uploader interface {
	UploadFile(ctx context.Context, path, contentType string) (domain.UploadDescriptor, error)
}

// backendClient isolates the transcription API behind an interface.
type backendClient interface {
	CreateJob(ctx context.Context, fileKey string) (domain.Job, error)
	GetJobWithRetry(ctx context.Context, id string, opts api.RetryOptions) (domain.Job, error)
	CreateCheckout(ctx context.Context, plan string) (string, error)
	Ping(ctx context.Context) (string, error)
}

// App wires configuration, the backend client, run tracking, history, and
// UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Runs        *jobs.Manager
	Uploads     uploader
	API         backendClient
	History     *history.Store
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	dataDir     string

	mu          sync.Mutex
	session     domain.Session
	activeRunID string
	runStarted  time.Time
	cancel      context.CancelFunc
	events      *jobs.EventBus
	runtimeCtx  context.Context
}

// New builds the application with persisted settings and startup checks.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	config.LoadEnv()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	dataDir := filepath.Join(homeDir, ".transcribe-client")

	store := config.NewJSONStore(filepath.Join(dataDir, "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	runHistory, err := history.Open(filepath.Join(dataDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings, dataDir)

	app := &App{
		Settings:    settings,
		Store:       store,
		Runs:        jobs.NewManager(),
		History:     runHistory,
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		dataDir:     dataDir,
		events:      jobs.NewEventBus(1000),
	}
	app.configureBackend(settings)
	return app, nil
}

// configureBackend rebuilds the API client and upload pipeline from
// settings. The swap happens under the mutex because an in-flight run's
// goroutine works from a snapshot taken at start; it must never observe a
// half-written interface value.
func (a *App) configureBackend(settings domain.Settings) {
	client := api.New(api.Config{
		BaseURL:      settings.APIBaseURL,
		FetchTimeout: time.Duration(settings.FetchTimeoutMs) * time.Millisecond,
	})

	a.mu.Lock()
	a.API = client
	a.Uploads = upload.NewPipeline(client)
	a.mu.Unlock()
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "MN Transcribe",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores the Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// Shutdown cancels any in-flight run and releases local resources. It
// runs unconditionally on teardown, regardless of run state.
func (a *App) Shutdown(ctx context.Context) {
	a.abortActiveRun()

	a.mu.Lock()
	a.runtimeCtx = nil
	a.mu.Unlock()

	if a.History != nil {
		_ = a.History.Close()
	}
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns connectivity checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	a.Diagnostics = a.checker.Run(settings, a.dataDir)
	return a.Diagnostics, nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings persists settings, rebuilds the backend client, and
// refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	a.mu.Unlock()

	a.configureBackend(normalized)
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized, a.dataDir)
	}

	return normalized, nil
}

// SetSession records the identity snapshot pushed by the host's auth
// integration.
func (a *App) SetSession(session domain.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = session
}

// CurrentSession returns the last pushed identity snapshot.
func (a *App) CurrentSession() domain.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// PickInputFile opens a native file dialog for media selection.
func (a *App) PickInputFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select media file",
		Filters: mediaDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// StartUpload begins a new upload-and-poll run for the selected media
// file. An in-flight run is fully cancelled first, so at most one run is
// ever active.
func (a *App) StartUpload(inputPath string) (domain.Run, error) {
	path := strings.TrimSpace(inputPath)
	if path == "" {
		return domain.Run{}, errors.New("input media path is required")
	}

	a.mu.Lock()
	session := a.session
	requireAuth := a.Settings.RequireAuth
	a.mu.Unlock()
	if requireAuth && !session.Authenticated {
		return domain.Run{}, ErrNotAuthenticated
	}

	// A newer run always supersedes the previous one.
	a.abortActiveRun()

	runID := uuid.NewString()
	if err := a.Runs.Start(runID, path); err != nil {
		return domain.Run{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.activeRunID = runID
	a.runStarted = time.Now().UTC()
	a.cancel = cancel
	uploads := a.Uploads
	backend := a.API
	a.mu.Unlock()

	a.publishState(runID, domain.RunStateUploading, "Uploading media")

	// The run works from the backend wiring captured here; a settings save
	// mid-run reconfigures future runs only.
	go a.runUpload(ctx, runID, path, uploads, backend)
	return a.Runs.Current(), nil
}

// CancelUpload aborts the current run, if any. Invoking it with nothing
// in flight is a no-op, so repeated cancels are safe.
func (a *App) CancelUpload() {
	a.abortActiveRun()
}

// CurrentRun returns current run metadata and state.
func (a *App) CurrentRun() domain.Run {
	return a.Runs.Current()
}

// RunEvents returns all events with sequence greater than sinceSeq.
func (a *App) RunEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// ListHistory returns the most recently settled runs, newest first.
func (a *App) ListHistory(limit int) ([]history.Record, error) {
	if a.History == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return a.History.List(ctx, limit)
}

// StartCheckout creates a billing checkout for the plan and opens the
// provider's redirect URL in the system browser.
func (a *App) StartCheckout(plan string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a.mu.Lock()
	backend := a.API
	a.mu.Unlock()

	checkoutURL, err := backend.CreateCheckout(ctx, plan)
	if err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}

	a.mu.Lock()
	runtimeCtx := a.runtimeCtx
	a.mu.Unlock()
	if runtimeCtx != nil {
		wailsruntime.BrowserOpenURL(runtimeCtx, checkoutURL)
	}

	return checkoutURL, nil
}

// runUpload executes one run: upload, job creation, and the poll loop. It
// uses only the uploader and backend captured at start.
func (a *App) runUpload(ctx context.Context, runID, inputPath string, uploads uploader, backend backendClient) {
	contentType := detectContentType(inputPath)

	desc, err := uploads.UploadFile(ctx, inputPath, contentType)
	if err != nil {
		a.failRun(runID, err)
		return
	}

	key, err := desc.ObjectKey()
	if err != nil {
		a.failRun(runID, err)
		return
	}

	if a.isActiveRun(runID) {
		a.Runs.SetProgress(runID, 100)
		a.publishEvent(jobs.Event{
			RunID:    runID,
			Type:     jobs.EventTypeProgress,
			Progress: 100,
			Message:  "Upload complete",
		})
	}
	if !a.transition(runID, domain.RunStateCreating, "Creating transcription job") {
		return
	}

	job, err := backend.CreateJob(ctx, key)
	if err != nil {
		a.failRun(runID, err)
		return
	}

	a.Runs.SetJob(runID, job.ID)
	if !a.transition(runID, domain.RunStatePolling, "Waiting for transcription") {
		return
	}

	a.pollJob(ctx, runID, job.ID, backend)
}

// pollJob repeatedly fetches job status until a terminal state, an
// exhausted retry budget, or cancellation ends the loop.
func (a *App) pollJob(ctx context.Context, runID, jobID string, backend backendClient) {
	a.mu.Lock()
	settings := a.Settings
	a.mu.Unlock()

	interval := time.Duration(settings.PollIntervalMs) * time.Millisecond
	opts := api.RetryOptions{
		MaxRetries:  settings.MaxRetries,
		BackoffBase: time.Duration(settings.BackoffBaseMs) * time.Millisecond,
		BackoffMax:  time.Duration(settings.BackoffMaxMs) * time.Millisecond,
	}

	for {
		job, err := backend.GetJobWithRetry(ctx, jobID, opts)
		if err != nil {
			a.failRun(runID, err)
			return
		}

		switch job.Status {
		case domain.JobStatusDone:
			a.completeRun(runID, job)
			return
		case domain.JobStatusFailed:
			msg := strings.TrimSpace(job.ErrorMsg)
			if msg == "" {
				msg = "transcription failed"
			}
			a.failRunMessage(runID, msg)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// completeRun records result URLs and settles the run as done.
func (a *App) completeRun(runID string, job domain.Job) {
	if !a.claimRun(runID) {
		return
	}

	a.Runs.SetResult(runID, job.SrtURL, job.FileURL)
	if err := a.Runs.Transition(domain.RunStateDone); err == nil {
		a.publishState(runID, domain.RunStateDone, "Transcription finished")
	}
	a.publishEvent(jobs.Event{
		RunID:   runID,
		Type:    jobs.EventTypeResult,
		State:   domain.RunStateDone,
		Status:  job.Status,
		JobID:   job.ID,
		Message: "Subtitle file ready",
		SrtURL:  job.SrtURL,
		FileURL: job.FileURL,
	})
	a.recordHistory()
}

// failRun settles the run as failed unless the error is a cancellation,
// in which case the abort path has already handled it.
func (a *App) failRun(runID string, err error) {
	if api.IsCancelled(err) {
		return
	}
	a.failRunMessage(runID, api.UserMessage(err))
}

// failRunMessage settles the run as failed with a readable message.
func (a *App) failRunMessage(runID, message string) {
	if !a.claimRun(runID) {
		return
	}

	a.Runs.SetError(runID, message)
	if err := a.Runs.Transition(domain.RunStateFailed); err == nil {
		a.publishState(runID, domain.RunStateFailed, "Run failed")
	}
	a.publishEvent(jobs.Event{
		RunID:   runID,
		Type:    jobs.EventTypeError,
		State:   domain.RunStateFailed,
		Message: message,
	})
	a.recordHistory()
}

// transition applies a state change and publishes it, unless a newer run
// has superseded runID.
func (a *App) transition(runID string, state domain.RunState, message string) bool {
	if !a.isActiveRun(runID) {
		return false
	}
	if err := a.Runs.Transition(state); err != nil {
		return false
	}
	a.publishState(runID, state, message)
	return true
}

// abortActiveRun cancels any in-flight run and clears its handles. Safe
// to call when idle.
func (a *App) abortActiveRun() {
	a.mu.Lock()
	cancel := a.cancel
	runID := a.activeRunID
	a.cancel = nil
	a.activeRunID = ""
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	if err := a.Runs.Cancel(); err == nil {
		a.publishState(runID, domain.RunStateCancelled, "Cancelled")
		a.recordHistory()
	}
}

// claimRun releases the run handles when runID is still the active run.
// A false return means a newer run superseded this one and its outcome
// must be discarded without touching shared state.
func (a *App) claimRun(runID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeRunID != runID {
		return false
	}
	a.activeRunID = ""
	a.cancel = nil
	return true
}

// isActiveRun reports whether runID is still the run the UI observes.
func (a *App) isActiveRun(runID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeRunID == runID
}

// recordHistory persists the current run snapshot as a settled record.
func (a *App) recordHistory() {
	if a.History == nil {
		return
	}

	run := a.Runs.Current()
	a.mu.Lock()
	started := a.runStarted
	a.mu.Unlock()
	if started.IsZero() {
		started = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := a.History.Save(ctx, history.Record{
		ID:         run.ID,
		InputPath:  run.InputPath,
		JobID:      run.JobID,
		State:      run.State,
		SrtURL:     run.SrtURL,
		FileURL:    run.FileURL,
		Error:      run.Error,
		CreatedAt:  started,
		FinishedAt: time.Now().UTC(),
	})
	if err != nil {
		a.publishEvent(jobs.Event{
			RunID:   run.ID,
			Type:    jobs.EventTypeError,
			Message: fmt.Sprintf("save run history: %v", err),
		})
	}
}

// publishState sends a normalized state event.
func (a *App) publishState(runID string, state domain.RunState, message string) {
	a.publishEvent(jobs.Event{
		RunID:   runID,
		Type:    jobs.EventTypeState,
		State:   state,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "run:event", published)
	}
}

// runtimeContext returns the Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// detectContentType sniffs the media MIME type from file content, falling
// back to a generic binary type when the file cannot be read. The slot
// request and the byte transfer both use this exact value.
func detectContentType(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil || mtype == nil {
		return "application/octet-stream"
	}
	return mtype.String()
}
