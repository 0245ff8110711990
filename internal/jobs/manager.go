package jobs

import (
	"errors"
	"fmt"
	"sync"

	"transcribe-client/internal/domain"
)

// ErrRunAlreadyActive is returned when starting a second run while one is
// still in flight.
var ErrRunAlreadyActive = errors.New("run already active")

// ErrNoActiveRun is returned when cancel is requested in a settled state.
var ErrNoActiveRun = errors.New("no active run")

// Manager tracks the single allowed active run and its transitions.
// Non-terminal states never overlap: a run must settle (or be cancelled)
// before the next one starts.
type Manager struct {
	mu      sync.RWMutex
	current domain.Run
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Run{
			State: domain.RunStateIdle,
		},
	}
}

// Start resets result fields and moves a fresh run to uploading state.
func (m *Manager) Start(runID, inputPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isActive(m.current.State) {
		return ErrRunAlreadyActive
	}

	m.current = domain.Run{
		ID:        runID,
		State:     domain.RunStateUploading,
		InputPath: inputPath,
	}
	return nil
}

// Transition validates and applies a state change for the current run.
// Transitioning to the current state is a no-op, which makes repeated
// cancellation idempotent.
func (m *Manager) Transition(state domain.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && state != domain.RunStateIdle {
		return fmt.Errorf("cannot transition without an active run")
	}
	if state == m.current.State {
		return nil
	}
	if !isValidTransition(m.current.State, state) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.State, state)
	}

	m.current.State = state
	return nil
}

// SetJob records the backend-assigned job identifier. Writes keyed to a
// run other than the current one are dropped, so a superseded run can
// never touch its successor's state.
func (m *Manager) SetJob(runID, jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.ID != runID {
		return
	}
	m.current.JobID = jobID
}

// SetProgress records the numeric progress indicator (0-100) when runID
// is still the current run.
func (m *Manager) SetProgress(runID string, progress int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.ID != runID {
		return
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	m.current.Progress = progress
}

// SetResult records the retrievable artifact URLs when runID is still the
// current run.
func (m *Manager) SetResult(runID, srtURL, fileURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.ID != runID {
		return
	}
	m.current.SrtURL = srtURL
	m.current.FileURL = fileURL
}

// SetError records the user-visible failure message when runID is still
// the current run.
func (m *Manager) SetError(runID, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.ID != runID {
		return
	}
	m.current.Error = message
}

// Current returns a snapshot of the current run.
func (m *Manager) Current() domain.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset clears run metadata and returns the manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Run{State: domain.RunStateIdle}
}

// IsActive reports whether the current state is a non-terminal stage.
func (m *Manager) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isActive(m.current.State)
}

// Cancel moves an active run to cancelled state.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isActive(m.current.State) {
		return ErrNoActiveRun
	}
	m.current.State = domain.RunStateCancelled
	return nil
}

// isActive checks if a state represents an in-flight run.
func isActive(state domain.RunState) bool {
	switch state {
	case domain.RunStateUploading, domain.RunStateCreating, domain.RunStatePolling:
		return true
	default:
		return false
	}
}

// isValidTransition enforces the allowed run state machine edges.
func isValidTransition(from, to domain.RunState) bool {
	switch from {
	case domain.RunStateIdle:
		return to == domain.RunStateUploading
	case domain.RunStateUploading:
		return to == domain.RunStateCreating || to == domain.RunStateFailed || to == domain.RunStateCancelled
	case domain.RunStateCreating:
		return to == domain.RunStatePolling || to == domain.RunStateFailed || to == domain.RunStateCancelled
	case domain.RunStatePolling:
		return to == domain.RunStateDone || to == domain.RunStateFailed || to == domain.RunStateCancelled
	case domain.RunStateDone, domain.RunStateFailed, domain.RunStateCancelled:
		return to == domain.RunStateUploading || to == domain.RunStateIdle
	default:
		return false
	}
}
