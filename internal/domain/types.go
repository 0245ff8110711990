package domain

import (
	"errors"
	"strings"
)

// JobStatus is the backend-owned lifecycle of a remote transcription job.
// The client only ever reads snapshots of it.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further backend transition can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Job is one remote transcription job snapshot as returned by the backend.
type Job struct {
	ID          string    `json:"id"`
	Status      JobStatus `json:"status"`
	FileKey     string    `json:"file_key,omitempty"`
	DurationSec float64   `json:"duration_sec,omitempty"`
	SrtKey      string    `json:"srt_key,omitempty"`
	ErrorMsg    string    `json:"error_msg,omitempty"`
	FileURL     string    `json:"file_url,omitempty"`
	SrtURL      string    `json:"srt_url,omitempty"`
}

// ErrMissingKey is returned when a presign response carries no usable
// object key in either field.
var ErrMissingKey = errors.New("upload slot returned no object key")

// UploadDescriptor is the backend's answer to a presign request. The
// destination URL is single-purpose and time-limited; bytes pushed to it
// must declare the same content type the slot was requested with.
type UploadDescriptor struct {
	Key     string `json:"key"`
	FileKey string `json:"file_key"`
	URL     string `json:"url"`
	ReadURL string `json:"read_url,omitempty"`
}

// ObjectKey returns the storage key to create a job from, preferring
// file_key and falling back to the short alias.
func (d UploadDescriptor) ObjectKey() (string, error) {
	if k := strings.TrimSpace(d.FileKey); k != "" {
		return k, nil
	}
	if k := strings.TrimSpace(d.Key); k != "" {
		return k, nil
	}
	return "", ErrMissingKey
}

// RunState tracks the client-side upload-and-poll lifecycle for one run.
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateUploading RunState = "uploading"
	RunStateCreating  RunState = "creating"
	RunStatePolling   RunState = "polling"
	RunStateDone      RunState = "done"
	RunStateFailed    RunState = "failed"
	RunStateCancelled RunState = "cancelled"
)

// Run stores the current run identity, state, and result references.
type Run struct {
	ID        string   `json:"id"`
	State     RunState `json:"state"`
	InputPath string   `json:"inputPath,omitempty"`
	JobID     string   `json:"jobId,omitempty"`
	Progress  int      `json:"progress"`
	SrtURL    string   `json:"srtUrl,omitempty"`
	FileURL   string   `json:"fileUrl,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Settings contains user-adjustable client configuration.
type Settings struct {
	APIBaseURL     string `json:"apiBaseUrl"`
	PollIntervalMs int    `json:"pollIntervalMs"`
	FetchTimeoutMs int    `json:"fetchTimeoutMs"`
	MaxRetries     int    `json:"maxRetries"`
	BackoffBaseMs  int    `json:"backoffBaseMs"`
	BackoffMaxMs   int    `json:"backoffMaxMs"`
	RequireAuth    bool   `json:"requireAuth"`
}

// Session is the identity snapshot fed in by the host's auth integration.
// The client needs nothing beyond this to gate uploads.
type Session struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
}
