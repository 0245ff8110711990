package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"transcribe-client/internal/domain"
)

// TestPing verifies the health probe decodes the service name.
func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("path = %q, want /", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "service": "mn-transcribe-api"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	service, err := c.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if service != "mn-transcribe-api" {
		t.Fatalf("service = %q, want mn-transcribe-api", service)
	}
}

// TestRequestSlotSendsFilenameAndContentType verifies the presign request
// payload and response decoding.
func TestRequestSlotSendsFilenameAndContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/presign" {
			t.Errorf("got %s %s, want POST /v1/presign", r.Method, r.URL.Path)
		}
		var req struct {
			Filename    string `json:"filename"`
			ContentType string `json:"content_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Filename != "clip.mov" || req.ContentType != "video/quicktime" {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(domain.UploadDescriptor{
			Key:     "abc",
			FileKey: "abc_clip.mov",
			URL:     "https://storage.example/put",
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	desc, err := c.RequestSlot(context.Background(), "clip.mov", "video/quicktime")
	if err != nil {
		t.Fatalf("RequestSlot() error = %v", err)
	}
	if desc.FileKey != "abc_clip.mov" || desc.URL == "" {
		t.Fatalf("descriptor = %+v", desc)
	}
}

// TestCreateJobValidatesKeyLocally verifies blank keys fail before any
// network traffic.
func TestCreateJobValidatesKeyLocally(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	for _, key := range []string{"", "   ", "\t\n"} {
		if _, err := c.CreateJob(context.Background(), key); !errors.Is(err, ErrEmptyFileKey) {
			t.Fatalf("CreateJob(%q) error = %v, want ErrEmptyFileKey", key, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("backend calls = %d, want 0", n)
	}
}

// TestCreateJobReturnsProtocolError verifies non-2xx responses surface
// status and body.
func TestCreateJobReturnsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Media too long"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.CreateJob(context.Background(), "abc_clip.mov")

	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("error = %v, want *ProtocolError", err)
	}
	if protoErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", protoErr.Status)
	}
	if protoErr.Body == "" {
		t.Fatal("expected response body in error")
	}
}

// TestGetJobDisablesCaching verifies no-cache headers on status fetches.
func TestGetJobDisablesCaching(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cache-Control") != "no-cache" || r.Header.Get("Pragma") != "no-cache" {
			t.Errorf("missing no-cache headers: %v", r.Header)
		}
		_ = json.NewEncoder(w).Encode(domain.Job{ID: "j1", Status: domain.JobStatusProcessing})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	job, err := c.GetJob(context.Background(), "j1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != domain.JobStatusProcessing {
		t.Fatalf("status = %s, want processing", job.Status)
	}
}

// TestGetJobTimeout verifies the fetch deadline surfaces as ErrTimeout.
func TestGetJobTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{BaseURL: srv.URL, FetchTimeout: 50 * time.Millisecond})
	_, err := c.GetJob(context.Background(), "j1")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if IsCancelled(err) {
		t.Fatal("timeout must not classify as cancellation")
	}
}

// TestGetJobCancelled verifies caller cancellation is distinguishable
// from other failures.
func TestGetJobCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.Job{ID: "j1", Status: domain.JobStatusQueued})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.GetJob(ctx, "j1")
	if !IsCancelled(err) {
		t.Fatalf("error = %v, want cancellation", err)
	}
}

// TestGetJobWithRetryAttemptBudget verifies exactly 1 + maxRetries
// attempts on persistent failure.
func TestGetJobWithRetryAttemptBudget(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.GetJobWithRetry(context.Background(), "j1", RetryOptions{
		MaxRetries:  3,
		BackoffBase: time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
	})

	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("error = %v, want *ProtocolError", err)
	}
	if n := atomic.LoadInt32(&calls); n != 4 {
		t.Fatalf("attempts = %d, want 4", n)
	}
}

// TestGetJobWithRetrySucceedsMidway verifies the loop stops on first
// success.
func TestGetJobWithRetrySucceedsMidway(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "not yet", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.Job{ID: "j1", Status: domain.JobStatusDone})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	job, err := c.GetJobWithRetry(context.Background(), "j1", RetryOptions{
		MaxRetries:  5,
		BackoffBase: time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("GetJobWithRetry() error = %v", err)
	}
	if job.Status != domain.JobStatusDone {
		t.Fatalf("status = %s, want done", job.Status)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("attempts = %d, want 3", n)
	}
}

// TestGetJobWithRetryNeverRetriesCancellation verifies a cancelled caller
// propagates immediately with no retries.
func TestGetJobWithRetryNeverRetriesCancellation(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.GetJobWithRetry(ctx, "j1", RetryOptions{
		MaxRetries:  5,
		BackoffBase: time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
	})
	if !IsCancelled(err) {
		t.Fatalf("error = %v, want cancellation", err)
	}
	if n := atomic.LoadInt32(&calls); n > 1 {
		t.Fatalf("attempts = %d, want at most 1", n)
	}
}

// TestCreateCheckout verifies the billing redirect URL round trip.
func TestCreateCheckout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/billing/checkout" {
			t.Errorf("got %s %s, want POST /v1/billing/checkout", r.Method, r.URL.Path)
		}
		var req struct {
			Plan string `json:"plan"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Plan != "pro" {
			t.Errorf("plan = %q, err = %v", req.Plan, err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://billing.example/session"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	checkoutURL, err := c.CreateCheckout(context.Background(), "pro")
	if err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}
	if checkoutURL != "https://billing.example/session" {
		t.Fatalf("url = %q", checkoutURL)
	}
}
