package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrTimeout marks a request that exceeded its deadline.
var ErrTimeout = errors.New("request deadline exceeded")

// ErrCancelled marks a request aborted through the caller's context.
var ErrCancelled = errors.New("request cancelled")

// ErrEmptyFileKey is returned by CreateJob before any network traffic when
// the object key is blank after trimming.
var ErrEmptyFileKey = errors.New("file key is empty")

// ProtocolError is a non-success HTTP response from the transcription
// backend, carrying the status code and raw body.
type ProtocolError struct {
	Status int
	Body   string
}

// Error renders the status and trimmed body for logs and UI messages.
func (e *ProtocolError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, body)
}

// wrapTransport maps context-derived failures onto stable sentinels so
// callers can tell a deadline from a user abort without inspecting the
// transport's error chain.
func wrapTransport(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	default:
		return err
	}
}

// IsCancelled reports whether err stems from caller-initiated cancellation.
// Cancellation is never a retryable failure and never a user-facing error.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// UserMessage degrades any failure to a readable message for the UI.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "request failed"
	}
	return msg
}
