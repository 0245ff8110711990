package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"transcribe-client/internal/domain"
)

const maxErrorBodyBytes = 4096

// TransferError is a non-success response from the storage destination
// while pushing the file's bytes.
type TransferError struct {
	Status int
	Body   string
}

// Error renders the storage response for logs and UI messages.
func (e *TransferError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("storage upload failed with status %d", e.Status)
	}
	return fmt.Sprintf("storage upload failed with status %d: %s", e.Status, body)
}

// slotRequester obtains presigned upload destinations from the backend.
type slotRequester interface {
	RequestSlot(ctx context.Context, filename, contentType string) (domain.UploadDescriptor, error)
}

// Pipeline performs the two-step presigned upload: request a slot, then
// push the raw bytes to its destination URL. One attempt per call; retry
// policy belongs to the caller.
type Pipeline struct {
	slots      slotRequester
	httpClient *http.Client
	open       func(name string) (*os.File, error)
	stat       func(name string) (os.FileInfo, error)
}

// NewPipeline constructs the production pipeline with OS dependencies.
func NewPipeline(slots slotRequester) *Pipeline {
	return &Pipeline{
		slots:      slots,
		httpClient: &http.Client{},
		open:       os.Open,
		stat:       os.Stat,
	}
}

// Transfer PUTs the file's raw bytes to the descriptor's destination URL.
// contentType must equal the value used when the slot was requested; the
// storage signature covers it.
func (p *Pipeline) Transfer(ctx context.Context, path string, desc domain.UploadDescriptor, contentType string) error {
	if strings.TrimSpace(desc.URL) == "" {
		return errors.New("upload slot has no destination URL")
	}

	info, err := p.stat(path)
	if err != nil {
		return fmt.Errorf("access input media: %w", err)
	}
	f, err := p.open(path)
	if err != nil {
		return fmt.Errorf("open input media: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, desc.URL, f)
	if err != nil {
		return err
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", contentType)

	res, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
		return &TransferError{Status: res.StatusCode, Body: string(body)}
	}
	return nil
}

// UploadFile requests a slot for the file and transfers its bytes in one
// pass, returning the slot descriptor so the caller can create a job from
// its object key. A failed transfer discards the descriptor.
func (p *Pipeline) UploadFile(ctx context.Context, path, contentType string) (domain.UploadDescriptor, error) {
	desc, err := p.slots.RequestSlot(ctx, filepath.Base(path), contentType)
	if err != nil {
		return domain.UploadDescriptor{}, err
	}

	if err := p.Transfer(ctx, path, desc, contentType); err != nil {
		return domain.UploadDescriptor{}, err
	}
	return desc, nil
}

// NewPipelineForTests constructs a pipeline with injectable dependencies.
func NewPipelineForTests(
	slots slotRequester,
	httpClient *http.Client,
	open func(name string) (*os.File, error),
	stat func(name string) (os.FileInfo, error),
) *Pipeline {
	return &Pipeline{
		slots:      slots,
		httpClient: httpClient,
		open:       open,
		stat:       stat,
	}
}
