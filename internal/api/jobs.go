package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"transcribe-client/internal/domain"
)

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// RequestSlot asks the backend for a presigned upload destination. The
// content type declared here must be repeated verbatim on the byte
// transfer or the storage layer rejects the signature.
func (c *Client) RequestSlot(ctx context.Context, filename, contentType string) (domain.UploadDescriptor, error) {
	var desc domain.UploadDescriptor
	req := presignRequest{Filename: filename, ContentType: contentType}
	if err := c.call(ctx, http.MethodPost, "/v1/presign", req, &desc, false); err != nil {
		return domain.UploadDescriptor{}, err
	}
	return desc, nil
}

type createJobRequest struct {
	FileKey string `json:"file_key"`
}

// CreateJob creates a transcription job from an uploaded object key and
// returns its identifier and initial status. The key is validated locally
// before any network traffic.
func (c *Client) CreateJob(ctx context.Context, fileKey string) (domain.Job, error) {
	key := strings.TrimSpace(fileKey)
	if key == "" {
		return domain.Job{}, ErrEmptyFileKey
	}

	var job domain.Job
	if err := c.call(ctx, http.MethodPost, "/v1/jobs", createJobRequest{FileKey: key}, &job, false); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

// GetJob fetches one job snapshot under the configured fetch deadline with
// caching disabled, so every call observes the freshest backend state.
func (c *Client) GetJob(ctx context.Context, id string) (domain.Job, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Job{}, errors.New("job id is empty")
	}

	tctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	var job domain.Job
	if err := c.call(tctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(id), nil, &job, true); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// CreateCheckout starts a billing checkout for the given plan and returns
// the provider's redirect URL.
func (c *Client) CreateCheckout(ctx context.Context, plan string) (string, error) {
	p := strings.TrimSpace(plan)
	if p == "" {
		return "", errors.New("plan is empty")
	}

	var res checkoutResponse
	if err := c.call(ctx, http.MethodPost, "/v1/billing/checkout", checkoutRequest{Plan: p}, &res, false); err != nil {
		return "", err
	}
	return res.URL, nil
}
