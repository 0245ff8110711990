package api

import (
	"context"
	"fmt"
	"time"

	"transcribe-client/internal/domain"
)

// RetryOptions bounds the retrying job fetch. MaxRetries is a hard
// ceiling on retries after the initial attempt.
type RetryOptions struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// GetJobWithRetry fetches a job snapshot, retrying failed attempts with
// jittered exponential backoff. Timeouts and protocol failures count as
// one attempt each; cancellation propagates immediately and is never
// retried. The total number of attempts is at most 1 + MaxRetries.
func (c *Client) GetJobWithRetry(ctx context.Context, id string, opts RetryOptions) (domain.Job, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		job, err := c.GetJob(ctx, id)
		if err == nil {
			return job, nil
		}
		lastErr = err

		if IsCancelled(err) || ctx.Err() != nil {
			return domain.Job{}, lastErr
		}
		if attempt >= opts.MaxRetries {
			return domain.Job{}, lastErr
		}

		select {
		case <-ctx.Done():
			return domain.Job{}, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		case <-time.After(Delay(attempt, opts.BackoffBase, opts.BackoffMax)):
		}
	}
}
