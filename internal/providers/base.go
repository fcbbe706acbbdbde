package providers

import (
	"context"
	"time"
)

// base holds shared retry configuration for a wire-format client.
type base struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

func newBase(name string, maxRetries int, retryDelay time.Duration) base {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return base{name: name, maxRetries: maxRetries, retryDelay: retryDelay}
}

// retry executes op with linear backoff if isRetryable returns true for its
// error. It does not retry once the stream has already started delivering
// chunks; callers only use it around the initial request/connect step.
func (b *base) retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if isRetryable == nil || !isRetryable(err) {
			return err
		}
		if attempt >= b.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.retryDelay * time.Duration(attempt)):
		}
	}
	return lastErr
}

func isRetryableHTTPStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
