package ingest

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy wraps individual fetches with a per-attempt timeout and
// exponential backoff: baseDelay * 2^(attempt-1).
type RetryPolicy struct {
	Retries   int
	BaseDelay time.Duration
	Timeout   time.Duration
}

// sleepFunc is injectable for tests.
var sleepFunc = sleepCtx

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Do runs fn, retrying transient failures. Retry exhaustion returns
// the last failure.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			backoff := p.BaseDelay * time.Duration(1<<uint(attempt-1))
			if err := sleepFunc(ctx, backoff); err != nil {
				return err
			}
		}

		var err error
		if p.Timeout > 0 {
			attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
			err = fn(attemptCtx)
			cancel()
		} else {
			err = fn(ctx)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

// FetchWithRetry fetches a URL under the policy and returns the body.
func (p RetryPolicy) FetchWithRetry(ctx context.Context, f *Fetcher, url string) ([]byte, error) {
	var body []byte
	err := p.Do(ctx, func(ctx context.Context) error {
		b, err := f.Fetch(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch with retry: %w", err)
	}
	return body, nil
}

// MapLimit runs fn for every URL with at most limit concurrent calls,
// returning per-URL results in input order. The first error wins; all
// in-flight calls still complete.
func MapLimit(ctx context.Context, urls []string, limit int, fn func(ctx context.Context, url string) ([]byte, error)) ([][]byte, error) {
	if limit <= 0 {
		limit = 1
	}

	results := make([][]byte, len(urls))
	errs := make([]error, len(urls))
	sem := make(chan struct{}, limit)
	done := make(chan int, len(urls))

	for i, u := range urls {
		go func(idx int, url string) {
			defer func() { done <- idx }()
			select {
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()
			results[idx], errs[idx] = fn(ctx, url)
		}(i, u)
	}

	for range urls {
		<-done
	}
	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
