package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
)

// retryPolicy retries transient HTTP failures (transport errors, 429, 5xx) with exponential backoff.
type retryPolicy struct {
	maxRetries  int
	baseBackoff time.Duration
}

func (p retryPolicy) attempts() int {
	if p.maxRetries <= 0 {
		return defaultMaxRetries
	}
	return p.maxRetries
}

func (p retryPolicy) backoff(attempt int) time.Duration {
	base := p.baseBackoff
	if base <= 0 {
		base = defaultBackoff
	}
	return base * time.Duration(1<<attempt)
}

// do sends req until it succeeds, fails permanently, or attempts run out.
//
// Non-idempotent requests (POST, PATCH) are only resent after a 429: a 5xx or a transport error
// may arrive after the server already applied the change.
//
// Requests with a body must have GetBody set (true for [http.NewRequestWithContext] with a [bytes.Reader]).
func (p retryPolicy) do(client *http.Client, req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	attempts := p.attempts()

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to reset request body: %w", err)
			}
			req.Body = body
		}

		resp, err := client.Do(req)
		retryAfter, retry := shouldRetry(ctx, resp, err)
		if retry && !idempotent(req.Method) && !rateLimited(resp) {
			retry = false
		}
		if !retry {
			return resp, err
		}

		if attempt == attempts-1 {
			if err != nil {
				return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, err)
			}
			return resp, nil
		}

		if resp != nil {
			resp.Body.Close()
		}

		delay := p.backoff(attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts", attempts)
}

func shouldRetry(ctx context.Context, resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		if ctx.Err() != nil {
			return 0, false
		}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return 0, false
		}
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func rateLimited(resp *http.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusTooManyRequests
}

func parseRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
