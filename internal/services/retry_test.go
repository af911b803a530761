package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestRetryPolicy(t *testing.T) {
	t.Run("attempts default", func(t *testing.T) {
		if got := (retryPolicy{}).attempts(); got != defaultMaxRetries {
			t.Errorf("expected %d, got %d", defaultMaxRetries, got)
		}
		if got := (retryPolicy{maxRetries: 5}).attempts(); got != 5 {
			t.Errorf("expected 5, got %d", got)
		}
	})

	t.Run("backoff doubles", func(t *testing.T) {
		p := retryPolicy{baseBackoff: 100 * time.Millisecond}
		want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
		for i, w := range want {
			if got := p.backoff(i); got != w {
				t.Errorf("attempt %d: expected %v, got %v", i, w, got)
			}
		}
	})
}

func TestShouldRetry(t *testing.T) {
	ctx := context.Background()
	resp := func(code int, retryAfter string) *http.Response {
		r := &http.Response{StatusCode: code, Header: http.Header{}}
		if retryAfter != "" {
			r.Header.Set("Retry-After", retryAfter)
		}
		return r
	}

	tests := []struct {
		name      string
		resp      *http.Response
		err       error
		wantRetry bool
		wantDelay time.Duration
	}{
		{"ok", resp(http.StatusOK, ""), nil, false, 0},
		{"not found", resp(http.StatusNotFound, ""), nil, false, 0},
		{"rate limited", resp(http.StatusTooManyRequests, "2"), nil, true, 2 * time.Second},
		{"server error", resp(http.StatusBadGateway, ""), nil, true, 0},
		{"transport error", nil, errors.New("connection reset"), true, 0},
		{"token refresh rejected", nil, &oauth2.RetrieveError{Response: &http.Response{StatusCode: 400}}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, retry := shouldRetry(ctx, tt.resp, tt.err)
			if retry != tt.wantRetry {
				t.Errorf("expected retry=%v, got %v", tt.wantRetry, retry)
			}
			if delay != tt.wantDelay {
				t.Errorf("expected delay %v, got %v", tt.wantDelay, delay)
			}
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, retry := shouldRetry(cctx, nil, context.Canceled); retry {
			t.Error("expected no retry after cancellation")
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "3", 3 * time.Second},
		{"zero", "0", 0},
		{"garbage", "soon", 0},
		{"past date", "Mon, 01 Jan 2001 00:00:00 GMT", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Response{Header: http.Header{}}
			if tt.value != "" {
				r.Header.Set("Retry-After", tt.value)
			}
			if got := parseRetryAfter(r); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSleepWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepWithContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := sleepWithContext(context.Background(), 0); err != nil {
		t.Errorf("expected nil for zero delay, got %v", err)
	}
}

func TestIdempotent(t *testing.T) {
	for method, want := range map[string]bool{
		http.MethodGet:    true,
		http.MethodPut:    true,
		http.MethodDelete: true,
		http.MethodPost:   false,
		http.MethodPatch:  false,
	} {
		if got := idempotent(method); got != want {
			t.Errorf("idempotent(%s) = %v, want %v", method, got, want)
		}
	}
}
