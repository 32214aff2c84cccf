package adapters

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

const (
	defaultHTTPTimeout    = 60 * time.Second
	defaultHTTPAttempts   = 3
	defaultHTTPRetryDelay = 200 * time.Millisecond
	maxHTTPRetryDelay     = 2 * time.Second
)

// HTTPConfig tunes requests made against a mirror.
type HTTPConfig struct {
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
}

// mirrorClient issues GET requests against a mirror. Transport errors,
// 5xx and 429 responses are retried up to attempts times with capped
// exponential backoff; any other response is handed to the caller.
type mirrorClient struct {
	client   *http.Client
	attempts int
	delay    time.Duration
}

func newMirrorClient(client *http.Client, cfg HTTPConfig) mirrorClient {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	attempts := cfg.Retries
	if attempts <= 0 {
		attempts = defaultHTTPAttempts
	}
	delay := time.Duration(cfg.RetryDelayMs) * time.Millisecond
	if delay <= 0 {
		delay = defaultHTTPRetryDelay
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return mirrorClient{client: client, attempts: attempts, delay: delay}
}

// newOneShotClient never retries; used where a failure must surface at
// once.
func newOneShotClient(client *http.Client, timeout time.Duration) mirrorClient {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return mirrorClient{client: client, attempts: 1, delay: defaultHTTPRetryDelay}
}

func (c mirrorClient) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid mirror url").
			WithCause(err)
	}
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request canceled").
				WithCause(err)
		}
		resp, err := c.client.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case retryableStatus(resp.StatusCode) && attempt < c.attempts:
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		default:
			return resp, nil
		}
		if attempt >= c.attempts || ctx.Err() != nil {
			break
		}
		if !sleepContext(ctx, c.backoff(attempt)) {
			break
		}
	}
	if ctx.Err() != nil {
		lastErr = ctx.Err()
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("request failed").
		WithCause(lastErr)
}

// backoff doubles the base delay per attempt up to maxHTTPRetryDelay and
// adds up to half of it as jitter.
func (c mirrorClient) backoff(attempt int) time.Duration {
	delay := c.delay << (attempt - 1)
	if delay <= 0 || delay > maxHTTPRetryDelay {
		delay = maxHTTPRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
