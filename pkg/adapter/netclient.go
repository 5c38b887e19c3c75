package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/talonsec/talon/pkg/version"
)

// maxResponseBytes caps how much of a remote response an adapter will read.
const maxResponseBytes = 10 << 20

// RetryPolicy is the single retry configuration all network adapters
// consume. 429 and 5xx responses are retried with exponential backoff,
// honoring Retry-After when the server sends one, as are connection-level
// failures (refused, reset). Timeouts are never retried.
type RetryPolicy struct {
	MaxRetries      int
	BaseDelay       time.Duration
	Factor          float64
	HonorRetryAfter bool
}

// DefaultRetryPolicy matches the built-in adapter defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		BaseDelay:       2 * time.Second,
		Factor:          2.0,
		HonorRetryAfter: true,
	}
}

func (p RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		b.InitialInterval = p.BaseDelay
	}
	if p.Factor > 0 {
		b.Multiplier = p.Factor
	}
	b.MaxElapsedTime = 0 // retries are bounded by count, not wall time
	b.Reset()
	return b
}

// HTTPClient wraps the standard client with the shared retry policy and a
// per-request pacing limit for services that publish a requests-per-minute
// budget.
type HTTPClient struct {
	client   *http.Client
	policy   RetryPolicy
	pace     time.Duration // minimum gap between requests (0 = unpaced)
	logger   *slog.Logger
	sleepFor func(ctx context.Context, d time.Duration) error // test seam

	paceMu  sync.Mutex // adapter instances are shared across workers
	lastReq time.Time
}

// NewHTTPClient builds a client with the given per-request timeout, retry
// policy, and rate_limit_rpm pacing (0 disables pacing).
func NewHTTPClient(timeout time.Duration, policy RetryPolicy, rateLimitRPM int) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var pace time.Duration
	if rateLimitRPM > 0 {
		pace = time.Minute / time.Duration(rateLimitRPM)
	}
	return &HTTPClient{
		client:   &http.Client{Timeout: timeout},
		policy:   policy,
		pace:     pace,
		logger:   slog.Default().With("component", "http-client"),
		sleepFor: sleepContext,
	}
}

// Get fetches a URL and returns the response body. Retries per the policy;
// a still-failing terminal status comes back as an error carrying the
// status code.
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	attempts := 0
	bo := c.policy.newBackOff()

	for {
		attempts++

		if err := c.paceRequest(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("User-Agent", version.Full())
		req.Header.Set("Accept", "application/json, text/plain, */*")

		resp, err := c.client.Do(req)
		if err != nil {
			// Client timeouts are never retried; the caller maps them onto
			// the result status. Connection-level failures get the same
			// backoff as a 5xx.
			if !retryableTransportError(err) || attempts > c.policy.MaxRetries {
				return nil, err
			}
			delay := bo.NextBackOff()
			c.logger.Debug("Retrying request after transport error",
				"url", url,
				"attempt", attempts,
				"delay", delay,
				"error", err)
			if sleepErr := c.sleepFor(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode < 400 {
			return body, nil
		}

		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable || attempts > c.policy.MaxRetries {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, truncateBody(body))
		}

		delay := bo.NextBackOff()
		if c.policy.HonorRetryAfter {
			if after := parseRetryAfter(resp.Header.Get("Retry-After")); after > 0 {
				delay = after
			}
		}

		c.logger.Debug("Retrying request",
			"url", url,
			"status", resp.StatusCode,
			"attempt", attempts,
			"delay", delay)

		if err := c.sleepFor(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// paceRequest sleeps long enough to respect the per-service RPM budget.
// Each caller reserves the next free slot under the mutex and sleeps
// outside it, so concurrent workers sharing one adapter instance queue up
// instead of racing.
func (c *HTTPClient) paceRequest(ctx context.Context) error {
	if c.pace <= 0 {
		return nil
	}

	c.paceMu.Lock()
	now := time.Now()
	slot := c.lastReq.Add(c.pace)
	if slot.Before(now) {
		slot = now
	}
	c.lastReq = slot
	c.paceMu.Unlock()

	if wait := time.Until(slot); wait > 0 {
		return c.sleepFor(ctx, wait)
	}
	return nil
}

// retryableTransportError reports whether a transport failure is worth a
// retry. Refused and reset connections are transient; anything that timed
// out already consumed its budget.
func retryableTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
