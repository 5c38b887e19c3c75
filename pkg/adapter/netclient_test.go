package adapter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient(policy RetryPolicy, rpm int) (*HTTPClient, *[]time.Duration) {
	c := NewHTTPClient(5*time.Second, policy, rpm)
	var slept []time.Duration
	c.sleepFor = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestHTTPClientSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, _ := fastClient(DefaultRetryPolicy(), 0)
	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := fastClient(RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, Factor: 2}, 0)
	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClientHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, slept := fastClient(RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, Factor: 2, HonorRetryAfter: true}, 0)
	_, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotEmpty(t, *slept)
	assert.Equal(t, 7*time.Second, (*slept)[0])
}

func TestHTTPClientExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := fastClient(RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, Factor: 2}, 0)
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPClientClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := fastClient(DefaultRetryPolicy(), 0)
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPClientPacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// 60 RPM = one request per second; the second request must pace
	c, slept := fastClient(DefaultRetryPolicy(), 60)
	_, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	require.NotEmpty(t, *slept)
	assert.Greater(t, (*slept)[0], 500*time.Millisecond)
}

func TestPaceRequestConcurrentReservations(t *testing.T) {
	c := NewHTTPClient(5*time.Second, DefaultRetryPolicy(), 60) // one slot per second

	var mu sync.Mutex
	var sleeps int
	c.sleepFor = func(_ context.Context, _ time.Duration) error {
		mu.Lock()
		sleeps++
		mu.Unlock()
		return nil
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.paceRequest(context.Background()))
		}()
	}
	wg.Wait()

	// The first caller takes the free slot; the other three each reserve a
	// later one, so the final reservation sits three paces out.
	c.paceMu.Lock()
	last := c.lastReq
	c.paceMu.Unlock()
	assert.Equal(t, 3, sleeps)
	assert.WithinDuration(t, start.Add(3*time.Second), last, 500*time.Millisecond)
}

func TestHTTPClientRetriesConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	url := srv.URL
	srv.Close() // every dial now gets connection refused

	c, slept := fastClient(RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, Factor: 2}, 0)
	_, err := c.Get(context.Background(), url)
	require.Error(t, err)
	assert.Len(t, *slept, 2, "each allowed retry backs off once")
}

func TestRetryableTransportError(t *testing.T) {
	refused := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
	reset := &net.OpError{Op: "read", Err: syscall.ECONNRESET}

	assert.True(t, retryableTransportError(refused))
	assert.True(t, retryableTransportError(&url.Error{Op: "Get", URL: "http://x", Err: refused}))
	assert.True(t, retryableTransportError(reset))

	assert.False(t, retryableTransportError(context.DeadlineExceeded))
	assert.False(t, retryableTransportError(&url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}))
	assert.False(t, retryableTransportError(timeoutError{}))
	assert.False(t, retryableTransportError(errors.New("no such host")))
}

// timeoutError mimics the net.Error a client timeout produces.
type timeoutError struct{}

func (timeoutError) Error() string   { return "timeout awaiting response headers" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return false }

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, parseRetryAfter("30"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("garbage"))
	assert.Zero(t, parseRetryAfter("-5"))
}
