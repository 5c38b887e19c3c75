package policy

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talonsec/talon/pkg/config"
)

func newTestLimiter(window float64, maxRequests, globalMax int) *RateLimiter {
	return NewRateLimiter(config.RateLimitConfig{
		WindowSize:        window,
		MaxRequests:       maxRequests,
		GlobalMaxRequests: globalMax,
	})
}

func TestRateLimiterAdmitAdmitDeny(t *testing.T) {
	l := newTestLimiter(1, 2, 100)

	assert.True(t, l.CheckAndRecord("whois"))
	assert.True(t, l.CheckAndRecord("whois"))
	assert.False(t, l.CheckAndRecord("whois"))

	assert.Greater(t, l.CurrentRate("whois"), 0.0)
}

func TestRateLimiterDeniedRequestsNotCounted(t *testing.T) {
	l := newTestLimiter(60, 1, 100)

	require.True(t, l.CheckAndRecord("nmap"))
	for i := 0; i < 5; i++ {
		require.False(t, l.CheckAndRecord("nmap"))
	}

	// One admitted request in a 60s window
	assert.InDelta(t, 1.0/60.0, l.CurrentRate("nmap"), 1e-9)
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	l := newTestLimiter(1, 2, 100)
	now := time.Now()
	l.nowFunc = func() time.Time { return now }

	require.True(t, l.CheckAndRecord("dig"))
	require.True(t, l.CheckAndRecord("dig"))
	require.False(t, l.CheckAndRecord("dig"))

	// First call after now+window is admitted again
	now = now.Add(1100 * time.Millisecond)
	assert.True(t, l.CheckAndRecord("dig"))
}

func TestRateLimiterGlobalWindow(t *testing.T) {
	l := newTestLimiter(60, 10, 3)

	require.True(t, l.CheckAndRecord("a"))
	require.True(t, l.CheckAndRecord("b"))
	require.True(t, l.CheckAndRecord("c"))

	// Per-adapter windows have room but the global window is full
	assert.False(t, l.Check("d"))
	assert.False(t, l.CheckAndRecord("d"))
	assert.Greater(t, l.GlobalRate(), 0.0)
}

func TestRateLimiterCheckDoesNotMutate(t *testing.T) {
	l := newTestLimiter(60, 1, 100)

	for i := 0; i < 10; i++ {
		assert.True(t, l.Check("wayback"))
	}
	assert.Zero(t, l.CurrentRate("wayback"))
}

func TestRateLimiterConcurrentAdmissionNeverOverAdmits(t *testing.T) {
	const limit = 25
	l := newTestLimiter(60, limit, 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.CheckAndRecord("crtsh") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, admitted)
}

func TestRateLimiterRates(t *testing.T) {
	l := newTestLimiter(10, 5, 100)
	l.Record("nmap")
	l.Record("nmap")
	l.Record("whois")

	rates := l.Rates()
	assert.InDelta(t, 0.2, rates["nmap"], 1e-9)
	assert.InDelta(t, 0.1, rates["whois"], 1e-9)
	_, hasGlobal := rates[GlobalKey]
	assert.False(t, hasGlobal)
}
