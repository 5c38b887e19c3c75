// Package policy enforces the engagement's hard safety contracts: target
// authorization, sliding-window rate limits, exploit gating, and violation
// accounting.
package policy

import (
	"sync"
	"time"

	"github.com/talonsec/talon/pkg/config"
)

// GlobalKey is the window shared by every adapter.
const GlobalKey = "global"

// RateLimiter implements per-key sliding windows. Admission consults both
// the adapter window and the global window; both must admit. Windows count
// admitted requests only, never denied ones.
type RateLimiter struct {
	window     time.Duration
	maxPerKey  int
	maxGlobal  int
	mu         sync.Mutex
	windows    map[string][]time.Time
	nowFunc    func() time.Time // test seam
}

// NewRateLimiter creates a limiter from the rate_limiting config section.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		window:    cfg.Window(),
		maxPerKey: cfg.MaxRequests,
		maxGlobal: cfg.GlobalMaxRequests,
		windows:   make(map[string][]time.Time),
		nowFunc:   time.Now,
	}
}

// adapterKey namespaces per-adapter windows away from the global window.
func adapterKey(name string) string {
	return "adapter:" + name
}

// trimLocked drops timestamps older than now-window. Caller holds mu.
func (l *RateLimiter) trimLocked(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	entries := l.windows[key]
	i := 0
	for ; i < len(entries); i++ {
		if entries[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		entries = append([]time.Time(nil), entries[i:]...)
		l.windows[key] = entries
	}
	return entries
}

// Check reports whether one request for the named adapter would be admitted
// right now. It never mutates the windows.
func (l *RateLimiter) Check(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if len(l.trimLocked(adapterKey(name), now)) >= l.maxPerKey {
		return false
	}
	if len(l.trimLocked(GlobalKey, now)) >= l.maxGlobal {
		return false
	}
	return true
}

// CheckAndRecord atomically admits or denies one request for the named
// adapter, appending to both the adapter and global windows on admission.
// The check-then-append sequence holds the lock throughout so parallel
// callers cannot over-admit at window boundaries.
func (l *RateLimiter) CheckAndRecord(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if len(l.trimLocked(adapterKey(name), now)) >= l.maxPerKey {
		return false
	}
	if len(l.trimLocked(GlobalKey, now)) >= l.maxGlobal {
		return false
	}

	l.windows[adapterKey(name)] = append(l.windows[adapterKey(name)], now)
	l.windows[GlobalKey] = append(l.windows[GlobalKey], now)
	return true
}

// Record appends one admitted request to the named adapter's window and the
// global window without checking limits. Callers must have admitted the
// request first.
func (l *RateLimiter) Record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	l.windows[adapterKey(name)] = append(l.windows[adapterKey(name)], now)
	l.windows[GlobalKey] = append(l.windows[GlobalKey], now)
}

// CurrentRate returns requests-per-second observed in the named adapter's
// window: count in window divided by window length in seconds.
func (l *RateLimiter) CurrentRate(name string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.window <= 0 {
		return 0
	}
	count := len(l.trimLocked(adapterKey(name), l.nowFunc()))
	return float64(count) / l.window.Seconds()
}

// GlobalRate returns requests-per-second observed in the global window.
func (l *RateLimiter) GlobalRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.window <= 0 {
		return 0
	}
	count := len(l.trimLocked(GlobalKey, l.nowFunc()))
	return float64(count) / l.window.Seconds()
}

// Rates returns the current per-adapter rates for every tracked key,
// keyed by adapter name.
func (l *RateLimiter) Rates() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.window <= 0 {
		return map[string]float64{}
	}

	now := l.nowFunc()
	rates := make(map[string]float64)
	for key := range l.windows {
		if key == GlobalKey {
			continue
		}
		name := key[len("adapter:"):]
		rates[name] = float64(len(l.trimLocked(key, now))) / l.window.Seconds()
	}
	return rates
}
