package toolcall

import (
	"sync"
	"time"
)

// LimitConfig defines per-tool invocation limits. Zero values mean no limit
// for that window.
type LimitConfig struct {
	CallsPerMinute int `json:"calls_per_minute"`
	CallsPerHour   int `json:"calls_per_hour"`
}

// slidingWindow is a bucketed sliding window counter.
type slidingWindow struct {
	windowSeconds int
	bucketCount   int
	buckets       map[int64]int
	mu            sync.Mutex
}

func newSlidingWindow(windowSeconds int) *slidingWindow {
	return &slidingWindow{
		windowSeconds: windowSeconds,
		bucketCount:   10,
		buckets:       make(map[int64]int),
	}
}

func (w *slidingWindow) bucketFor(ts float64) int64 {
	bucketSize := float64(w.windowSeconds) / float64(w.bucketCount)
	return int64(ts / bucketSize)
}

// record counts a call and drops expired buckets.
func (w *slidingWindow) record(ts float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.bucketFor(ts)
	minBucket := current - int64(w.bucketCount)
	for b := range w.buckets {
		if b < minBucket {
			delete(w.buckets, b)
		}
	}
	w.buckets[current]++
}

func (w *slidingWindow) count(ts float64) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	minBucket := w.bucketFor(ts) - int64(w.bucketCount)
	total := 0
	for b, c := range w.buckets {
		if b >= minBucket {
			total += c
		}
	}
	return total
}

type limiterKey struct {
	tool       string
	windowType string // "minute" or "hour"
}

// Limiter enforces per-tool sliding-window rate limits.
type Limiter struct {
	defaultConfig LimitConfig
	toolConfigs   map[string]LimitConfig
	windows       map[limiterKey]*slidingWindow
	mu            sync.Mutex
}

// NewLimiter creates a limiter with the given default config.
func NewLimiter(defaultConfig LimitConfig) *Limiter {
	return &Limiter{
		defaultConfig: defaultConfig,
		toolConfigs:   make(map[string]LimitConfig),
		windows:       make(map[limiterKey]*slidingWindow),
	}
}

// SetToolLimits overrides limits for one tool.
func (l *Limiter) SetToolLimits(tool string, cfg LimitConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toolConfigs[tool] = cfg
}

func (l *Limiter) configFor(tool string) LimitConfig {
	if cfg, ok := l.toolConfigs[tool]; ok {
		return cfg
	}
	return l.defaultConfig
}

// Allow checks the tool's windows and records the call if within limits.
// Returns false when any window is exhausted; exhausted calls are not recorded.
func (l *Limiter) Allow(tool string) bool {
	now := float64(time.Now().UnixNano()) / 1e9

	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := l.configFor(tool)
	checks := []struct {
		windowType    string
		windowSeconds int
		limit         int
	}{
		{"minute", 60, cfg.CallsPerMinute},
		{"hour", 3600, cfg.CallsPerHour},
	}

	for _, check := range checks {
		if check.limit <= 0 {
			continue
		}
		key := limiterKey{tool, check.windowType}
		window, exists := l.windows[key]
		if !exists {
			window = newSlidingWindow(check.windowSeconds)
			l.windows[key] = window
		}
		if window.count(now) >= check.limit {
			return false
		}
	}

	for _, check := range checks {
		if check.limit <= 0 {
			continue
		}
		l.windows[limiterKey{tool, check.windowType}].record(now)
	}
	return true
}
