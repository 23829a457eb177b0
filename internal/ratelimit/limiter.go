// ABOUTME: Thread-safe fixed-window request limiter keyed by principal ID.
// ABOUTME: A background goroutine sweeps expired windows until Close is called.

package ratelimit

import (
	"sync"
	"time"
)

// Defaults used when Config leaves a field at zero.
const (
	DefaultMaxRequests     = 100
	DefaultWindow          = time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

// Config configures a Limiter.
type Config struct {
	MaxRequests     int
	Window          time.Duration
	CleanupInterval time.Duration

	// Now overrides the clock. Intended for tests.
	Now func() time.Time
}

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// window tracks one principal's requests in the current fixed window.
type window struct {
	count   int
	resetAt time.Time
}

// Limiter admits at most MaxRequests per principal per fixed window.
// It never blocks or queues; callers reject denied requests.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	max      int
	length   time.Duration
	interval time.Duration
	now      func() time.Time
	done     chan struct{}
	closed   bool
}

// New creates a Limiter and starts its cleanup goroutine.
func New(cfg Config) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Limiter{
		windows:  make(map[string]*window),
		max:      cfg.MaxRequests,
		length:   cfg.Window,
		interval: cfg.CleanupInterval,
		now:      cfg.Now,
		done:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Limit returns the configured maximum per window.
func (l *Limiter) Limit() int {
	return l.max
}

// Check counts one request for id and reports whether it is admitted.
// The check and the increment happen under one lock acquisition.
func (l *Limiter) Check(id string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[id]
	if !ok || !now.Before(w.resetAt) {
		// First request or window expired
		w = &window{count: 1, resetAt: now.Add(l.length)}
		l.windows[id] = w
		return Result{Allowed: true, Limit: l.max, Remaining: l.max - 1, ResetAt: w.resetAt}
	}

	if w.count >= l.max {
		return Result{Allowed: false, Limit: l.max, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Result{Allowed: true, Limit: l.max, Remaining: l.max - w.count, ResetAt: w.resetAt}
}

// Len returns the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// cleanup runs in a background goroutine, periodically removing expired windows.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.runCleanup()
		case <-l.done:
			return
		}
	}
}

// runCleanup removes every window whose reset time has passed.
func (l *Limiter) runCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, id)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		close(l.done)
		l.closed = true
	}
}
