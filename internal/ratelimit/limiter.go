// Package ratelimit admits or rejects requests per caller key using a fixed
// window counter.
//
// Counters normally live in a shared store so that every process sees the
// same budget. When the store fails the limiter keeps answering from an
// in-process map and periodically probes the store until it recovers. The
// in-process mode is degraded: parallel processes no longer share counts.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store is the shared counter backend. Hit records one request against key
// and returns the count in the current window and when that window resets.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type Config struct {
	Limit         int           // Requests admitted per window (default: 20)
	Window        time.Duration // Window length (default: 1h)
	SweepInterval time.Duration // Fallback map sweep period; 0 disables the background sweep
	ProbeInterval time.Duration // Delay before retrying a failed store (default: 10s)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Degraded  bool // Answered from the in-process fallback
}

// RetryAfter is how long a rejected caller should wait before trying again.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

type window struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	store Store
	clock Clock
	cfg   Config

	mu        sync.Mutex
	windows   map[string]*window
	degraded  bool
	nextProbe time.Time

	stopSweep chan struct{}
	stopOnce  sync.Once
}

// New creates a limiter. A nil store runs the limiter on the in-process map
// only.
func New(store Store, clock Clock, cfg Config) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 10 * time.Second
	}
	if clock == nil {
		clock = SystemClock{}
	}

	l := &Limiter{
		store:     store,
		clock:     clock,
		cfg:       cfg,
		windows:   make(map[string]*window),
		stopSweep: make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		go l.sweepLoop()
	}

	return l
}

// Stop stops the background sweep goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopSweep) })
}

func (l *Limiter) Limit() int {
	return l.cfg.Limit
}

// Degraded reports whether the limiter is currently answering from the
// in-process fallback.
func (l *Limiter) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store == nil || l.degraded
}

// Allow records one request for key and reports whether it is admitted.
// Every call counts, including rejected ones.
func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	now := l.clock.Now()

	if l.usePrimary(now) {
		count, resetAt, err := l.store.Hit(ctx, key, l.cfg.Window, now)
		if err == nil {
			l.recovered()
			return l.decide(count, resetAt, false)
		}
		if ctx.Err() == nil {
			l.failed(now, err)
		}
	}

	count, resetAt := l.hitLocal(key, now)
	return l.decide(count, resetAt, true)
}

func (l *Limiter) decide(count int, resetAt time.Time, degraded bool) Decision {
	remaining := l.cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= l.cfg.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
		Degraded:  degraded,
	}
}

// usePrimary reports whether this call should go to the store. While
// degraded, exactly one caller per probe interval is let through as a probe.
func (l *Limiter) usePrimary(now time.Time) bool {
	if l.store == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.degraded {
		return true
	}
	if now.Before(l.nextProbe) {
		return false
	}
	l.nextProbe = now.Add(l.cfg.ProbeInterval)
	return true
}

func (l *Limiter) failed(now time.Time, err error) {
	l.mu.Lock()
	wasDegraded := l.degraded
	l.degraded = true
	l.nextProbe = now.Add(l.cfg.ProbeInterval)
	l.mu.Unlock()

	if !wasDegraded {
		slog.Warn("rate limit store unavailable, using in-process fallback",
			"error", err, "probe_interval", l.cfg.ProbeInterval)
	}
}

func (l *Limiter) recovered() {
	l.mu.Lock()
	wasDegraded := l.degraded
	l.degraded = false
	l.mu.Unlock()

	if wasDegraded {
		slog.Info("rate limit store recovered, leaving in-process fallback")
	}
}

func (l *Limiter) hitLocal(key string, now time.Time) (int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.cfg.Window)}
		l.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt
}

// Sweep evicts fallback windows that have elapsed and returns how many
// were removed.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				slog.Debug("swept expired rate limit windows", "removed", n)
			}
		case <-l.stopSweep:
			return
		}
	}
}
