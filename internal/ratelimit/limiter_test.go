package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeStore is an in-memory Store whose availability can be toggled.
type fakeStore struct {
	mu      sync.Mutex
	down    bool
	calls   int
	windows map[string]*window
}

func newFakeStore() *fakeStore {
	return &fakeStore{windows: make(map[string]*window)}
}

func (s *fakeStore) Hit(_ context.Context, key string, w time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.down {
		return 0, time.Time{}, errors.New("connection refused")
	}
	win, ok := s.windows[key]
	if !ok || !now.Before(win.resetAt) {
		win = &window{resetAt: now.Add(w)}
		s.windows[key] = win
	}
	win.count++
	return win.count, win.resetAt, nil
}

func (s *fakeStore) setDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestLimiter_FixedWindow(t *testing.T) {
	clock := newFakeClock()
	l := New(newFakeStore(), clock, Config{Limit: 3, Window: time.Hour})
	defer l.Stop()
	ctx := context.Background()

	for i := 2; i >= 0; i-- {
		d := l.Allow(ctx, "user:1")
		assert.True(t, d.Allowed)
		assert.Equal(t, i, d.Remaining)
		assert.False(t, d.Degraded)
	}

	d := l.Allow(ctx, "user:1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Hour, d.RetryAfter(clock.Now()))

	// Other keys have their own budget.
	assert.True(t, l.Allow(ctx, "user:2").Allowed)

	clock.Advance(time.Hour)
	d = l.Allow(ctx, "user:1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestLimiter_FallbackIsDeterministic(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	store.setDown(true)
	l := New(store, clock, Config{Limit: 2, Window: time.Minute, ProbeInterval: 10 * time.Second})
	defer l.Stop()
	ctx := context.Background()

	first := l.Allow(ctx, "k")
	second := l.Allow(ctx, "k")
	third := l.Allow(ctx, "k")

	assert.Equal(t, Decision{Allowed: true, Remaining: 1, ResetAt: clock.Now().Add(time.Minute), Degraded: true}, first)
	assert.Equal(t, Decision{Allowed: true, Remaining: 0, ResetAt: clock.Now().Add(time.Minute), Degraded: true}, second)
	assert.Equal(t, Decision{Allowed: false, Remaining: 0, ResetAt: clock.Now().Add(time.Minute), Degraded: true}, third)
	assert.True(t, l.Degraded())

	// Only the first call reached the store; the rest wait for the probe interval.
	assert.Equal(t, 1, store.callCount())
}

func TestLimiter_SwitchesBackAfterRecovery(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	l := New(store, clock, Config{Limit: 5, Window: time.Hour, ProbeInterval: 10 * time.Second})
	defer l.Stop()
	ctx := context.Background()

	require.False(t, l.Allow(ctx, "k").Degraded)

	store.setDown(true)
	assert.True(t, l.Allow(ctx, "k").Degraded)
	require.True(t, l.Degraded())

	store.setDown(false)
	// Still inside the probe interval: the store is not consulted.
	clock.Advance(5 * time.Second)
	assert.True(t, l.Allow(ctx, "k").Degraded)

	clock.Advance(5 * time.Second)
	d := l.Allow(ctx, "k")
	assert.False(t, d.Degraded)
	assert.False(t, l.Degraded())
	// The shared store kept its own count: two successful hits so far.
	assert.Equal(t, 3, d.Remaining)
}

func TestLimiter_FailedProbeStaysDegraded(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	store.setDown(true)
	l := New(store, clock, Config{Limit: 5, Window: time.Hour, ProbeInterval: time.Second})
	defer l.Stop()
	ctx := context.Background()

	l.Allow(ctx, "k")
	clock.Advance(time.Second)
	assert.True(t, l.Allow(ctx, "k").Degraded)
	assert.Equal(t, 2, store.callCount())
	assert.True(t, l.Degraded())
}

func TestLimiter_CancelledContextDoesNotDegrade(t *testing.T) {
	store := &cancelAwareStore{}
	l := New(store, newFakeClock(), Config{Limit: 5, Window: time.Hour})
	defer l.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := l.Allow(ctx, "k")
	assert.True(t, d.Degraded)
	assert.False(t, l.Degraded())
}

type cancelAwareStore struct{}

func (cancelAwareStore) Hit(ctx context.Context, _ string, _ time.Duration, _ time.Time) (int, time.Time, error) {
	return 0, time.Time{}, ctx.Err()
}

func TestLimiter_NilStoreUsesFallback(t *testing.T) {
	l := New(nil, newFakeClock(), Config{Limit: 1, Window: time.Hour})
	defer l.Stop()

	assert.True(t, l.Allow(context.Background(), "k").Allowed)
	assert.False(t, l.Allow(context.Background(), "k").Allowed)
	assert.True(t, l.Degraded())
}

func TestLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	l := New(nil, clock, Config{Limit: 10, Window: time.Minute})
	defer l.Stop()
	ctx := context.Background()

	l.Allow(ctx, "a")
	clock.Advance(30 * time.Second)
	l.Allow(ctx, "b")

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 0, l.Sweep())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, l.Sweep())
}

func TestLimiter_ConcurrentSameKey(t *testing.T) {
	for _, tc := range []struct {
		name  string
		store Store
	}{
		{"shared store", newFakeStore()},
		{"fallback", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l := New(tc.store, newFakeClock(), Config{Limit: 50, Window: time.Hour})
			defer l.Stop()

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				allowed int
			)
			for i := 0; i < 200; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if l.Allow(context.Background(), "shared").Allowed {
						mu.Lock()
						allowed++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 50, allowed)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	l := New(nil, nil, Config{})
	defer l.Stop()

	assert.Equal(t, 20, l.Limit())
	assert.Equal(t, time.Hour, l.cfg.Window)
	assert.Equal(t, 10*time.Second, l.cfg.ProbeInterval)
	l.Stop() // idempotent
}
